package memory

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"
)

// Store is an in-memory graphstore.GraphStore. It backs tests and the
// one-shot CLI when pointed at a fixture file instead of Postgres.
type Store struct {
	mu       sync.RWMutex
	entities map[string]common.Entity // normalized name -> entity
	aliases  map[string][]string      // normalized alias -> normalized names
	edges    map[string][]graphstore.Edge
	vectors  map[string][]float32

	nextID int64
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		entities: make(map[string]common.Entity),
		aliases:  make(map[string][]string),
		edges:    make(map[string][]graphstore.Edge),
		vectors:  make(map[string][]float32),
	}
}

// AddEntity registers an entity. Adding an existing name updates its type
// and aliases.
func (s *Store) AddEntity(e common.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := common.NormalizeName(e.Name)
	if existing, ok := s.entities[key]; ok {
		e.ID = existing.ID
	} else {
		s.nextID++
		e.ID = s.nextID
	}
	s.entities[key] = e
	for _, alias := range e.Aliases {
		a := common.NormalizeName(alias)
		s.aliases[a] = appendUnique(s.aliases[a], key)
	}
}

// SetEmbedding stores a name embedding for SimilarEntities lookups.
func (s *Store) SetEmbedding(name string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[common.NormalizeName(name)] = vec
}

// AddTriple registers a triple, creating its entities when unknown.
func (s *Store) AddTriple(t common.Triple) {
	subj := common.NormalizeName(t.Subject)
	obj := common.NormalizeName(t.Object)

	s.ensureEntity(t.Subject)
	s.ensureEntity(t.Object)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[subj] = append(s.edges[subj], graphstore.Edge{
		Predicate: t.Predicate,
		Neighbor:  s.entities[obj].Name,
		Direction: graphstore.DirectionOut,
		SourceRef: t.SourceRef,
	})
	s.edges[obj] = append(s.edges[obj], graphstore.Edge{
		Predicate: t.Predicate,
		Neighbor:  s.entities[subj].Name,
		Direction: graphstore.DirectionIn,
		SourceRef: t.SourceRef,
	})
}

func (s *Store) ensureEntity(name string) {
	s.mu.Lock()
	key := common.NormalizeName(name)
	_, ok := s.entities[key]
	s.mu.Unlock()
	if !ok {
		s.AddEntity(common.Entity{Name: name})
	}
}

// Neighbors returns all edges adjacent to the named entity, ordered by
// neighbor name then predicate for stable traversal.
func (s *Store) Neighbors(ctx context.Context, entityName string) ([]graphstore.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.edges[common.NormalizeName(entityName)]
	out := make([]graphstore.Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Neighbor != out[j].Neighbor {
			return out[i].Neighbor < out[j].Neighbor
		}
		return out[i].Predicate < out[j].Predicate
	})
	return out, nil
}

// EntityExists reports whether an entity with the given name or alias exists.
func (s *Store) EntityExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := common.NormalizeName(name)
	if _, ok := s.entities[key]; ok {
		return true, nil
	}
	return len(s.aliases[key]) > 0, nil
}

// ResolveEntity returns entities matching name or alias exactly after
// normalization.
func (s *Store) ResolveEntity(ctx context.Context, name string) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := common.NormalizeName(name)
	out := make([]common.Entity, 0, 1)
	if e, ok := s.entities[key]; ok {
		out = append(out, e)
	}
	for _, canonical := range s.aliases[key] {
		if canonical == key {
			continue
		}
		if e, ok := s.entities[canonical]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FuzzyMatch returns up to limit entities whose normalized name contains the
// fragment, shortest names first.
func (s *Store) FuzzyMatch(ctx context.Context, fragment string, limit int) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frag := common.NormalizeName(fragment)
	if frag == "" {
		return []common.Entity{}, nil
	}
	matches := make([]common.Entity, 0)
	for key, e := range s.entities {
		if strings.Contains(key, frag) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].Name) != len(matches[j].Name) {
			return len(matches[i].Name) < len(matches[j].Name)
		}
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SimilarEntities returns up to limit entities whose stored embedding is at
// least minSimilarity cosine-similar to the given vector.
func (s *Store) SimilarEntities(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entity common.Entity
		sim    float64
	}
	matches := make([]scored, 0)
	for key, vec := range s.vectors {
		e, ok := s.entities[key]
		if !ok {
			continue
		}
		sim := cosine(embedding, vec)
		if sim >= minSimilarity {
			matches = append(matches, scored{entity: e, sim: sim})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].sim != matches[j].sim {
			return matches[i].sim > matches[j].sim
		}
		return matches[i].entity.Name < matches[j].entity.Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]common.Entity, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.entity)
	}
	return out, nil
}

type fixture struct {
	Entities []common.Entity `json:"entities"`
	Triples  []common.Triple `json:"triples"`
}

// LoadFile populates the store from a JSON fixture of entities and triples.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	for _, e := range f.Entities {
		s.AddEntity(e)
	}
	for _, t := range f.Triples {
		s.AddTriple(t)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
