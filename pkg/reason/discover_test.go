package reason

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"
	"github.com/triplehop/triplehop/pkg/graphstore/memory"
)

// faultyStore fails Neighbors for the configured entities and delegates
// everything else to the wrapped store.
type faultyStore struct {
	graphstore.GraphStore
	failFor map[string]bool
}

func (s *faultyStore) Neighbors(ctx context.Context, entityName string) ([]graphstore.Edge, error) {
	if s.failFor[common.NormalizeName(entityName)] {
		return nil, fmt.Errorf("query neighbors: %w", graphstore.ErrStoreUnavailable)
	}
	return s.GraphStore.Neighbors(ctx, entityName)
}

func TestExpandFrom_BreadthFirstShortestFirst(t *testing.T) {
	store := memory.New()
	store.AddTriple(common.Triple{Subject: "a", Predicate: "r1", Object: "b"})
	store.AddTriple(common.Triple{Subject: "b", Predicate: "r2", Object: "c"})
	store.AddTriple(common.Triple{Subject: "c", Predicate: "r3", Object: "d"})

	cfg := testConfig()
	cfg.MaxHops = 2
	engine := newTestEngine(t, store, &fakeAIClient{}, cfg)

	paths, err := engine.expandFrom(context.Background(), "a")
	if err != nil {
		t.Fatalf("expandFrom() error = %v", err)
	}

	lengths := make([]int, 0, len(paths))
	for _, p := range paths {
		lengths = append(lengths, p.Length())
	}
	// One-hop paths come before their two-hop extensions; MaxHops=2 means no
	// path reaches d.
	if !reflect.DeepEqual(lengths, []int{1, 2}) {
		t.Fatalf("path lengths = %v, want [1 2]", lengths)
	}
	if paths[1].Nodes[len(paths[1].Nodes)-1] != "c" {
		t.Fatalf("two-hop path ends at %q, want c", paths[1].Nodes[len(paths[1].Nodes)-1])
	}
	for _, p := range paths {
		if p.Root != "a" {
			t.Fatalf("path root = %q, want a", p.Root)
		}
		if len(p.Nodes) != p.Length()+1 {
			t.Fatalf("path has %d nodes for %d hops", len(p.Nodes), p.Length())
		}
	}
}

func TestExpandFrom_CapKeepsShortestPaths(t *testing.T) {
	store := memory.New()
	for i := 0; i < 30; i++ {
		store.AddTriple(common.Triple{
			Subject:   "hub",
			Predicate: "linksTo",
			Object:    fmt.Sprintf("spoke%02d", i),
		})
	}

	cfg := testConfig()
	cfg.MaxPathsPerEntity = 20
	engine := newTestEngine(t, store, &fakeAIClient{}, cfg)

	paths, err := engine.expandFrom(context.Background(), "hub")
	if err != nil {
		t.Fatalf("expandFrom() error = %v", err)
	}
	if len(paths) != 20 {
		t.Fatalf("got %d paths, want 20", len(paths))
	}
	for _, p := range paths {
		if p.Length() != 1 {
			t.Fatalf("expected only one-hop paths under the cap, got %d hops", p.Length())
		}
	}
}

func TestExpandFrom_NeverRevisitsNodes(t *testing.T) {
	store := memory.New()
	store.AddTriple(common.Triple{Subject: "a", Predicate: "r", Object: "b"})
	store.AddTriple(common.Triple{Subject: "b", Predicate: "r", Object: "c"})
	store.AddTriple(common.Triple{Subject: "c", Predicate: "r", Object: "a"})

	engine := newTestEngine(t, store, &fakeAIClient{}, testConfig())

	paths, err := engine.expandFrom(context.Background(), "a")
	if err != nil {
		t.Fatalf("expandFrom() error = %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("expected paths in cyclic graph")
	}
	for _, p := range paths {
		seen := make(map[string]bool)
		for _, n := range p.Nodes {
			key := common.NormalizeName(n)
			if seen[key] {
				t.Fatalf("path revisits %q: %v", n, p.Nodes)
			}
			seen[key] = true
		}
	}
}

func TestDiscoverPaths_Deterministic(t *testing.T) {
	store := memory.New()
	store.AddTriple(common.Triple{Subject: "a", Predicate: "z", Object: "b"})
	store.AddTriple(common.Triple{Subject: "a", Predicate: "y", Object: "c"})
	store.AddTriple(common.Triple{Subject: "b", Predicate: "x", Object: "d"})
	store.AddTriple(common.Triple{Subject: "c", Predicate: "w", Object: "d"})

	engine := newTestEngine(t, store, &fakeAIClient{}, testConfig())

	run := func() []Path {
		qc := &QueryContext{
			ID: "test",
			Entities: []ResolvedEntity{
				{Name: "a", Confidence: 1.0},
				{Name: "d", Confidence: 0.8},
			},
		}
		if err := engine.discoverPaths(context.Background(), qc); err != nil {
			t.Fatalf("discoverPaths() error = %v", err)
		}
		return qc.Paths
	}

	first := run()
	if len(first) == 0 {
		t.Fatal("expected discovered paths")
	}
	for i := 0; i < 5; i++ {
		if next := run(); !reflect.DeepEqual(first, next) {
			t.Fatalf("discovery order changed between runs:\n%v\nvs\n%v", first, next)
		}
	}
}

func TestAnswer_StoreFailureForOneEntityStillAnswers(t *testing.T) {
	store := memory.New()
	store.AddTriple(common.Triple{Subject: "transformer", Predicate: "uses", Object: "attention"})
	store.AddTriple(common.Triple{Subject: "quantum", Predicate: "studiedBy", Object: "physics"})

	faulty := &faultyStore{
		GraphStore: store,
		failFor:    map[string]bool{"quantum": true},
	}
	client := &fakeAIClient{
		entities: []string{"transformer", "quantum"},
		answer:   "Transformers use attention.",
	}
	engine := newTestEngine(t, faulty, client, testConfig())

	result, err := engine.Answer(context.Background(), "What does transformer use?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if result.Answer != client.answer {
		t.Fatalf("Answer = %q, want the generated answer", result.Answer)
	}
	if len(result.Paths) == 0 {
		t.Fatal("expected paths from the healthy entity")
	}
	for _, p := range result.Paths {
		if strings.Contains(p, "quantum") {
			t.Fatalf("path from failed entity leaked into the answer: %q", p)
		}
	}
	// Both entities resolved; only the expansion of one failed.
	if !reflect.DeepEqual(result.Entities, []string{"transformer", "quantum"}) {
		t.Fatalf("Entities = %v, want [transformer quantum]", result.Entities)
	}
}

func TestSortEdges_PredicateNeighborDirection(t *testing.T) {
	edges := []graphstore.Edge{
		{Predicate: "uses", Neighbor: "b", Direction: graphstore.DirectionOut},
		{Predicate: "cites", Neighbor: "z", Direction: graphstore.DirectionIn},
		{Predicate: "cites", Neighbor: "a", Direction: graphstore.DirectionOut},
		{Predicate: "cites", Neighbor: "a", Direction: graphstore.DirectionIn},
	}
	sortEdges(edges)

	want := []graphstore.Edge{
		{Predicate: "cites", Neighbor: "a", Direction: graphstore.DirectionIn},
		{Predicate: "cites", Neighbor: "a", Direction: graphstore.DirectionOut},
		{Predicate: "cites", Neighbor: "z", Direction: graphstore.DirectionIn},
		{Predicate: "uses", Neighbor: "b", Direction: graphstore.DirectionOut},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Fatalf("sortEdges() = %+v, want %+v", edges, want)
	}
}
