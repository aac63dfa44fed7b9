package graphstore

import (
	"context"
	"errors"

	"github.com/triplehop/triplehop/pkg/common"
)

// ErrStoreUnavailable indicates the graph store could not be reached or timed
// out. It is transient: callers retry with backoff and then degrade to
// partial results. A missing entity is never an error, only an empty result.
var ErrStoreUnavailable = errors.New("graph store unavailable")

// Direction indicates how an edge is stored relative to the entity it was
// queried from.
type Direction string

const (
	// DirectionOut means the queried entity is the subject of the triple.
	DirectionOut Direction = "out"
	// DirectionIn means the queried entity is the object of the triple.
	DirectionIn Direction = "in"
)

// Edge is one adjacent relationship of an entity: the predicate label, the
// entity on the other end, the stored direction, and an optional provenance
// reference.
type Edge struct {
	Predicate string
	Neighbor  string
	Direction Direction
	SourceRef string
}

// Triple converts the edge back into its stored (subject, predicate, object)
// form, given the entity it was queried from.
func (e Edge) Triple(from string) common.Triple {
	if e.Direction == DirectionIn {
		return common.Triple{Subject: e.Neighbor, Predicate: e.Predicate, Object: from, SourceRef: e.SourceRef}
	}
	return common.Triple{Subject: from, Predicate: e.Predicate, Object: e.Neighbor, SourceRef: e.SourceRef}
}

// GraphStore is the read-only query contract against the knowledge graph.
// Traversal is undirected: Neighbors returns edges in both directions.
// All name matching is case and whitespace insensitive. Implementations wrap
// connection and timeout failures with ErrStoreUnavailable; they never
// mutate the graph.
type GraphStore interface {
	// Neighbors returns all edges adjacent to the named entity, or an empty
	// slice if the entity is unknown.
	Neighbors(ctx context.Context, entityName string) ([]Edge, error)

	// EntityExists reports whether an entity with the given name or alias
	// exists in the graph.
	EntityExists(ctx context.Context, name string) (bool, error)

	// ResolveEntity returns the entities whose canonical name or alias
	// matches name exactly (after normalization).
	ResolveEntity(ctx context.Context, name string) ([]common.Entity, error)

	// FuzzyMatch returns up to limit entities whose name contains the given
	// fragment (after normalization).
	FuzzyMatch(ctx context.Context, fragment string, limit int) ([]common.Entity, error)

	// SimilarEntities returns up to limit entities whose stored name
	// embedding is at least minSimilarity cosine-similar to the given
	// vector. Implementations without embeddings return an empty slice.
	SimilarEntities(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]common.Entity, error)
}
