package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// GraphDBStore implements graphstore.GraphStore against Postgres. Entities
// carry their aliases as a text array and an optional name embedding
// (pgvector); triples reference entities by id. The ingestion pipeline owns
// the tables, this store only reads them.
type GraphDBStore struct {
	conn *pgxpool.Pool
}

// NewGraphDBStore creates a store backed by the given connection pool.
func NewGraphDBStore(conn *pgxpool.Pool) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

// storeErr classifies a pgx failure. Statements the server rejected are
// deterministic, so they are marked permanent and never retried; everything
// else counts as the store being unreachable and stays retryable. The cause
// is wrapped so callers can still match context cancellation.
func storeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return util.Permanent(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w: %w", op, graphstore.ErrStoreUnavailable, err)
}

const neighborsSQL = `
SELECT t.predicate, o.name, 'out', COALESCE(t.source_ref, '')
FROM triples t
JOIN entities s ON s.id = t.subject_id
JOIN entities o ON o.id = t.object_id
WHERE lower(s.name) = $1 OR $1 = ANY (s.norm_aliases)
UNION ALL
SELECT t.predicate, s.name, 'in', COALESCE(t.source_ref, '')
FROM triples t
JOIN entities s ON s.id = t.subject_id
JOIN entities o ON o.id = t.object_id
WHERE lower(o.name) = $1 OR $1 = ANY (o.norm_aliases)
ORDER BY 2, 1
`

// Neighbors returns all edges adjacent to the named entity in both
// directions, ordered by neighbor name then predicate so traversal order is
// stable across runs.
func (s *GraphDBStore) Neighbors(ctx context.Context, entityName string) ([]graphstore.Edge, error) {
	rows, err := s.conn.Query(ctx, neighborsSQL, common.NormalizeName(entityName))
	if err != nil {
		return nil, storeErr("query neighbors", err)
	}
	defer rows.Close()

	edges := make([]graphstore.Edge, 0)
	for rows.Next() {
		var e graphstore.Edge
		var dir string
		if err := rows.Scan(&e.Predicate, &e.Neighbor, &dir, &e.SourceRef); err != nil {
			return nil, storeErr("scan neighbor", err)
		}
		e.Direction = graphstore.Direction(dir)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read neighbors", err)
	}
	return edges, nil
}

// EntityExists reports whether an entity with the given name or alias exists.
func (s *GraphDBStore) EntityExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM entities WHERE lower(name) = $1 OR $1 = ANY (norm_aliases))`,
		common.NormalizeName(name),
	).Scan(&exists)
	if err != nil {
		return false, storeErr("query entity exists", err)
	}
	return exists, nil
}

// ResolveEntity returns the entities whose canonical name or alias matches
// name exactly after normalization. Multiple rows are possible when an alias
// is shared between entities.
func (s *GraphDBStore) ResolveEntity(ctx context.Context, name string) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, COALESCE(entity_type, ''), COALESCE(aliases, '{}')
		 FROM entities
		 WHERE lower(name) = $1 OR $1 = ANY (norm_aliases)
		 ORDER BY name`,
		common.NormalizeName(name),
	)
	if err != nil {
		return nil, storeErr("query resolve entity", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// FuzzyMatch returns up to limit entities whose name contains the fragment,
// mirroring a case-insensitive substring lookup.
func (s *GraphDBStore) FuzzyMatch(ctx context.Context, fragment string, limit int) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, COALESCE(entity_type, ''), COALESCE(aliases, '{}')
		 FROM entities
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY length(name), name
		 LIMIT $2`,
		common.NormalizeName(fragment), limit,
	)
	if err != nil {
		return nil, storeErr("query fuzzy match", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// SimilarEntities returns up to limit entities whose name embedding is at
// least minSimilarity cosine-similar to the given vector. Entities without a
// stored embedding are skipped.
func (s *GraphDBStore) SimilarEntities(ctx context.Context, embedding []float32, limit int, minSimilarity float64) ([]common.Entity, error) {
	if len(embedding) == 0 {
		return []common.Entity{}, nil
	}
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, COALESCE(entity_type, ''), COALESCE(aliases, '{}')
		 FROM entities
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit, minSimilarity,
	)
	if err != nil {
		return nil, storeErr("query similar entities", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func scanEntities(rows pgx.Rows) ([]common.Entity, error) {
	entities := make([]common.Entity, 0)
	for rows.Next() {
		var e common.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Aliases); err != nil {
			return nil, storeErr("scan entity", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities, nil
		}
		return nil, storeErr("read entities", err)
	}
	return entities, nil
}
