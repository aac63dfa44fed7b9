package reason

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/graphstore"
	"github.com/triplehop/triplehop/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// discoverPaths runs a breadth-first expansion from each resolved entity on
// a bounded worker pool. Expansions are independent: a store failure aborts
// one entity's discovery and the others proceed, so partial evidence still
// produces an answer. Results are appended under a mutex and ordered by
// entity rank so the union is deterministic.
func (e *Engine) discoverPaths(ctx context.Context, qc *QueryContext) error {
	perEntity := make([][]Path, len(qc.Entities))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.DiscoveryWorkers)
	mutex := sync.Mutex{}

	for i, entity := range qc.Entities {
		idx := i
		root := entity.Name
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				paths, err := e.expandFrom(gCtx, root)
				if err != nil {
					logger.Warn("[Reason] Path discovery aborted for entity", "query_id", qc.ID,
						"entity", root, "err", err)
				}
				mutex.Lock()
				perEntity[idx] = paths
				mutex.Unlock()
				return nil
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	paths := make([]Path, 0)
	for _, set := range perEntity {
		paths = append(paths, set...)
	}
	qc.Paths = paths
	return nil
}

// partialPath is a walk under construction during expansion.
type partialPath struct {
	nodes   []string
	triples []common.Triple
}

// expandFrom performs the bounded breadth-first expansion rooted at one
// entity. Paths are recorded in discovery order, so the MaxPathsPerEntity
// cap keeps the shortest subset. A path is abandoned the moment it would
// revisit an entity. Neighbor lists are fetched once per node and expanded
// in (predicate, neighbor) order, making discovery order reproducible.
//
// On a store failure mid-expansion the paths recorded so far are returned
// together with the error.
func (e *Engine) expandFrom(ctx context.Context, root string) ([]Path, error) {
	recorded := make([]Path, 0, e.cfg.MaxPathsPerEntity)
	neighborCache := make(map[string][]graphstore.Edge)

	queue := []partialPath{{nodes: []string{root}}}

	for len(queue) > 0 && len(recorded) < e.cfg.MaxPathsPerEntity {
		current := queue[0]
		queue = queue[1:]

		if len(current.triples) >= e.cfg.MaxHops {
			continue
		}

		last := current.nodes[len(current.nodes)-1]
		edges, ok := neighborCache[common.NormalizeName(last)]
		if !ok {
			fetched, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]graphstore.Edge, error) {
				return e.store.Neighbors(ctx, last)
			})
			if err != nil {
				return recorded, err
			}
			sortEdges(fetched)
			neighborCache[common.NormalizeName(last)] = fetched
			edges = fetched
		}

		for _, edge := range edges {
			if len(recorded) >= e.cfg.MaxPathsPerEntity {
				break
			}
			if revisits(current.nodes, edge.Neighbor) {
				continue
			}

			next := partialPath{
				nodes:   append(append(make([]string, 0, len(current.nodes)+1), current.nodes...), edge.Neighbor),
				triples: append(append(make([]common.Triple, 0, len(current.triples)+1), current.triples...), edge.Triple(last)),
			}

			recorded = append(recorded, Path{
				Root:    root,
				Nodes:   next.nodes,
				Triples: next.triples,
			})

			if len(next.triples) < e.cfg.MaxHops {
				queue = append(queue, next)
			}
		}
	}

	return recorded, nil
}

// sortEdges orders a neighbor list by relation label first, then neighbor
// name, then stored direction. Expanding in this order gives equal-length
// paths a deterministic, lexicographic-by-relations discovery order.
func sortEdges(edges []graphstore.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		pi, pj := strings.ToLower(edges[i].Predicate), strings.ToLower(edges[j].Predicate)
		if pi != pj {
			return pi < pj
		}
		ni, nj := common.NormalizeName(edges[i].Neighbor), common.NormalizeName(edges[j].Neighbor)
		if ni != nj {
			return ni < nj
		}
		return edges[i].Direction < edges[j].Direction
	})
}

func revisits(nodes []string, candidate string) bool {
	key := common.NormalizeName(candidate)
	for _, n := range nodes {
		if common.NormalizeName(n) == key {
			return true
		}
	}
	return false
}
