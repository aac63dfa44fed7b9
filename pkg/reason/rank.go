package reason

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// rankPaths scores every discovered path against the question and sorts them
// into the total order the assembler consumes: descending by score, ties
// broken by shorter length, then by lexicographic rendering. Paths below the
// similarity floor are dropped before ranking.
//
// Embedding failures never fail the request. A single path's embedding error
// drops that path; losing the question embedding (or every path embedding)
// degrades to a shortest-first ordering so the system stays responsive
// without the ranking signal.
func (e *Engine) rankPaths(ctx context.Context, qc *QueryContext) error {
	questionVec, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]float32, error) {
		return e.aiClient.GenerateEmbedding(ctx, []byte(qc.Question))
	})
	if err != nil {
		logger.Warn("[Reason] Question embedding failed, ranking degraded", "query_id", qc.ID, "err", err)
		e.rankByLength(qc)
		return nil
	}

	type scoredPath struct {
		path Path
		ok   bool
	}
	scored := make([]scoredPath, len(qc.Paths))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.EmbedWorkers)
	mutex := sync.Mutex{}

	for i, path := range qc.Paths {
		idx := i
		p := path
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				vec, err := util.RetryBackoffWithContext(gCtx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]float32, error) {
					return e.aiClient.GenerateEmbedding(ctx, []byte(p.Render()))
				})
				if err != nil {
					logger.Debug("[Reason] Path embedding failed, path dropped", "query_id", qc.ID,
						"path", p.Render(), "err", err)
					return nil
				}
				p.Similarity = cosineSimilarity(questionVec, vec)
				p.Score = p.Similarity - e.cfg.LengthPenalty*float64(p.Length()-1)

				mutex.Lock()
				scored[idx] = scoredPath{path: p, ok: true}
				mutex.Unlock()
				return nil
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	ranked := make([]Path, 0, len(scored))
	embedded := 0
	for _, s := range scored {
		if !s.ok {
			continue
		}
		embedded++
		if s.path.Similarity < e.cfg.MinPathSimilarity {
			continue
		}
		ranked = append(ranked, s.path)
	}

	if embedded == 0 && len(qc.Paths) > 0 {
		logger.Warn("[Reason] All path embeddings failed, ranking degraded", "query_id", qc.ID)
		e.rankByLength(qc)
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Length() != ranked[j].Length() {
			return ranked[i].Length() < ranked[j].Length()
		}
		return ranked[i].Render() < ranked[j].Render()
	})
	qc.Ranked = ranked
	return nil
}

// rankByLength is the degraded ordering used when no embeddings are
// available: shortest paths first, rendering as the tie-break. Scores stay
// zero; the similarity floor cannot be applied without a signal.
func (e *Engine) rankByLength(qc *QueryContext) {
	ranked := make([]Path, len(qc.Paths))
	copy(ranked, qc.Paths)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Length() != ranked[j].Length() {
			return ranked[i].Length() < ranked[j].Length()
		}
		return ranked[i].Render() < ranked[j].Render()
	})
	qc.Ranked = ranked
	qc.RankingDegraded = true
}

func cosineSimilarity(a, b []float32) float64 {
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
