package reason

import (
	"context"
	"fmt"
	"sort"

	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/ai"
	"github.com/triplehop/triplehop/pkg/common"
	"github.com/triplehop/triplehop/pkg/logger"
)

type recognizeResponse struct {
	Entities []string `json:"entities" jsonschema_description:"Entities mentioned or implied by the question, ordered from most to least central"`
}

// Match-quality multipliers applied to the recognizer's positional
// confidence. Exact name/alias hits outrank substring hits, which outrank
// embedding-similarity hits.
const (
	exactMatchWeight      = 1.0
	fuzzyMatchWeight      = 0.8
	similarityMatchWeight = 0.6
)

// recognizeEntities extracts candidate entity names from the question and
// normalizes them against the graph. Candidates that resolve to no graph
// entity are dropped. Returns ErrNoEntitiesRecognized when nothing resolves;
// the text-understanding service failing entirely is treated the same way,
// since the pipeline can answer neither way.
func (e *Engine) recognizeEntities(ctx context.Context, qc *QueryContext) error {
	var res recognizeResponse
	_, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) (struct{}, error) {
		res = recognizeResponse{}
		return struct{}{}, e.aiClient.GenerateCompletionWithFormat(
			ctx,
			"extract_question_entities",
			"Extract the entities a question refers to.",
			qc.Question,
			&res,
			ai.WithSystemPrompts(ai.ExtractEntitiesPrompt),
		)
	})
	if err != nil {
		logger.Warn("[Reason] Entity extraction failed", "query_id", qc.ID, "err", err)
		return ErrNoEntitiesRecognized
	}

	candidates := dedupeCandidates(res.Entities, e.cfg.MaxEntities)
	if len(candidates) == 0 {
		return ErrNoEntitiesRecognized
	}

	resolved := make(map[string]ResolvedEntity)
	order := make([]string, 0)
	record := func(entity common.Entity, confidence float64) {
		key := common.NormalizeName(entity.Name)
		if existing, ok := resolved[key]; ok {
			if confidence > existing.Confidence {
				existing.Confidence = confidence
				resolved[key] = existing
			}
			return
		}
		resolved[key] = ResolvedEntity{Name: entity.Name, Confidence: confidence}
		order = append(order, key)
	}

	for i, candidate := range candidates {
		positional := 1.0 - float64(i)/float64(len(candidates)+1)
		if err := e.resolveCandidate(ctx, candidate, positional, record); err != nil {
			logger.Warn("[Reason] Candidate resolution failed", "query_id", qc.ID,
				"candidate", candidate, "err", err)
		}
	}

	if len(order) == 0 {
		return ErrNoEntitiesRecognized
	}

	entities := make([]ResolvedEntity, 0, len(order))
	for _, key := range order {
		entities = append(entities, resolved[key])
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Confidence > entities[j].Confidence
	})
	qc.Entities = entities
	return nil
}

// resolveCandidate matches one extracted name against the graph: exact
// name/alias lookup first, then substring fallback, then embedding
// similarity. Every match is recorded; a fuzzy hit on several canonical
// entities keeps all of them.
func (e *Engine) resolveCandidate(
	ctx context.Context,
	candidate string,
	positional float64,
	record func(common.Entity, float64),
) error {
	exact, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]common.Entity, error) {
		return e.store.ResolveEntity(ctx, candidate)
	})
	if err != nil {
		return fmt.Errorf("resolve %q: %w", candidate, err)
	}
	if len(exact) > 0 {
		for _, entity := range exact {
			record(entity, positional*exactMatchWeight)
		}
		return nil
	}

	fuzzy, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]common.Entity, error) {
		return e.store.FuzzyMatch(ctx, candidate, e.cfg.FuzzyMatchLimit)
	})
	if err != nil {
		return fmt.Errorf("fuzzy match %q: %w", candidate, err)
	}
	if len(fuzzy) > 0 {
		for _, entity := range fuzzy {
			record(entity, positional*fuzzyMatchWeight)
		}
		return nil
	}

	embedding, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]float32, error) {
		return e.aiClient.GenerateEmbedding(ctx, []byte(candidate))
	})
	if err != nil {
		// Best effort: without an embedding the candidate stays unresolved.
		logger.Debug("[Reason] Candidate embedding failed", "candidate", candidate, "err", err)
		return nil
	}
	similar, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) ([]common.Entity, error) {
		return e.store.SimilarEntities(ctx, embedding, e.cfg.SimilarEntityLimit, e.cfg.MinEntitySimilarity)
	})
	if err != nil {
		return fmt.Errorf("similar entities %q: %w", candidate, err)
	}
	for _, entity := range similar {
		record(entity, positional*similarityMatchWeight)
	}
	return nil
}

// dedupeCandidates drops empty and duplicate names (case and whitespace
// insensitive), preserving first-seen order, capped at limit.
func dedupeCandidates(names []string, limit int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(names))
	for _, name := range names {
		key := common.NormalizeName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
