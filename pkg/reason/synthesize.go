package reason

import (
	"context"
	"fmt"
	"strings"

	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/ai"
	"github.com/triplehop/triplehop/pkg/logger"
)

// Paths listed in the grounded prompt, beyond which additional renderings
// add noise rather than signal.
const maxPromptPaths = 10

// synthesizeAnswer builds the grounded prompt from the assembled evidence
// and invokes the generation service once. An empty evidence set
// short-circuits to the no-knowledge response without calling the service.
// Generation failure after retries is the pipeline's only surfaced failure:
// the returned *SynthesisError carries the evidence gathered so far with
// confidence forced to zero.
func (e *Engine) synthesizeAnswer(ctx context.Context, qc *QueryContext) (*Result, error) {
	if len(qc.Evidence) == 0 {
		return e.noKnowledgeResult(qc), nil
	}

	prompt := fmt.Sprintf(ai.AnswerPrompt, renderPathSection(qc), renderTripleSection(qc), qc.Question)

	answer, err := util.RetryBackoffWithContext(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) (string, error) {
		return e.aiClient.GenerateCompletion(ctx, prompt)
	})
	if err != nil {
		logger.Error("[Reason] Answer generation failed", "query_id", qc.ID, "err", err)
		return nil, &SynthesisError{
			Partial: &Result{
				Confidence:      0,
				Entities:        entityNames(qc.Entities),
				Paths:           usedPathRenderings(qc),
				TripleCount:     len(qc.Evidence),
				RankingDegraded: qc.RankingDegraded,
			},
			cause: err,
		}
	}

	qc.Answer = strings.TrimSpace(answer)
	qc.Confidence = e.confidence(qc)

	return &Result{
		Answer:          qc.Answer,
		Confidence:      qc.Confidence,
		Entities:        entityNames(qc.Entities),
		Paths:           usedPathRenderings(qc),
		TripleCount:     len(qc.Evidence),
		RankingDegraded: qc.RankingDegraded,
	}, nil
}

// confidence derives the reportable score from the top-ranked path's
// post-penalty score, clamped into [0,1]. The generation service's own
// certainty is never consulted. In degraded-ranking mode no score exists,
// so the value is the configured ceiling discounted by the top path's
// length, keeping degraded answers visibly less certain.
func (e *Engine) confidence(qc *QueryContext) float64 {
	if len(qc.Ranked) == 0 {
		return 0
	}
	top := qc.Ranked[0]

	if qc.RankingDegraded {
		conf := e.cfg.DegradedConfidenceCeiling * (1 - e.cfg.LengthPenalty*float64(top.Length()-1))
		return clamp01(conf)
	}
	return clamp01(top.Score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func renderPathSection(qc *QueryContext) string {
	count := min(len(qc.Ranked), maxPromptPaths)
	lines := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p := qc.Ranked[i]
		lines = append(lines, fmt.Sprintf("Path %d (relevance: %.3f): %s", i+1, p.Score, p.Render()))
	}
	if len(lines) == 0 {
		return "No reasoning paths found."
	}
	return strings.Join(lines, "\n")
}

func renderTripleSection(qc *QueryContext) string {
	lines := make([]string, 0, len(qc.Evidence))
	currentRank := 0
	for _, ev := range qc.Evidence {
		if ev.PathRank != currentRank {
			currentRank = ev.PathRank
			lines = append(lines, fmt.Sprintf("From path %d:", currentRank))
		}
		lines = append(lines, "- "+ev.Render())
	}
	if len(lines) == 0 {
		return "No context triples available."
	}
	return strings.Join(lines, "\n")
}

// usedPathRenderings returns the renderings of the paths that contributed at
// least one evidence triple, in rank order.
func usedPathRenderings(qc *QueryContext) []string {
	out := make([]string, 0)
	seen := make(map[int]bool)
	for _, ev := range qc.Evidence {
		if seen[ev.PathRank] {
			continue
		}
		seen[ev.PathRank] = true
		out = append(out, ev.PathRendering)
	}
	return out
}
