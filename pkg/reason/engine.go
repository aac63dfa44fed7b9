package reason

import (
	"context"
	"errors"
	"fmt"

	"github.com/triplehop/triplehop/pkg/ai"
	"github.com/triplehop/triplehop/pkg/graphstore"
	"github.com/triplehop/triplehop/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NoKnowledgeAnswer is returned when no entities resolve or no paths survive
// ranking. The generation service is never invoked in that case.
const NoKnowledgeAnswer = "No relevant knowledge found for this question."

// Engine is the query-time multi-hop reasoning pipeline: entity recognition,
// bounded path discovery, semantic ranking, evidence assembly and answer
// synthesis over a read-only knowledge graph.
//
// An Engine should be created using NewEngine. It is safe for concurrent use;
// all per-request state lives in a request-scoped QueryContext.
type Engine struct {
	store    graphstore.GraphStore
	aiClient ai.QueryAIClient
	cfg      Config
}

// NewEngineParams defines the collaborators and limits for a new Engine.
type NewEngineParams struct {
	Store    graphstore.GraphStore
	AIClient ai.QueryAIClient
	Config   Config
}

// NewEngine creates an Engine. Store and AIClient are required; zero Config
// fields fall back to DefaultConfig values.
func NewEngine(params NewEngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("reason: graph store is required")
	}
	if params.AIClient == nil {
		return nil, errors.New("reason: ai client is required")
	}
	return &Engine{
		store:    params.Store,
		aiClient: params.AIClient,
		cfg:      params.Config.withDefaults(),
	}, nil
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Answer runs the full pipeline for one question. Stages run in strict
// sequence; only path discovery fans out internally. Recognition and
// discovery dead-ends short-circuit to a no-knowledge result instead of
// failing. The only error state surfaced to the caller is *SynthesisError,
// which still carries the assembled evidence.
func (e *Engine) Answer(ctx context.Context, question string) (*Result, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate query ID: %w", err)
	}
	qc := &QueryContext{ID: id, Question: question}

	logger.Info("[Reason] Processing question", "query_id", qc.ID)

	if err := e.recognizeEntities(ctx, qc); err != nil {
		if errors.Is(err, ErrNoEntitiesRecognized) {
			logger.Info("[Reason] No entities recognized", "query_id", qc.ID)
			return e.noKnowledgeResult(qc), nil
		}
		return nil, err
	}
	logger.Debug("[Reason] Entities resolved", "query_id", qc.ID, "count", len(qc.Entities))

	if err := e.discoverPaths(ctx, qc); err != nil {
		return nil, err
	}
	if len(qc.Paths) == 0 {
		logger.Info("[Reason] No paths discovered", "query_id", qc.ID)
		return e.noKnowledgeResult(qc), nil
	}
	logger.Debug("[Reason] Paths discovered", "query_id", qc.ID, "count", len(qc.Paths))

	if err := e.rankPaths(ctx, qc); err != nil {
		return nil, err
	}
	if len(qc.Ranked) == 0 {
		logger.Info("[Reason] No paths survived ranking", "query_id", qc.ID)
		return e.noKnowledgeResult(qc), nil
	}
	logger.Debug("[Reason] Paths ranked", "query_id", qc.ID,
		"count", len(qc.Ranked), "degraded", qc.RankingDegraded)

	e.assembleContext(qc)
	logger.Debug("[Reason] Context assembled", "query_id", qc.ID, "triples", len(qc.Evidence))

	result, err := e.synthesizeAnswer(ctx, qc)
	if err != nil {
		return nil, err
	}

	logger.Info("[Reason] Question answered", "query_id", qc.ID,
		"confidence", result.Confidence, "triples", result.TripleCount)
	return result, nil
}

func (e *Engine) noKnowledgeResult(qc *QueryContext) *Result {
	return &Result{
		Answer:     NoKnowledgeAnswer,
		Confidence: 0,
		Entities:   entityNames(qc.Entities),
		Paths:      []string{},
	}
}

func entityNames(entities []ResolvedEntity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names
}
