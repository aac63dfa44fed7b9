package reason

import "time"

// Config bounds the reasoning pipeline. It is threaded explicitly through
// the engine instead of living in package globals, so callers and tests can
// vary limits per request.
type Config struct {
	// MaxHops is the maximum path length in edge traversals.
	MaxHops int
	// MaxPathsPerEntity caps how many paths are recorded per candidate
	// entity. The cap is applied during breadth-first expansion, so the
	// shortest paths are the ones kept.
	MaxPathsPerEntity int
	// MaxContextTriples caps the assembled evidence context.
	MaxContextTriples int
	// MinPathSimilarity drops paths whose cosine similarity to the question
	// falls below the floor, before ranking.
	MinPathSimilarity float64
	// LengthPenalty is subtracted from a path's similarity once per hop
	// beyond the first, so direct relationships outrank longer chains.
	LengthPenalty float64

	// MaxEntities caps how many candidate names the recognizer keeps.
	MaxEntities int
	// FuzzyMatchLimit caps substring matches per unresolved candidate.
	FuzzyMatchLimit int
	// SimilarEntityLimit caps embedding matches per unresolved candidate.
	SimilarEntityLimit int
	// MinEntitySimilarity is the floor for embedding-based entity resolution.
	MinEntitySimilarity float64

	// DiscoveryWorkers bounds concurrent per-entity expansions.
	DiscoveryWorkers int
	// EmbedWorkers bounds concurrent path embedding calls during ranking.
	EmbedWorkers int

	// MaxRetries bounds retries of external calls on transient failures.
	MaxRetries int
	// RetryBackoff is the base delay between retries (doubled per attempt).
	RetryBackoff time.Duration

	// ContextTokenBudget caps the rendered evidence context in tokens.
	// Zero disables the budget.
	ContextTokenBudget int
	// TokenEncoder names the tiktoken encoding used for the budget.
	TokenEncoder string

	// DegradedConfidenceCeiling is the highest confidence reported when
	// ranking fell back to length-only ordering.
	DegradedConfidenceCeiling float64
}

// DefaultConfig returns the reasoning limits used in production.
func DefaultConfig() Config {
	return Config{
		MaxHops:           3,
		MaxPathsPerEntity: 20,
		MaxContextTriples: 50,
		MinPathSimilarity: 0.3,
		LengthPenalty:     0.05,

		MaxEntities:         8,
		FuzzyMatchLimit:     10,
		SimilarEntityLimit:  4,
		MinEntitySimilarity: 0.6,

		DiscoveryWorkers: 4,
		EmbedWorkers:     8,

		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,

		ContextTokenBudget: 4096,
		TokenEncoder:       "o200k_base",

		DegradedConfidenceCeiling: 0.5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxHops <= 0 {
		c.MaxHops = def.MaxHops
	}
	if c.MaxPathsPerEntity <= 0 {
		c.MaxPathsPerEntity = def.MaxPathsPerEntity
	}
	if c.MaxContextTriples <= 0 {
		c.MaxContextTriples = def.MaxContextTriples
	}
	if c.MinPathSimilarity == 0 {
		c.MinPathSimilarity = def.MinPathSimilarity
	}
	if c.LengthPenalty == 0 {
		c.LengthPenalty = def.LengthPenalty
	}
	if c.MaxEntities <= 0 {
		c.MaxEntities = def.MaxEntities
	}
	if c.FuzzyMatchLimit <= 0 {
		c.FuzzyMatchLimit = def.FuzzyMatchLimit
	}
	if c.SimilarEntityLimit <= 0 {
		c.SimilarEntityLimit = def.SimilarEntityLimit
	}
	if c.MinEntitySimilarity == 0 {
		c.MinEntitySimilarity = def.MinEntitySimilarity
	}
	if c.DiscoveryWorkers <= 0 {
		c.DiscoveryWorkers = def.DiscoveryWorkers
	}
	if c.EmbedWorkers <= 0 {
		c.EmbedWorkers = def.EmbedWorkers
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.TokenEncoder == "" {
		c.TokenEncoder = def.TokenEncoder
	}
	if c.DegradedConfidenceCeiling <= 0 {
		c.DegradedConfidenceCeiling = def.DegradedConfidenceCeiling
	}
	return c
}
