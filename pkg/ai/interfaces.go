package ai

import "context"

// Completer generates free-text or schema-constrained completions. It is the
// contract the answer synthesizer and entity recognizer depend on; the
// reasoning pipeline never sees provider internals.
type Completer interface {
	// GenerateCompletion sends a single-turn prompt to the chat model and
	// returns the generated completion as plain text.
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)

	// GenerateCompletionWithFormat sends a prompt to the chat model and
	// unmarshals the response into out, using a JSON schema derived from
	// out's type to enforce structure.
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error
}

// Embedder produces fixed-dimension vector embeddings for text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// MetricsReporter exposes accumulated token usage and timing for a client.
type MetricsReporter interface {
	Metrics() ModelMetrics
	ResetMetrics()
}

// QueryAIClient is the full AI surface used by the reasoning pipeline:
// text understanding and answer generation via Completer, semantic
// similarity via Embedder.
type QueryAIClient interface {
	Completer
	Embedder
	MetricsReporter
}
