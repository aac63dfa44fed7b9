package openai

import (
	"sync"

	"github.com/triplehop/triplehop/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// QueryOpenAIClient is an OpenAI-compatible client for the AI capabilities
// used by the reasoning pipeline. It manages separate clients for embeddings
// and chat/completion tasks, so the two can point at different endpoints.
//
// A QueryOpenAIClient should be created using NewQueryOpenAIClient.
type QueryOpenAIClient struct {
	embeddingModel   string
	answerModel      string
	recognitionModel string

	embeddingURL string
	embeddingKey string
	chatURL      string
	chatKey      string

	timeoutMin int

	chatLock      *semaphore.Weighted
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewQueryOpenAIClientParams defines the configuration parameters for
// creating a new QueryOpenAIClient.
//
// EmbeddingModel specifies the model used for embeddings.
// AnswerModel specifies the model used for answer generation.
// RecognitionModel specifies the model used for entity recognition.
// EmbeddingURL and EmbeddingKey configure the embedding API endpoint,
// ChatURL and ChatKey the chat/completion API endpoint.
type NewQueryOpenAIClientParams struct {
	EmbeddingModel   string
	AnswerModel      string
	RecognitionModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	TimeoutMin            int
	MaxConcurrentRequests int64
}

// NewQueryOpenAIClient creates and returns a new QueryOpenAIClient configured
// with the provided parameters.
//
// Example:
//
//	client := openai.NewQueryOpenAIClient(openai.NewQueryOpenAIClientParams{
//		EmbeddingModel:   "text-embedding-3-small",
//		AnswerModel:      "gpt-4o-mini",
//		RecognitionModel: "gpt-4o-mini",
//		EmbeddingKey:     os.Getenv("OPENAI_API_KEY"),
//		ChatKey:          os.Getenv("OPENAI_API_KEY"),
//	})
func NewQueryOpenAIClient(
	params NewQueryOpenAIClientParams,
) *QueryOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 15
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 1
	}

	return &QueryOpenAIClient{
		embeddingModel:   params.EmbeddingModel,
		answerModel:      params.AnswerModel,
		recognitionModel: params.RecognitionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		timeoutMin: timeoutMin,

		chatLock:      semaphore.NewWeighted(maxConcurrent),
		embeddingLock: semaphore.NewWeighted(maxConcurrent),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

// Metrics returns a snapshot of the accumulated model metrics.
func (c *QueryOpenAIClient) Metrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics zeroes the accumulated model metrics.
func (c *QueryOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

func (c *QueryOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
