package middleware

import (
	"github.com/triplehop/triplehop/internal/util"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/triplehop/triplehop/pkg/ai"
	oai "github.com/triplehop/triplehop/pkg/ai/ollama"
	gai "github.com/triplehop/triplehop/pkg/ai/openai"
	gstore "github.com/triplehop/triplehop/pkg/graphstore/pgx"
	"github.com/triplehop/triplehop/pkg/logger"
	"github.com/triplehop/triplehop/pkg/reason"
)

type AppUser struct {
	UserID int64
	Role   string
}

type App struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            keyfunc.Keyfunc
	AIClient       ai.QueryAIClient
	Engine         *reason.Engine
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// NewAIClient builds the query AI client from AI_* environment variables.
// AI_ADAPTER selects the backend; anything other than "ollama" means an
// OpenAI-compatible API.
func NewAIClient() ai.QueryAIClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewQueryOllamaClient(oai.NewQueryOllamaClientParams{
			EmbeddingModel:   util.GetEnv("AI_EMBED_MODEL"),
			AnswerModel:      util.GetEnv("AI_CHAT_ANSWER_MODEL"),
			RecognitionModel: util.GetEnv("AI_CHAT_RECOGNIZE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewQueryOpenAIClient(gai.NewQueryOpenAIClientParams{
			EmbeddingModel:   util.GetEnv("AI_EMBED_MODEL"),
			AnswerModel:      util.GetEnv("AI_CHAT_ANSWER_MODEL"),
			RecognitionModel: util.GetEnv("AI_CHAT_RECOGNIZE_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
	}
}

// ReasonConfigFromEnv overlays REASON_* environment variables on the default
// reasoning limits.
func ReasonConfigFromEnv() reason.Config {
	cfg := reason.DefaultConfig()
	cfg.MaxHops = int(util.GetEnvNumeric("REASON_MAX_HOPS", float64(cfg.MaxHops)))
	cfg.MaxPathsPerEntity = int(util.GetEnvNumeric("REASON_MAX_PATHS", float64(cfg.MaxPathsPerEntity)))
	cfg.MaxContextTriples = int(util.GetEnvNumeric("REASON_MAX_TRIPLES", float64(cfg.MaxContextTriples)))
	cfg.MinPathSimilarity = util.GetEnvNumeric("REASON_MIN_SIMILARITY", cfg.MinPathSimilarity)
	cfg.LengthPenalty = util.GetEnvNumeric("REASON_LENGTH_PENALTY", cfg.LengthPenalty)
	cfg.DiscoveryWorkers = int(util.GetEnvNumeric("REASON_DISCOVERY_WORKERS", float64(cfg.DiscoveryWorkers)))
	cfg.EmbedWorkers = int(util.GetEnvNumeric("REASON_EMBED_WORKERS", float64(cfg.EmbedWorkers)))
	cfg.ContextTokenBudget = int(util.GetEnvNumeric("REASON_TOKEN_BUDGET", float64(cfg.ContextTokenBudget)))
	return cfg
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	key keyfunc.Keyfunc,
	masterAPIKey string,
	masterUserID int64,
	masterUserRole string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			aiClient := NewAIClient()

			engine, err := reason.NewEngine(reason.NewEngineParams{
				Store:    gstore.NewGraphDBStore(db),
				AIClient: aiClient,
				Config:   ReasonConfigFromEnv(),
			})
			if err != nil {
				logger.Fatal("Failed to create reasoning engine", "err", err)
			}

			app := &App{
				DBConn:         db,
				Queue:          queue,
				Key:            key,
				AIClient:       aiClient,
				Engine:         engine,
				MasterAPIKey:   masterAPIKey,
				MasterUserID:   masterUserID,
				MasterUserRole: masterUserRole,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
