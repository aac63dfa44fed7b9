package routes

import (
	"errors"
	"net/http"

	"github.com/triplehop/triplehop/internal/server/middleware"
	"github.com/triplehop/triplehop/pkg/ai"
	"github.com/triplehop/triplehop/pkg/logger"
	"github.com/triplehop/triplehop/pkg/reason"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// AskHandler answers a question synchronously over the knowledge graph.
func AskHandler(c echo.Context) error {
	type askRequest struct {
		Question string `json:"question" validate:"required,min=3"`
	}

	type askResponse struct {
		Message         string           `json:"message"`
		Answer          string           `json:"answer,omitempty"`
		Confidence      float64          `json:"confidence"`
		Entities        []string         `json:"entities,omitempty"`
		Paths           []string         `json:"paths,omitempty"`
		TripleCount     int              `json:"triple_count"`
		RankingDegraded bool             `json:"ranking_degraded,omitempty"`
		Metrics         *ai.ModelMetrics `json:"metrics,omitempty"`
	}

	data := new(askRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, askResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, askResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	result, err := app.Engine.Answer(ctx, data.Question)
	if err != nil {
		var synthErr *reason.SynthesisError
		if errors.As(err, &synthErr) {
			logger.Error("[Ask] Answer synthesis failed", "err", err)
			partial := synthErr.Partial
			return c.JSON(http.StatusBadGateway, askResponse{
				Message:         "Answer generation failed",
				Confidence:      0,
				Entities:        partial.Entities,
				Paths:           partial.Paths,
				TripleCount:     partial.TripleCount,
				RankingDegraded: partial.RankingDegraded,
			})
		}
		logger.Error("[Ask] Failed to answer question", "err", err)
		return c.JSON(http.StatusInternalServerError, askResponse{
			Message: "Internal server error",
		})
	}

	metrics := app.AIClient.Metrics()
	return c.JSON(http.StatusOK, askResponse{
		Message:         "Question answered",
		Answer:          result.Answer,
		Confidence:      result.Confidence,
		Entities:        result.Entities,
		Paths:           result.Paths,
		TripleCount:     result.TripleCount,
		RankingDegraded: result.RankingDegraded,
		Metrics:         &metrics,
	})
}
