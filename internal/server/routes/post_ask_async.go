package routes

import (
	"net/http"

	"github.com/triplehop/triplehop/internal/queue"
	"github.com/triplehop/triplehop/internal/server/middleware"
	"github.com/triplehop/triplehop/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AskAsyncHandler accepts a question, stores a pending answer row and hands
// the job to the worker over the ask queue.
func AskAsyncHandler(c echo.Context) error {
	type askAsyncRequest struct {
		Question string `json:"question" validate:"required,min=3"`
	}

	type askAsyncResponse struct {
		Message  string `json:"message"`
		AnswerID string `json:"answer_id,omitempty"`
		Status   string `json:"status,omitempty"`
	}

	data := new(askAsyncRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, askAsyncResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, askAsyncResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	answerID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, askAsyncResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	_, err = conn.Exec(ctx, `
		INSERT INTO answers (id, question, status, requested_by)
		VALUES ($1, $2, 'pending', $3)`,
		answerID, data.Question, user.UserID,
	)
	if err != nil {
		logger.Error("Failed to create answer row", "err", err)
		return c.JSON(http.StatusInternalServerError, askAsyncResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishAskJob(ch, answerID, data.Question); err != nil {
		logger.Error("Failed to publish ask job", "answer_id", answerID, "err", err)
		return c.JSON(http.StatusInternalServerError, askAsyncResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, askAsyncResponse{
		Message:  "Question accepted",
		AnswerID: answerID,
		Status:   "pending",
	})
}
