package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/triplehop/triplehop/internal/server/middleware"
	"github.com/triplehop/triplehop/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

type answerRow struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Status          string    `json:"status"`
	Answer          *string   `json:"answer,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	Entities        []string  `json:"entities,omitempty"`
	Paths           []string  `json:"paths,omitempty"`
	TripleCount     *int      `json:"triple_count,omitempty"`
	RankingDegraded *bool     `json:"ranking_degraded,omitempty"`
	Error           *string   `json:"error,omitempty"`
	RequestedBy     int64     `json:"requested_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const answerColumns = `
	id, question, status, answer, confidence, entities, paths,
	triple_count, ranking_degraded, error, requested_by, created_at, updated_at`

func scanAnswer(row pgx.Row) (*answerRow, error) {
	var a answerRow
	err := row.Scan(
		&a.ID, &a.Question, &a.Status, &a.Answer, &a.Confidence,
		&a.Entities, &a.Paths, &a.TripleCount, &a.RankingDegraded,
		&a.Error, &a.RequestedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAnswerHandler returns one answer by ID. Users only see their own
// answers; admins see everything.
func GetAnswerHandler(c echo.Context) error {
	type getAnswerParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getAnswerResponse struct {
		Message string     `json:"message"`
		Answer  *answerRow `json:"answer,omitempty"`
	}

	params := new(getAnswerParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnswerResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnswerResponse{
			Message: "Invalid request",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	row := conn.QueryRow(ctx, `
		SELECT `+answerColumns+`
		FROM answers
		WHERE id = $1`,
		params.ID,
	)
	answer, err := scanAnswer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, getAnswerResponse{
				Message: "Answer not found",
			})
		}
		logger.Error("Failed to load answer", "answer_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getAnswerResponse{
			Message: "Internal server error",
		})
	}

	if !middleware.IsAdmin(user) && answer.RequestedBy != user.UserID {
		return c.JSON(http.StatusForbidden, getAnswerResponse{
			Message: "Forbidden",
		})
	}

	return c.JSON(http.StatusOK, getAnswerResponse{
		Message: "OK",
		Answer:  answer,
	})
}

// ListAnswersHandler returns recent answers, newest first. Non-admins are
// limited to their own.
func ListAnswersHandler(c echo.Context) error {
	type listAnswersResponse struct {
		Message string       `json:"message"`
		Answers []*answerRow `json:"answers,omitempty"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	var (
		rows pgx.Rows
		err  error
	)
	if middleware.IsAdmin(user) {
		rows, err = conn.Query(ctx, `
			SELECT `+answerColumns+`
			FROM answers
			ORDER BY created_at DESC
			LIMIT 100`,
		)
	} else {
		rows, err = conn.Query(ctx, `
			SELECT `+answerColumns+`
			FROM answers
			WHERE requested_by = $1
			ORDER BY created_at DESC
			LIMIT 100`,
			user.UserID,
		)
	}
	if err != nil {
		logger.Error("Failed to list answers", "err", err)
		return c.JSON(http.StatusInternalServerError, listAnswersResponse{
			Message: "Internal server error",
		})
	}
	defer rows.Close()

	answers := make([]*answerRow, 0)
	for rows.Next() {
		answer, err := scanAnswer(rows)
		if err != nil {
			logger.Error("Failed to scan answer", "err", err)
			return c.JSON(http.StatusInternalServerError, listAnswersResponse{
				Message: "Internal server error",
			})
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Failed to list answers", "err", err)
		return c.JSON(http.StatusInternalServerError, listAnswersResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, listAnswersResponse{
		Message: "OK",
		Answers: answers,
	})
}
