package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/triplehop/triplehop/pkg/logger"
	"github.com/triplehop/triplehop/pkg/reason"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// AskJobMsg is the payload published to the ask queue for asynchronous
// question answering. AnswerID references the pending row created by the
// API server; the worker fills it in once the pipeline finishes.
type AskJobMsg struct {
	Message  string `json:"message"`
	AnswerID string `json:"answer_id"`
	Question string `json:"question"`
}

// PublishAskJob enqueues one question job.
func PublishAskJob(ch *amqp091.Channel, answerID string, question string) error {
	msg := AskJobMsg{
		Message:  "Answer question",
		AnswerID: answerID,
		Question: question,
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ask job: %w", err)
	}

	return PublishFIFO(ch, AskQueue, msgBytes)
}

// ProcessAsk handles one delivery from the ask queue: it runs the reasoning
// pipeline for the question and persists the outcome on the answer row.
// A synthesis failure is terminal for the job — the engine has already
// retried the generation call — so the partial result is stored as failed
// and no error is returned. Errors reaching the caller requeue the message.
func ProcessAsk(
	ctx context.Context,
	engine *reason.Engine,
	conn *pgxpool.Pool,
	msgBody string,
) error {
	var data AskJobMsg
	if err := json.Unmarshal([]byte(msgBody), &data); err != nil {
		return fmt.Errorf("failed to unmarshal ask job: %w", err)
	}
	if data.AnswerID == "" || data.Question == "" {
		return errors.New("ask job is missing answer_id or question")
	}

	logger.Info("[Queue] Processing ask job", "answer_id", data.AnswerID)

	if err := markAnswerProcessing(ctx, conn, data.AnswerID); err != nil {
		return fmt.Errorf("failed to mark answer processing: %w", err)
	}

	result, err := engine.Answer(ctx, data.Question)
	if err != nil {
		var synthErr *reason.SynthesisError
		if errors.As(err, &synthErr) {
			logger.Error("[Queue] Answer synthesis failed", "answer_id", data.AnswerID, "err", err)
			if dbErr := storeFailedAnswer(ctx, conn, data.AnswerID, synthErr); dbErr != nil {
				return fmt.Errorf("failed to store failed answer: %w", dbErr)
			}
			return nil
		}
		return fmt.Errorf("failed to answer question: %w", err)
	}

	if err := storeCompletedAnswer(ctx, conn, data.AnswerID, result); err != nil {
		return fmt.Errorf("failed to store answer: %w", err)
	}

	logger.Info("[Queue] Ask job completed",
		"answer_id", data.AnswerID, "confidence", result.Confidence)
	return nil
}

func markAnswerProcessing(ctx context.Context, conn *pgxpool.Pool, answerID string) error {
	_, err := conn.Exec(ctx, `
		UPDATE answers
		SET status = 'processing', updated_at = now()
		WHERE id = $1`,
		answerID,
	)
	return err
}

func storeCompletedAnswer(ctx context.Context, conn *pgxpool.Pool, answerID string, result *reason.Result) error {
	_, err := conn.Exec(ctx, `
		UPDATE answers
		SET status = 'completed',
		    answer = $2,
		    confidence = $3,
		    entities = $4,
		    paths = $5,
		    triple_count = $6,
		    ranking_degraded = $7,
		    updated_at = now()
		WHERE id = $1`,
		answerID,
		result.Answer,
		result.Confidence,
		result.Entities,
		result.Paths,
		result.TripleCount,
		result.RankingDegraded,
	)
	return err
}

func storeFailedAnswer(ctx context.Context, conn *pgxpool.Pool, answerID string, synthErr *reason.SynthesisError) error {
	partial := synthErr.Partial
	_, err := conn.Exec(ctx, `
		UPDATE answers
		SET status = 'failed',
		    error = $2,
		    confidence = 0,
		    entities = $3,
		    paths = $4,
		    triple_count = $5,
		    ranking_degraded = $6,
		    updated_at = now()
		WHERE id = $1`,
		answerID,
		synthErr.Error(),
		partial.Entities,
		partial.Paths,
		partial.TripleCount,
		partial.RankingDegraded,
	)
	return err
}
