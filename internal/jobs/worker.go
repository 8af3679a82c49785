package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"formpulse/internal/logger"
)

// SurveyCloser deactivates a survey once it has expired
type SurveyCloser interface {
	CloseExpired(ctx context.Context, surveyID string) error
}

// HandleCloseSurveyTask returns the handler for TypeCloseSurvey tasks.
func HandleCloseSurveyTask(closer SurveyCloser) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CloseSurveyPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.WithError(err).Error("close survey task: bad payload")
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := closer.CloseExpired(ctx, payload.SurveyID); err != nil {
			logger.WithField("survey", payload.SurveyID).WithError(err).Error("close expired survey")
			return err
		}
		return nil
	}
}

// NewServeMux registers every task handler.
func NewServeMux(closer SurveyCloser) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCloseSurvey, HandleCloseSurveyTask(closer))
	return mux
}

// NewServer builds the worker server processing the default queue.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		Logger:      logger.Logger,
	})
}
