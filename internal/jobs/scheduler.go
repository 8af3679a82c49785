package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"formpulse/internal/logger"
)

const queueName = "default"

// Scheduler enqueues survey close tasks for the expiration time
type Scheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewScheduler connects to the asynq redis
func NewScheduler(opt asynq.RedisConnOpt) *Scheduler {
	return &Scheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

// ScheduleClose replaces any pending close task of the survey with one
// running at at.
func (s *Scheduler) ScheduleClose(ctx context.Context, surveyID string, at time.Time) error {
	if err := s.CancelClose(ctx, surveyID); err != nil {
		return err
	}
	task, err := NewCloseSurveyTask(surveyID)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.TaskID(closeTaskID(surveyID)),
		asynq.Queue(queueName),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}
	logger.Infof("close task scheduled for survey %s at %s", surveyID, at.Format(time.RFC3339))
	return nil
}

// CancelClose drops the pending close task, if any.
func (s *Scheduler) CancelClose(_ context.Context, surveyID string) error {
	err := s.inspector.DeleteTask(queueName, closeTaskID(surveyID))
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		return err
	}
	return nil
}

// Close releases the redis connections.
func (s *Scheduler) Close() error {
	return errors.Join(s.client.Close(), s.inspector.Close())
}
