package service

import (
	"context"
	"time"

	"formpulse/internal/model"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, eventType model.EventType, payload interface{})
	DisconnectSurvey(surveyID string)
}

// ExpiryScheduler arranges for a survey to be closed at its expiration
type ExpiryScheduler interface {
	ScheduleClose(ctx context.Context, surveyID string, at time.Time) error
	CancelClose(ctx context.Context, surveyID string) error
}
