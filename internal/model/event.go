package model

import "encoding/json"

// EventType names a live-update message on a survey channel.
type EventType string

const (
	EventNewResponse  EventType = "new_response"
	EventSurveyClosed EventType = "survey_closed"
)

// LiveEvent is the envelope pushed to survey subscribers. Payload is
// informational only; subscribers re-fetch state.
type LiveEvent struct {
	Type     EventType       `json:"type"`
	SurveyID string          `json:"surveyId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
