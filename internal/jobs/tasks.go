package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TypeCloseSurvey = "survey:close"

type CloseSurveyPayload struct {
	SurveyID string `json:"survey_id"`
}

func NewCloseSurveyTask(surveyID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CloseSurveyPayload{SurveyID: surveyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCloseSurvey, payload), nil
}

func closeTaskID(surveyID string) string {
	return "close-survey-" + surveyID
}
