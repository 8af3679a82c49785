package model

import "time"

// Answer is one respondent input. Value's shape depends on the question
// kind: string, list of strings, number or a structured object.
type Answer struct {
	QuestionID string `json:"questionId" bson:"questionId"`
	Value      any    `json:"answer" bson:"answer"`
}

// ResponseRecord is one completed submission
type ResponseRecord struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	SurveyID    string    `json:"surveyId" bson:"surveyId"`
	Answers     []Answer  `json:"answers" bson:"answers"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
	IP          string    `json:"ip,omitempty" bson:"ip,omitempty"`
	UserID      string    `json:"userId,omitempty" bson:"userId,omitempty"`
}

// AnswerFor returns the answer given to questionID, if any.
func (r *ResponseRecord) AnswerFor(questionID string) (Answer, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// SubmitRequest is the body of POST /responses.
type SubmitRequest struct {
	SurveyID string   `json:"surveyId" validate:"required"`
	Answers  []Answer `json:"answers" validate:"dive"`
}
