package model

import "time"

// ExpirationAction decides what respondents see once a survey has expired.
type ExpirationAction string

const (
	ExpirationShowMessage ExpirationAction = "show_message"
	ExpirationRedirect    ExpirationAction = "redirect"
)

const DefaultExpirationMessage = "This survey is no longer accepting responses."

// ISOTimeLayout matches the millisecond ISO-8601 form browsers produce.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Survey is the persisted survey owned by a creator
type Survey struct {
	ID                string           `json:"id" bson:"_id,omitempty"`
	OwnerID           string           `json:"ownerId" bson:"ownerId"`
	Title             string           `json:"title" bson:"title"`
	Description       string           `json:"description" bson:"description"`
	Questions         []Question       `json:"questions" bson:"questions"`
	Theme             *Theme           `json:"theme,omitempty" bson:"theme,omitempty"`
	RequireAuth       bool             `json:"requireAuth" bson:"requireAuth"`
	Active            bool             `json:"active" bson:"active"`
	PreventDuplicates bool             `json:"preventDuplicates" bson:"preventDuplicates"`
	ExpiresAt         *time.Time       `json:"expiresAt" bson:"expiresAt,omitempty"`
	ExpirationAction  ExpirationAction `json:"expirationAction,omitempty" bson:"expirationAction,omitempty"`
	ExpirationMessage string           `json:"expirationMessage,omitempty" bson:"expirationMessage,omitempty"`
	RedirectURL       string           `json:"redirectUrl,omitempty" bson:"redirectUrl,omitempty"`
	CreatedAt         time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt" bson:"updatedAt"`

	// Derived, never stored
	ResponseCount int64 `json:"responseCount" bson:"-"`
	IsExpired     bool  `json:"isExpired" bson:"-"`
}

// Expired reports whether the survey stopped accepting responses at now.
func (s *Survey) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// QuestionByID finds a question by its stable identifier.
func (s *Survey) QuestionByID(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ExpiredRedirectURL is where respondents go once the survey has expired,
// empty unless the expiration action is redirect.
func (s *Survey) ExpiredRedirectURL() string {
	if s.ExpirationAction != ExpirationRedirect {
		return ""
	}
	return s.RedirectURL
}

// SurveyDraft is the in-memory document an author edits.
type SurveyDraft struct {
	ID                string
	Title             string
	Description       string
	Questions         []Question
	Theme             *Theme
	RequireAuth       bool
	ExpiresAt         *time.Time
	Active            bool
	PreventDuplicates bool
	ExpirationAction  ExpirationAction
	ExpirationMessage string
	RedirectURL       string
}

// EffectiveTheme returns the draft theme or the default preset.
func (d SurveyDraft) EffectiveTheme() Theme {
	if d.Theme != nil {
		return *d.Theme
	}
	return DefaultTheme()
}

// NewSurveyDraft returns a draft with every field at its default.
func NewSurveyDraft() SurveyDraft {
	return SurveyDraft{
		Questions:         []Question{},
		Active:            true,
		ExpirationAction:  ExpirationShowMessage,
		ExpirationMessage: DefaultExpirationMessage,
	}
}

// SavePayload is the body of POST /surveys and PUT /surveys/{id}.
type SavePayload struct {
	Title             string           `json:"title" validate:"required"`
	Description       string           `json:"description"`
	Questions         []Question       `json:"questions" validate:"dive"`
	Theme             Theme            `json:"theme"`
	RequireAuth       bool             `json:"requireAuth"`
	Active            bool             `json:"active"`
	ExpirationDate    *string          `json:"expirationDate"`
	PreventDuplicates bool             `json:"preventDuplicates"`
	ExpirationAction  ExpirationAction `json:"expirationAction,omitempty" validate:"omitempty,oneof=show_message redirect"`
	ExpirationMessage string           `json:"expirationMessage,omitempty"`
	RedirectURL       string           `json:"redirectUrl,omitempty" validate:"omitempty,url"`
}

// ExpiresAt parses ExpirationDate.
func (p *SavePayload) ExpiresAt() (*time.Time, error) {
	if p.ExpirationDate == nil || *p.ExpirationDate == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *p.ExpirationDate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
