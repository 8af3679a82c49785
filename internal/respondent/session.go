// Package respondent drives one respondent through a published survey:
// load, answer, validate, submit.
package respondent

import (
	"context"
	"errors"
	"sync"
	"time"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

// RedirectSeconds is the length of the login redirect countdown.
const RedirectSeconds = 5

// State of a respondent session
type State string

const (
	StateLoading      State = "loading"
	StateNotFound     State = "not_found"
	StateExpired      State = "expired"
	StateAuthRequired State = "auth_required"
	StateReady        State = "ready"
	StateSubmitting   State = "submitting"
	StateSubmitted    State = "submitted"
)

// Terminal reports whether no respondent action can leave the state.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateNotFound || s == StateExpired
}

// SurveyLoader fetches the respondent view of a published survey.
type SurveyLoader interface {
	GetPublicSurvey(ctx context.Context, id string) (*model.Survey, error)
}

// ResponseSubmitter stores one completed answer set.
type ResponseSubmitter interface {
	SubmitResponse(ctx context.Context, req model.SubmitRequest) (*model.ResponseRecord, error)
}

// Option configures a Session.
type Option func(*Session)

// WithAuthenticated tells the session whether the respondent holds a login
// credential. Surveys that require auth send anonymous respondents to login.
func WithAuthenticated(v bool) Option {
	return func(s *Session) { s.authenticated = v }
}

// WithCountdown overrides the redirect countdown length and tick interval.
func WithCountdown(seconds int, tick time.Duration) Option {
	return func(s *Session) {
		s.redirectSeconds = seconds
		s.tick = tick
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the state machine for filling out one survey.
type Session struct {
	surveyID        string
	loader          SurveyLoader
	submitter       ResponseSubmitter
	authenticated   bool
	redirectSeconds int
	tick            time.Duration
	now             func() time.Time

	mu        sync.Mutex
	state     State
	survey    *model.Survey
	expiredAt *time.Time
	// redirectURL is where an expired survey sends respondents, if set.
	redirectURL string
	answers     map[string]any
	lastErr     error
	record      *model.ResponseRecord
	stop        chan struct{}
}

// New creates a session in the loading state.
func New(surveyID string, loader SurveyLoader, submitter ResponseSubmitter, opts ...Option) *Session {
	s := &Session{
		surveyID:        surveyID,
		loader:          loader,
		submitter:       submitter,
		redirectSeconds: RedirectSeconds,
		tick:            time.Second,
		now:             time.Now,
		state:           StateLoading,
		answers:         make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Survey is the loaded definition, nil until ready.
func (s *Session) Survey() *model.Survey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.survey
}

// ExpiredAt is the expiry carried by an expired signal, if any.
func (s *Session) ExpiredAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredAt
}

// ExpiredRedirectURL is where an expired survey asks respondents to go;
// empty unless the survey redirects on expiry.
func (s *Session) ExpiredRedirectURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirectURL
}

// Err is the last surfaced error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Record is the stored response after a successful submit.
func (s *Session) Record() *model.ResponseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Load fetches the survey and moves to ready, auth_required, expired or
// not_found. The classifying error is returned for anything but ready.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting || s.state == StateSubmitted {
		s.mu.Unlock()
		return apperr.ErrInvalidState
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.state = StateLoading
	s.survey = nil
	s.expiredAt = nil
	s.redirectURL = ""
	s.lastErr = nil
	s.answers = make(map[string]any)
	s.mu.Unlock()

	survey, err := s.loader.GetPublicSurvey(ctx, s.surveyID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		var expired *apperr.ExpiredError
		switch {
		case errors.Is(err, apperr.ErrAuthRequired):
			s.state = StateAuthRequired
		case errors.As(err, &expired):
			s.state = StateExpired
			s.expiredAt = expired.ExpiresAt
			s.redirectURL = expired.RedirectURL
		default:
			s.state = StateNotFound
		}
		s.lastErr = err
		return err
	}

	switch {
	case survey.Expired(s.now()):
		s.state = StateExpired
		s.expiredAt = survey.ExpiresAt
		s.redirectURL = survey.ExpiredRedirectURL()
		s.lastErr = &apperr.ExpiredError{ExpiresAt: survey.ExpiresAt, RedirectURL: s.redirectURL}
		return s.lastErr
	case survey.RequireAuth && !s.authenticated:
		s.state = StateAuthRequired
		s.lastErr = apperr.ErrAuthRequired
		return s.lastErr
	}
	s.survey = survey
	s.state = StateReady
	return nil
}

// RecordAnswer stores value for questionID, replacing any earlier value.
func (s *Session) RecordAnswer(questionID string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return apperr.ErrInvalidState
	}
	if _, ok := s.survey.QuestionByID(questionID); !ok {
		return apperr.Validation("questionId", "unknown question "+questionID)
	}
	s.answers[questionID] = value
	return nil
}

// Answers returns a copy of the collected answers.
func (s *Session) Answers() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Progress counts questions with a non-empty answer.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.survey == nil {
		return 0, 0
	}
	for _, q := range s.survey.Questions {
		if !model.IsAnswerableEmpty(q.Kind, s.answers[q.ID]) {
			answered++
		}
	}
	return answered, len(s.survey.Questions)
}

// MissingRequired lists required questions still without an answer.
func (s *Session) MissingRequired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Session) missingLocked() []string {
	if s.survey == nil {
		return nil
	}
	var missing []string
	for _, q := range s.survey.Questions {
		if q.Required && model.IsAnswerableEmpty(q.Kind, s.answers[q.ID]) {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Submit validates required answers and sends the whole answer set once.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
	case StateSubmitting:
		s.mu.Unlock()
		return apperr.ErrSubmitInProgress
	default:
		s.mu.Unlock()
		return apperr.ErrInvalidState
	}
	if missing := s.missingLocked(); len(missing) > 0 {
		err := &apperr.ValidationError{
			Field:   "answers",
			Message: "please fill in all required questions",
			Missing: missing,
		}
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	req := model.SubmitRequest{SurveyID: s.surveyID, Answers: []model.Answer{}}
	for _, q := range s.survey.Questions {
		if v, ok := s.answers[q.ID]; ok && v != nil {
			req.Answers = append(req.Answers, model.Answer{QuestionID: q.ID, Value: v})
		}
	}
	s.state = StateSubmitting
	s.lastErr = nil
	s.mu.Unlock()

	record, err := s.submitter.SubmitResponse(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		s.lastErr = apperr.Wrap("submit response", err)
		return s.lastErr
	}
	s.record = record
	s.state = StateSubmitted
	return nil
}

// LoginRedirectPath is where an anonymous respondent is sent, with a
// return path back to this survey.
func (s *Session) LoginRedirectPath() string {
	return "/auth/login?redirect=/survey/" + s.surveyID
}

// StartRedirectCountdown ticks down from the configured seconds while the
// session is auth_required and then calls onRedirect with the login path.
// Close or a reload cancels it.
func (s *Session) StartRedirectCountdown(onTick func(remaining int), onRedirect func(path string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthRequired {
		return apperr.ErrInvalidState
	}
	if s.stop != nil {
		return nil
	}
	stop := make(chan struct{})
	s.stop = stop
	path := s.LoginRedirectPath()
	seconds, interval := s.redirectSeconds, s.tick

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for remaining := seconds; remaining > 0; {
			select {
			case <-stop:
				return
			case <-ticker.C:
				remaining--
				if onTick != nil {
					onTick(remaining)
				}
			}
		}
		select {
		case <-stop:
			return
		default:
			onRedirect(path)
		}
		s.mu.Lock()
		if s.stop == stop {
			s.stop = nil
		}
		s.mu.Unlock()
	}()
	return nil
}

// ExpiresIn is the time left at now before the survey closes; zero when it
// has no expiration or already expired.
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.survey == nil || s.survey.ExpiresAt == nil {
		return 0
	}
	if d := s.survey.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Close cancels the redirect countdown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}
