package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"formpulse/internal/apperr"
	"formpulse/internal/cache"
	"formpulse/internal/logger"
	"formpulse/internal/metrics"
	"formpulse/internal/model"
	"formpulse/internal/repository"
)

// SurveyService handles survey CRUD and the public respondent view
type SurveyService struct {
	surveyRepo   repository.SurveyRepo
	responseRepo repository.ResponseRepo
	counter      cache.ResponseCounter
	scheduler    ExpiryScheduler
	broadcaster  Broadcaster
	now          func() time.Time
}

// NewSurveyService creates a new survey service
func NewSurveyService(surveyRepo repository.SurveyRepo, responseRepo repository.ResponseRepo, counter cache.ResponseCounter) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		counter:      counter,
		now:          time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SurveyService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetScheduler sets the expiry job scheduler
func (s *SurveyService) SetScheduler(sch ExpiryScheduler) {
	s.scheduler = sch
}

// Create stores a new survey owned by ownerID
func (s *SurveyService) Create(ctx context.Context, ownerID string, p model.SavePayload) (*model.Survey, error) {
	survey, err := surveyFromPayload(p)
	if err != nil {
		return nil, err
	}
	survey.OwnerID = ownerID

	if _, err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("create survey: %w", err)
	}
	s.scheduleExpiry(ctx, survey)
	return s.decorate(ctx, survey), nil
}

// Update replaces the editable fields of an owned survey
func (s *SurveyService) Update(ctx context.Context, ownerID, id string, p model.SavePayload) (*model.Survey, error) {
	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	survey, err := surveyFromPayload(p)
	if err != nil {
		return nil, err
	}
	survey.ID = existing.ID
	survey.OwnerID = existing.OwnerID
	survey.CreatedAt = existing.CreatedAt

	if err := s.surveyRepo.Update(ctx, survey); err != nil {
		return nil, fmt.Errorf("update survey: %w", err)
	}
	s.scheduleExpiry(ctx, survey)
	return s.decorate(ctx, survey), nil
}

// Get returns an owned survey
func (s *SurveyService) Get(ctx context.Context, ownerID, id string) (*model.Survey, error) {
	survey, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, survey), nil
}

// List returns the owner's surveys, most recently edited first
func (s *SurveyService) List(ctx context.Context, ownerID string) ([]*model.Survey, error) {
	surveys, err := s.surveyRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	for _, survey := range surveys {
		s.decorate(ctx, survey)
	}
	return surveys, nil
}

// Delete removes an owned survey with its responses
func (s *SurveyService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.surveyRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	if err := s.responseRepo.DeleteBySurvey(ctx, id); err != nil {
		logger.Warnf("delete responses of survey %s: %v", id, err)
	}
	if s.counter != nil {
		if err := s.counter.Delete(ctx, id); err != nil {
			logger.Warnf("drop response counter of survey %s: %v", id, err)
		}
	}
	if s.scheduler != nil {
		if err := s.scheduler.CancelClose(ctx, id); err != nil {
			logger.Warnf("cancel expiry job of survey %s: %v", id, err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSurvey(id)
	}
	return nil
}

// GetPublic returns the respondent view of a survey. Missing or unpublished
// surveys are not found, expired ones carry their expiration and surveys
// that require auth reject anonymous callers.
func (s *SurveyService) GetPublic(ctx context.Context, id string, authenticated bool) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	if survey == nil {
		return nil, apperr.ErrNotFound
	}
	if survey.Expired(s.now()) {
		return nil, &apperr.ExpiredError{
			ExpiresAt:   survey.ExpiresAt,
			Message:     survey.ExpirationMessage,
			RedirectURL: survey.ExpiredRedirectURL(),
		}
	}
	if !survey.Active {
		return nil, apperr.ErrNotFound
	}
	if survey.RequireAuth && !authenticated {
		return nil, apperr.ErrAuthRequired
	}

	public := *survey
	public.OwnerID = ""
	return &public, nil
}

// CloseExpired deactivates a survey whose expiration has passed and tells
// subscribers. Surveys that were deleted or re-dated are left alone.
func (s *SurveyService) CloseExpired(ctx context.Context, id string) error {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get survey: %w", err)
	}
	if survey == nil || !survey.Expired(s.now()) {
		return nil
	}
	if survey.Active {
		if err := s.surveyRepo.SetActive(ctx, id, false); err != nil {
			return fmt.Errorf("deactivate survey: %w", err)
		}
	}
	metrics.IncSurveyClosed()
	logger.Infof("survey %s closed at expiration", id)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSurvey(id, model.EventSurveyClosed, map[string]interface{}{
			"expiresAt": survey.ExpiresAt,
		})
	}
	return nil
}

func (s *SurveyService) owned(ctx context.Context, ownerID, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	if survey == nil {
		return nil, apperr.ErrNotFound
	}
	if survey.OwnerID != ownerID {
		return nil, apperr.ErrForbidden
	}
	return survey, nil
}

// decorate fills the derived fields.
func (s *SurveyService) decorate(ctx context.Context, survey *model.Survey) *model.Survey {
	survey.IsExpired = survey.Expired(s.now())
	survey.ResponseCount = s.responseCount(ctx, survey.ID)
	return survey
}

// responseCount prefers the cached counter and seeds it from the database
// on a miss.
func (s *SurveyService) responseCount(ctx context.Context, id string) int64 {
	if s.counter != nil {
		n, ok, err := s.counter.Get(ctx, id)
		if err == nil && ok {
			return n
		}
		if err != nil {
			logger.Warnf("read response counter of survey %s: %v", id, err)
		}
	}
	n, err := s.responseRepo.CountBySurvey(ctx, id)
	if err != nil {
		logger.Warnf("count responses of survey %s: %v", id, err)
		return 0
	}
	if s.counter != nil {
		if err := s.counter.Set(ctx, id, n); err != nil {
			logger.Warnf("seed response counter of survey %s: %v", id, err)
		}
	}
	return n
}

func (s *SurveyService) scheduleExpiry(ctx context.Context, survey *model.Survey) {
	if s.scheduler == nil {
		return
	}
	var err error
	if survey.ExpiresAt != nil && survey.ExpiresAt.After(s.now()) {
		err = s.scheduler.ScheduleClose(ctx, survey.ID, *survey.ExpiresAt)
	} else {
		err = s.scheduler.CancelClose(ctx, survey.ID)
	}
	if err != nil {
		logger.Warnf("schedule expiry of survey %s: %v", survey.ID, err)
	}
}

// surveyFromPayload validates a save payload and builds the stored survey.
// Questions without an ID, or repeating an earlier one, get a fresh ID.
func surveyFromPayload(p model.SavePayload) (*model.Survey, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, apperr.Validation("title", "survey title is required")
	}
	expiresAt, err := p.ExpiresAt()
	if err != nil {
		return nil, apperr.Validation("expirationDate", "expiration date must be an ISO-8601 timestamp")
	}
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	questions := make([]model.Question, 0, len(p.Questions))
	seen := make(map[string]bool, len(p.Questions))
	for i, q := range p.Questions {
		if !q.Kind.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("questions[%d].kind", i), "unknown question kind "+string(q.Kind))
		}
		if q.ID == "" || seen[q.ID] {
			q.ID = uuid.NewString()
		}
		seen[q.ID] = true
		q.Normalize()
		questions = append(questions, q)
	}

	theme := p.Theme
	if theme.Name == "" && theme.Primary == "" {
		theme = model.DefaultTheme()
	}
	action := p.ExpirationAction
	if action == "" {
		action = model.ExpirationShowMessage
	}
	message := p.ExpirationMessage
	if message == "" {
		message = model.DefaultExpirationMessage
	}

	return &model.Survey{
		Title:             strings.TrimSpace(p.Title),
		Description:       p.Description,
		Questions:         questions,
		Theme:             &theme,
		RequireAuth:       p.RequireAuth,
		Active:            p.Active,
		PreventDuplicates: p.PreventDuplicates,
		ExpiresAt:         expiresAt,
		ExpirationAction:  action,
		ExpirationMessage: message,
		RedirectURL:       p.RedirectURL,
	}, nil
}
