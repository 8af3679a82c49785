package service

import (
	"context"
	"fmt"

	"formpulse/internal/analytics"
	"formpulse/internal/apperr"
	"formpulse/internal/cache"
	"formpulse/internal/logger"
	"formpulse/internal/metrics"
	"formpulse/internal/model"
	"formpulse/internal/repository"
)

// ResponseService accepts submissions and serves them back to owners
type ResponseService struct {
	surveys      *SurveyService
	responseRepo repository.ResponseRepo
	counter      cache.ResponseCounter
	summaries    cache.SummaryCache
	broadcaster  Broadcaster
}

// NewResponseService creates a new response service
func NewResponseService(surveys *SurveyService, responseRepo repository.ResponseRepo, counter cache.ResponseCounter) *ResponseService {
	return &ResponseService{
		surveys:      surveys,
		responseRepo: responseRepo,
		counter:      counter,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetSummaryCache enables caching of chart summaries
func (s *ResponseService) SetSummaryCache(c cache.SummaryCache) {
	s.summaries = c
}

// Respondent identifies who is submitting
type Respondent struct {
	IP     string
	UserID string
}

// Submit validates a submission against the open survey and stores it
func (s *ResponseService) Submit(ctx context.Context, req model.SubmitRequest, who Respondent) (*model.ResponseRecord, error) {
	if req.SurveyID == "" {
		return nil, apperr.Validation("surveyId", "survey id is required")
	}
	survey, err := s.surveys.GetPublic(ctx, req.SurveyID, who.UserID != "")
	if err != nil {
		return nil, err
	}

	answers, err := checkAnswers(survey, req.Answers)
	if err != nil {
		return nil, err
	}

	if survey.PreventDuplicates {
		dup, err := s.responseRepo.ExistsForRespondent(ctx, survey.ID, who.IP, who.UserID)
		if err != nil {
			return nil, fmt.Errorf("check duplicate response: %w", err)
		}
		if dup {
			return nil, fmt.Errorf("already responded to this survey: %w", apperr.ErrConflict)
		}
	}

	rec := &model.ResponseRecord{
		SurveyID: survey.ID,
		Answers:  answers,
		IP:       who.IP,
		UserID:   who.UserID,
	}
	if err := s.responseRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	metrics.IncResponseSubmitted()

	s.bumpCounter(ctx, survey.ID)
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx, survey.ID); err != nil {
			logger.Warnf("invalidate summary of survey %s: %v", survey.ID, err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSurvey(survey.ID, model.EventNewResponse, map[string]interface{}{
			"responseId": rec.ID,
		})
	}
	return rec, nil
}

// List returns every response of an owned survey
func (s *ResponseService) List(ctx context.Context, ownerID, surveyID string) ([]model.ResponseRecord, error) {
	if _, err := s.surveys.owned(ctx, ownerID, surveyID); err != nil {
		return nil, err
	}
	records, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return records, nil
}

// Export renders the responses of an owned survey as CSV
func (s *ResponseService) Export(ctx context.Context, ownerID, surveyID string) (filename, csv string, err error) {
	survey, err := s.surveys.owned(ctx, ownerID, surveyID)
	if err != nil {
		return "", "", err
	}
	records, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return "", "", fmt.Errorf("list responses: %w", err)
	}
	csv, err = analytics.ExportCSV(survey.Questions, records)
	if err != nil {
		return "", "", err
	}
	return analytics.ExportFilename(survey.Title), csv, nil
}

// Summary aggregates the responses of an owned survey for charts
func (s *ResponseService) Summary(ctx context.Context, ownerID, surveyID string) (*analytics.Summary, error) {
	survey, err := s.surveys.owned(ctx, ownerID, surveyID)
	if err != nil {
		return nil, err
	}
	if s.summaries != nil {
		cached, err := s.summaries.Get(ctx, surveyID, survey.UpdatedAt)
		if err != nil {
			logger.Warnf("read summary cache of survey %s: %v", surveyID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	records, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	summary := analytics.Summarize(survey.Questions, records)

	if s.summaries != nil {
		if err := s.summaries.Set(ctx, surveyID, survey.UpdatedAt, &summary); err != nil {
			logger.Warnf("cache summary of survey %s: %v", surveyID, err)
		}
	}
	return &summary, nil
}

// checkAnswers rejects answers to unknown questions and reports unanswered
// required questions. The accepted answers are returned in question order.
func checkAnswers(survey *model.Survey, answers []model.Answer) ([]model.Answer, error) {
	byID := make(map[string]any, len(answers))
	for _, a := range answers {
		if _, ok := survey.QuestionByID(a.QuestionID); !ok {
			return nil, apperr.Validation("answers", "unknown question "+a.QuestionID)
		}
		byID[a.QuestionID] = a.Value
	}

	var missing []string
	ordered := make([]model.Answer, 0, len(byID))
	for _, q := range survey.Questions {
		v, ok := byID[q.ID]
		if q.Required && model.IsAnswerableEmpty(q.Kind, v) {
			missing = append(missing, q.ID)
		}
		if ok {
			ordered = append(ordered, model.Answer{QuestionID: q.ID, Value: v})
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.ValidationError{
			Field:   "answers",
			Message: "please fill in all required questions",
			Missing: missing,
		}
	}
	return ordered, nil
}

// bumpCounter increments the cached response count. A result of 1 means the
// key was missing, so the count is reseeded from the database in case the
// cache lost it after earlier submissions.
func (s *ResponseService) bumpCounter(ctx context.Context, surveyID string) {
	if s.counter == nil {
		return
	}
	n, err := s.counter.Incr(ctx, surveyID)
	if err != nil {
		logger.Warnf("increment response counter of survey %s: %v", surveyID, err)
		return
	}
	if n != 1 {
		return
	}
	stored, err := s.responseRepo.CountBySurvey(ctx, surveyID)
	if err != nil {
		logger.Warnf("count responses of survey %s: %v", surveyID, err)
		return
	}
	if stored != n {
		if err := s.counter.Set(ctx, surveyID, stored); err != nil {
			logger.Warnf("seed response counter of survey %s: %v", surveyID, err)
		}
	}
}
