package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"formpulse/internal/analytics"
	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

type memSurveyRepo struct {
	mu      sync.Mutex
	seq     int
	surveys map[string]*model.Survey
}

func newMemSurveyRepo() *memSurveyRepo {
	return &memSurveyRepo{surveys: make(map[string]*model.Survey)}
}

func (r *memSurveyRepo) Create(_ context.Context, survey *model.Survey) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if survey.ID == "" {
		r.seq++
		survey.ID = fmt.Sprintf("s%d", r.seq)
	}
	survey.CreatedAt = time.Now().UTC()
	survey.UpdatedAt = survey.CreatedAt
	cp := *survey
	r.surveys[survey.ID] = &cp
	return survey.ID, nil
}

func (r *memSurveyRepo) GetByID(_ context.Context, id string) (*model.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSurveyRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.Survey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Survey{}
	for _, s := range r.surveys {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memSurveyRepo) Update(_ context.Context, survey *model.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveys[survey.ID]; !ok {
		return apperr.ErrNotFound
	}
	survey.UpdatedAt = time.Now().UTC()
	cp := *survey
	r.surveys[survey.ID] = &cp
	return nil
}

func (r *memSurveyRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.surveys[id]; ok {
		s.Active = active
	}
	return nil
}

func (r *memSurveyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surveys, id)
	return nil
}

type memResponseRepo struct {
	mu      sync.Mutex
	seq     int
	records []model.ResponseRecord
}

func (r *memResponseRepo) Create(_ context.Context, rec *model.ResponseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec.ID = fmt.Sprintf("r%d", r.seq)
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	r.records = append(r.records, *rec)
	return nil
}

func (r *memResponseRepo) ListBySurvey(_ context.Context, surveyID string) ([]model.ResponseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ResponseRecord{}
	for _, rec := range r.records {
		if rec.SurveyID == surveyID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memResponseRepo) CountBySurvey(ctx context.Context, surveyID string) (int64, error) {
	recs, _ := r.ListBySurvey(ctx, surveyID)
	return int64(len(recs)), nil
}

func (r *memResponseRepo) ExistsForRespondent(_ context.Context, surveyID, ip, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.SurveyID != surveyID {
			continue
		}
		if userID != "" && rec.UserID == userID {
			return true, nil
		}
		if userID == "" && rec.IP == ip {
			return true, nil
		}
	}
	return false, nil
}

func (r *memResponseRepo) DeleteBySurvey(_ context.Context, surveyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.SurveyID != surveyID {
			kept = append(kept, rec)
		}
	}
	r.records = kept
	return nil
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[string]int64)}
}

func (c *memCounter) Incr(_ context.Context, surveyID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[surveyID]++
	return c.counts[surveyID], nil
}

func (c *memCounter) Get(_ context.Context, surveyID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[surveyID]
	return n, ok, nil
}

func (c *memCounter) Set(_ context.Context, surveyID string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[surveyID] = n
	return nil
}

func (c *memCounter) Delete(_ context.Context, surveyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, surveyID)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = fmt.Sprintf("u%d", len(r.users)+1)
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type memBlocklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemBlocklist() *memBlocklist {
	return &memBlocklist{revoked: make(map[string]time.Duration)}
}

func (b *memBlocklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[tokenID] = ttl
	return nil
}

func (b *memBlocklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[tokenID]
	return ok, nil
}

type sentEvent struct {
	SurveyID string
	Type     model.EventType
	Payload  interface{}
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	events       []sentEvent
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToSurvey(surveyID string, eventType model.EventType, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{SurveyID: surveyID, Type: eventType, Payload: payload})
}

func (b *recordingBroadcaster) DisconnectSurvey(surveyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, surveyID)
}

type recordingScheduler struct {
	scheduled map[string]time.Time
	cancelled []string
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[string]time.Time)}
}

func (s *recordingScheduler) ScheduleClose(_ context.Context, id string, at time.Time) error {
	s.scheduled[id] = at
	return nil
}

func (s *recordingScheduler) CancelClose(_ context.Context, id string) error {
	delete(s.scheduled, id)
	s.cancelled = append(s.cancelled, id)
	return nil
}

type memSummaryCache struct {
	entries map[string]*analytics.Summary
	hits    int
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{entries: make(map[string]*analytics.Summary)}
}

func (c *memSummaryCache) key(surveyID string, revision time.Time) string {
	return fmt.Sprintf("%s@%d", surveyID, revision.UnixNano())
}

func (c *memSummaryCache) Get(_ context.Context, surveyID string, revision time.Time) (*analytics.Summary, error) {
	s, ok := c.entries[c.key(surveyID, revision)]
	if ok {
		c.hits++
	}
	return s, nil
}

func (c *memSummaryCache) Set(_ context.Context, surveyID string, revision time.Time, summary *analytics.Summary) error {
	c.entries[c.key(surveyID, revision)] = summary
	return nil
}

func (c *memSummaryCache) Invalidate(_ context.Context, surveyID string) error {
	for k := range c.entries {
		if len(k) > len(surveyID) && k[:len(surveyID)+1] == surveyID+"@" {
			delete(c.entries, k)
		}
	}
	return nil
}
