package respondent

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formpulse/internal/apperr"
	"formpulse/internal/model"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetPublicSurvey(ctx context.Context, id string) (*model.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Survey), args.Error(1)
}

func (m *mockBackend) SubmitResponse(ctx context.Context, req model.SubmitRequest) (*model.ResponseRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResponseRecord), args.Error(1)
}

func yesNoSurvey(required bool) *model.Survey {
	return &model.Survey{
		ID:     "s1",
		Title:  "Lunch",
		Active: true,
		Questions: []model.Question{
			{ID: "q1", Kind: model.KindSingleChoice, Prompt: "Hungry?", Options: []string{"Yes", "No"}, Required: required},
		},
	}
}

func loaded(t *testing.T, survey *model.Survey, opts ...Option) (*Session, *mockBackend) {
	t.Helper()
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, survey.ID).Return(survey, nil).Once()
	s := New(survey.ID, backend, backend, opts...)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, StateReady, s.State())
	return s, backend
}

func TestLoadClassifiesFailures(t *testing.T) {
	expiredAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		err  error
		want State
	}{
		{"gone", apperr.FromStatus("get", http.StatusGone, []byte(`{"error":"expired","expiresAt":"2024-01-01T00:00:00Z"}`)), StateExpired},
		{"unauthorized", apperr.FromStatus("get", http.StatusUnauthorized, nil), StateAuthRequired},
		{"missing", apperr.FromStatus("get", http.StatusNotFound, nil), StateNotFound},
		{"network", errors.New("connection refused"), StateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			backend.On("GetPublicSurvey", mock.Anything, "s1").Return(nil, tt.err)
			s := New("s1", backend, backend)

			err := s.Load(context.Background())

			assert.Error(t, err)
			assert.Equal(t, tt.want, s.State())
			if tt.want == StateExpired {
				require.NotNil(t, s.ExpiredAt())
				assert.True(t, expiredAt.Equal(*s.ExpiredAt()))
			}
		})
	}
}

func TestLoadRequireAuthWithoutCredential(t *testing.T) {
	survey := yesNoSurvey(false)
	survey.RequireAuth = true
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s1").Return(survey, nil)

	anon := New("s1", backend, backend)
	assert.ErrorIs(t, anon.Load(context.Background()), apperr.ErrAuthRequired)
	assert.Equal(t, StateAuthRequired, anon.State())

	member := New("s1", backend, backend, WithAuthenticated(true))
	assert.NoError(t, member.Load(context.Background()))
	assert.Equal(t, StateReady, member.State())
}

func TestLoadPastExpiry(t *testing.T) {
	survey := yesNoSurvey(false)
	past := time.Now().Add(-time.Hour)
	survey.ExpiresAt = &past
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s1").Return(survey, nil)

	s := New("s1", backend, backend)
	var expired *apperr.ExpiredError
	assert.ErrorAs(t, s.Load(context.Background()), &expired)
	assert.Equal(t, StateExpired, s.State())
}

func TestExpiredRedirectURL(t *testing.T) {
	t.Run("from the server", func(t *testing.T) {
		gone := apperr.FromStatus("get", http.StatusGone,
			[]byte(`{"error":"expired","expiresAt":"2024-01-01T00:00:00Z","redirectUrl":"https://example.com/next"}`))
		backend := &mockBackend{}
		backend.On("GetPublicSurvey", mock.Anything, "s1").Return(nil, gone)
		s := New("s1", backend, backend)

		require.Error(t, s.Load(context.Background()))
		assert.Equal(t, StateExpired, s.State())
		assert.Equal(t, "https://example.com/next", s.ExpiredRedirectURL())
	})

	t.Run("past local expiry", func(t *testing.T) {
		survey := yesNoSurvey(false)
		past := time.Now().Add(-time.Hour)
		survey.ExpiresAt = &past
		survey.ExpirationAction = model.ExpirationRedirect
		survey.RedirectURL = "https://example.com/next"
		backend := &mockBackend{}
		backend.On("GetPublicSurvey", mock.Anything, "s1").Return(survey, nil)
		s := New("s1", backend, backend)

		var expired *apperr.ExpiredError
		require.ErrorAs(t, s.Load(context.Background()), &expired)
		assert.Equal(t, "https://example.com/next", expired.RedirectURL)
		assert.Equal(t, "https://example.com/next", s.ExpiredRedirectURL())
	})

	t.Run("cleared on reload", func(t *testing.T) {
		gone := apperr.FromStatus("get", http.StatusGone, []byte(`{"redirectUrl":"https://example.com/next"}`))
		backend := &mockBackend{}
		backend.On("GetPublicSurvey", mock.Anything, "s1").Return(nil, gone).Once()
		backend.On("GetPublicSurvey", mock.Anything, "s1").Return(yesNoSurvey(false), nil).Once()
		s := New("s1", backend, backend)

		require.Error(t, s.Load(context.Background()))
		require.NoError(t, s.Load(context.Background()))
		assert.Empty(t, s.ExpiredRedirectURL())
	})
}

func TestSubmitBlocksMissingRequired(t *testing.T) {
	survey := &model.Survey{
		ID: "s1",
		Questions: []model.Question{
			{ID: "q1", Kind: model.KindShortText, Prompt: "Name", Required: true},
		},
	}
	s, backend := loaded(t, survey)

	err := s.Submit(context.Background())

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"q1"}, ve.Missing)
	assert.Equal(t, StateReady, s.State())
	backend.AssertNotCalled(t, "SubmitResponse", mock.Anything, mock.Anything)

	require.NoError(t, s.RecordAnswer("q1", "   "))
	assert.Error(t, s.Submit(context.Background()))
}

func TestSubmitSendsOrderedAnswers(t *testing.T) {
	s, backend := loaded(t, yesNoSurvey(true))
	want := model.SubmitRequest{
		SurveyID: "s1",
		Answers:  []model.Answer{{QuestionID: "q1", Value: "Yes"}},
	}
	backend.On("SubmitResponse", mock.Anything, want).Return(&model.ResponseRecord{ID: "r1", SurveyID: "s1"}, nil).Once()

	require.NoError(t, s.RecordAnswer("q1", "No"))
	require.NoError(t, s.RecordAnswer("q1", "Yes"))
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, StateSubmitted, s.State())
	assert.Equal(t, "r1", s.Record().ID)
	assert.ErrorIs(t, s.Submit(context.Background()), apperr.ErrInvalidState)
	assert.ErrorIs(t, s.RecordAnswer("q1", "No"), apperr.ErrInvalidState)
	backend.AssertExpectations(t)
}

func TestSubmitFailureReturnsToReady(t *testing.T) {
	s, backend := loaded(t, yesNoSurvey(false))
	backend.On("SubmitResponse", mock.Anything, mock.Anything).
		Return(nil, apperr.FromStatus("submit", http.StatusConflict, []byte(`{"message":"already responded"}`))).Once()

	require.NoError(t, s.RecordAnswer("q1", "Yes"))
	err := s.Submit(context.Background())

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, err, s.Err())
	assert.Equal(t, map[string]any{"q1": "Yes"}, s.Answers())
}

func TestSubmitSingleInFlight(t *testing.T) {
	s, backend := loaded(t, yesNoSurvey(false))
	entered := make(chan struct{})
	release := make(chan struct{})
	backend.On("SubmitResponse", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&model.ResponseRecord{ID: "r1"}, nil).Once()

	done := make(chan error)
	go func() { done <- s.Submit(context.Background()) }()
	<-entered

	assert.Equal(t, StateSubmitting, s.State())
	assert.ErrorIs(t, s.Submit(context.Background()), apperr.ErrSubmitInProgress)

	close(release)
	assert.NoError(t, <-done)
	backend.AssertNumberOfCalls(t, "SubmitResponse", 1)
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	s, _ := loaded(t, yesNoSurvey(false))
	var ve *apperr.ValidationError
	assert.ErrorAs(t, s.RecordAnswer("nope", "x"), &ve)
}

func TestProgress(t *testing.T) {
	survey := &model.Survey{
		ID: "s1",
		Questions: []model.Question{
			{ID: "a", Kind: model.KindShortText, Prompt: "A"},
			{ID: "b", Kind: model.KindMultiChoice, Prompt: "B", Options: []string{"x", "y"}},
			{ID: "c", Kind: model.KindRating, Prompt: "C"},
		},
	}
	s, _ := loaded(t, survey)

	require.NoError(t, s.RecordAnswer("a", "hello"))
	require.NoError(t, s.RecordAnswer("b", []string{}))
	answered, total := s.Progress()
	assert.Equal(t, 1, answered)
	assert.Equal(t, 3, total)

	require.NoError(t, s.RecordAnswer("c", 4))
	answered, _ = s.Progress()
	assert.Equal(t, 2, answered)
}

func TestRedirectCountdown(t *testing.T) {
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s9").Return(nil, apperr.FromStatus("get", http.StatusUnauthorized, nil))
	s := New("s9", backend, backend, WithCountdown(3, time.Millisecond))
	_ = s.Load(context.Background())

	ticks := make(chan int, 3)
	redirected := make(chan string, 1)
	require.NoError(t, s.StartRedirectCountdown(
		func(n int) { ticks <- n },
		func(path string) { redirected <- path },
	))

	select {
	case path := <-redirected:
		assert.Equal(t, "/auth/login?redirect=/survey/s9", path)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never redirected")
	}
	assert.Equal(t, []int{2, 1, 0}, []int{<-ticks, <-ticks, <-ticks})
}

func TestRedirectCountdownCancelledByClose(t *testing.T) {
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s9").Return(nil, apperr.FromStatus("get", http.StatusUnauthorized, nil))
	s := New("s9", backend, backend, WithCountdown(5, 20*time.Millisecond))
	_ = s.Load(context.Background())

	redirected := make(chan string, 1)
	require.NoError(t, s.StartRedirectCountdown(nil, func(path string) { redirected <- path }))
	s.Close()

	select {
	case <-redirected:
		t.Fatal("redirect fired after Close")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReloadIntoReadyCancelsCountdown(t *testing.T) {
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s1").Return(nil, apperr.ErrAuthRequired).Once()
	backend.On("GetPublicSurvey", mock.Anything, "s1").Return(yesNoSurvey(false), nil).Once()
	s := New("s1", backend, backend, WithCountdown(5, 20*time.Millisecond))
	require.ErrorIs(t, s.Load(context.Background()), apperr.ErrAuthRequired)

	redirected := make(chan string, 1)
	require.NoError(t, s.StartRedirectCountdown(nil, func(path string) { redirected <- path }))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateReady, s.State())

	select {
	case <-redirected:
		t.Fatal("redirect fired after the survey became ready")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRedirectCountdownRestartsAfterFinishing(t *testing.T) {
	backend := &mockBackend{}
	backend.On("GetPublicSurvey", mock.Anything, "s1").Return(nil, apperr.ErrAuthRequired)
	s := New("s1", backend, backend, WithCountdown(1, time.Millisecond))
	_ = s.Load(context.Background())

	redirected := make(chan string, 2)
	onRedirect := func(path string) { redirected <- path }
	awaitRedirect := func() {
		t.Helper()
		select {
		case <-redirected:
		case <-time.After(2 * time.Second):
			t.Fatal("countdown never redirected")
		}
	}

	require.NoError(t, s.StartRedirectCountdown(nil, onRedirect))
	awaitRedirect()
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stop == nil
	}, time.Second, time.Millisecond)

	require.NoError(t, s.StartRedirectCountdown(nil, onRedirect))
	awaitRedirect()

	// A reload back into auth_required allows another run as well.
	_ = s.Load(context.Background())
	require.Equal(t, StateAuthRequired, s.State())
	require.NoError(t, s.StartRedirectCountdown(nil, onRedirect))
	awaitRedirect()
}

func TestRedirectCountdownOnlyWhenAuthRequired(t *testing.T) {
	s, _ := loaded(t, yesNoSurvey(false))
	assert.ErrorIs(t, s.StartRedirectCountdown(nil, func(string) {}), apperr.ErrInvalidState)
}

func TestExpiresIn(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	survey := yesNoSurvey(false)
	at := now.Add(90 * time.Minute)
	survey.ExpiresAt = &at

	s, _ := loaded(t, survey, WithClock(func() time.Time { return now }))
	assert.Equal(t, 90*time.Minute, s.ExpiresIn(now))
	assert.Zero(t, s.ExpiresIn(at.Add(time.Second)))
}
