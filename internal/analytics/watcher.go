package analytics

import (
	"context"

	"formpulse/internal/model"
)

// ResponseFetcher lists every stored response of a survey.
type ResponseFetcher interface {
	ListResponses(ctx context.Context, surveyID string) ([]model.ResponseRecord, error)
}

// Watcher keeps a response list current. Notifications only say that
// something changed; the list is always re-fetched.
type Watcher struct {
	surveyID string
	fetcher  ResponseFetcher
	onUpdate func([]model.ResponseRecord)
	onError  func(error)
}

// NewWatcher creates a watcher delivering fresh lists to onUpdate. Fetch
// failures go to onError when set and are otherwise dropped.
func NewWatcher(surveyID string, fetcher ResponseFetcher, onUpdate func([]model.ResponseRecord), onError func(error)) *Watcher {
	return &Watcher{surveyID: surveyID, fetcher: fetcher, onUpdate: onUpdate, onError: onError}
}

// Refresh fetches once and delivers the result.
func (w *Watcher) Refresh(ctx context.Context) error {
	list, err := w.fetcher.ListResponses(ctx, w.surveyID)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return err
	}
	w.onUpdate(list)
	return nil
}

// Run fetches once, then again for every notification, until ctx is done
// or notifications is closed.
func (w *Watcher) Run(ctx context.Context, notifications <-chan struct{}) error {
	_ = w.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-notifications:
			if !ok {
				return nil
			}
			_ = w.Refresh(ctx)
		}
	}
}
