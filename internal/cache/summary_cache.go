package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"formpulse/internal/analytics"
)

// SummaryCache keeps computed chart summaries between submissions
type SummaryCache interface {
	// Get returns nil when nothing is cached for this revision of the survey.
	Get(ctx context.Context, surveyID string, revision time.Time) (*analytics.Summary, error)
	Set(ctx context.Context, surveyID string, revision time.Time, summary *analytics.Summary) error
	Invalidate(ctx context.Context, surveyID string) error
}

type summaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedSummary struct {
	Revision int64              `json:"revision"`
	Summary  *analytics.Summary `json:"summary"`
}

// NewSummaryCache creates a new summary cache
func NewSummaryCache(client *redis.Client) SummaryCache {
	return &summaryCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *summaryCache) key(surveyID string) string {
	return fmt.Sprintf("survey:%s:summary", surveyID)
}

func (c *summaryCache) Get(ctx context.Context, surveyID string, revision time.Time) (*analytics.Summary, error) {
	data, err := c.client.Get(ctx, c.key(surveyID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cachedSummary
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	// Edited surveys may have different questions.
	if entry.Revision != revision.UnixNano() {
		return nil, nil
	}
	return entry.Summary, nil
}

func (c *summaryCache) Set(ctx context.Context, surveyID string, revision time.Time, summary *analytics.Summary) error {
	data, err := json.Marshal(cachedSummary{Revision: revision.UnixNano(), Summary: summary})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(surveyID), data, c.ttl).Err()
}

func (c *summaryCache) Invalidate(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, c.key(surveyID)).Err()
}
