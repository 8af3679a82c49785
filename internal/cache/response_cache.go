package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ResponseCounter keeps a running response count per survey
type ResponseCounter interface {
	Incr(ctx context.Context, surveyID string) (int64, error)
	// Get reports ok=false when the counter is not cached.
	Get(ctx context.Context, surveyID string) (n int64, ok bool, err error)
	Set(ctx context.Context, surveyID string, n int64) error
	Delete(ctx context.Context, surveyID string) error
}

type responseCounter struct {
	client *redis.Client
}

// NewResponseCounter creates a new response counter
func NewResponseCounter(client *redis.Client) ResponseCounter {
	return &responseCounter{client: client}
}

func (c *responseCounter) key(surveyID string) string {
	return fmt.Sprintf("survey:%s:responses", surveyID)
}

func (c *responseCounter) Incr(ctx context.Context, surveyID string) (int64, error) {
	return c.client.Incr(ctx, c.key(surveyID)).Result()
}

func (c *responseCounter) Get(ctx context.Context, surveyID string) (int64, bool, error) {
	n, err := c.client.Get(ctx, c.key(surveyID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *responseCounter) Set(ctx context.Context, surveyID string, n int64) error {
	return c.client.Set(ctx, c.key(surveyID), n, 0).Err()
}

func (c *responseCounter) Delete(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, c.key(surveyID)).Err()
}
