package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlocklist remembers revoked tokens until they would have expired
type TokenBlocklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type tokenBlocklist struct {
	client *redis.Client
}

// NewTokenBlocklist creates a new token blocklist
func NewTokenBlocklist(client *redis.Client) TokenBlocklist {
	return &tokenBlocklist{client: client}
}

func (c *tokenBlocklist) key(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

func (c *tokenBlocklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(tokenID), 1, ttl).Err()
}

func (c *tokenBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(tokenID)).Result()
	return n > 0, err
}
