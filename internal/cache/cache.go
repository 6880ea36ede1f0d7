package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Invalidator drops cached read models after a mutating transaction.
// The cache is best-effort: callers log invalidation failures and move on.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Key layout shared with the read path.
func ProfileKey(userID string) string   { return fmt.Sprintf("profile:%s", userID) }
func FollowersKey(userID string) string { return fmt.Sprintf("followers:%s", userID) }
func FollowingKey(userID string) string { return fmt.Sprintf("following:%s", userID) }

type redisInvalidator struct {
	client *redis.Client
}

func NewRedisInvalidator(client *redis.Client) Invalidator {
	return &redisInvalidator{client: client}
}

func (r *redisInvalidator) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
