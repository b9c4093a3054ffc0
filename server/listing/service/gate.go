package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionGate is consulted before any submission work starts. The
// identifier is the submitting account id.
type SubmissionGate interface {
	CheckAndConsume(ctx context.Context, identifier string) (allowed bool, remaining int, resetAt time.Time, err error)
}

// RedisGate implements a fixed-window quota on redis: INCR the window
// counter, set the expiry on the first hit, deny once the counter passes
// the limit.
type RedisGate struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisGate(client *redis.Client, limit int, window time.Duration) *RedisGate {
	return &RedisGate{client: client, limit: limit, window: window}
}

func (g *RedisGate) CheckAndConsume(ctx context.Context, identifier string) (bool, int, time.Time, error) {
	key := "gate:listing_submit:" + identifier
	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if count == 1 {
		if err := g.client.Expire(ctx, key, g.window).Err(); err != nil {
			return false, 0, time.Time{}, err
		}
	}
	ttl, err := g.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if ttl < 0 {
		ttl = g.window
	}
	resetAt := time.Now().Add(ttl)
	remaining := g.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= g.limit, remaining, resetAt, nil
}
