package data

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCallbackGuard suppresses duplicate provider callbacks with a
// SET NX key per (task, status) pair. It is a fast-path optimization in
// front of the database idempotency guarantees, never a correctness
// dependency: callers treat guard errors as "first seen".
type RedisCallbackGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCallbackGuard creates a guard with the given dedupe window.
func NewRedisCallbackGuard(client redis.UniversalClient, ttl time.Duration) *RedisCallbackGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCallbackGuard{client: client, ttl: ttl}
}

// FirstSeen returns true the first time a (task, status) pair is observed
// within the guard window.
func (g *RedisCallbackGuard) FirstSeen(ctx context.Context, taskID, status string) (bool, error) {
	key := fmt.Sprintf("cb:%s:%s", taskID, status)
	ok, err := g.client.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("callback guard setnx: %w", err)
	}
	return ok, nil
}

// NoopCallbackGuard reports every callback as first seen. It is used when
// Redis is not configured.
type NoopCallbackGuard struct{}

// FirstSeen always returns true.
func (NoopCallbackGuard) FirstSeen(context.Context, string, string) (bool, error) {
	return true, nil
}
