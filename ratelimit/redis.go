package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter implements fixed-window counting on a shared Redis store.
// INCR is atomic, so concurrent checks across processes cannot lose
// updates the way a separate read-then-write would.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, identity string, cfg Config) (Result, error) {
	key := redisKeyPrefix + identity

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Only the first increment of a window sets the expiry.
	pipe.ExpireNX(ctx, key, cfg.Window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis rate limit check for %q: %w", identity, err)
	}

	count := int(incr.Val())
	resetAt := time.Now().Add(ttl.Val())

	if count > cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: cfg.MaxRequests - count, ResetAt: resetAt}, nil
}
