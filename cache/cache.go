// Package cache memoizes upstream listing responses. The in-memory
// backend bounds itself with TTL expiry plus LRU eviction; the Redis and
// Dapr backends delegate expiry to the store so cached pages survive
// process restarts. Callers cannot tell the backends apart.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediaflow-hub/listing-aggregator/config"
	"github.com/mediaflow-hub/listing-aggregator/model"
)

// Cache stores listing pages under deterministic keys for a bounded time.
type Cache interface {
	// Get returns the cached value for key, or ok=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (model.FetchResult, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value model.FetchResult, ttl time.Duration) error
}

// New selects a cache backend from configuration. The Redis client may be
// nil unless the Redis backend is selected.
func New(cfg *config.Config, redisClient *redis.Client) (Cache, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryCache(cfg.CacheMaxEntries), nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend selected but no redis client provided")
		}
		return NewRedisCache(redisClient), nil
	case config.BackendDapr:
		return NewDaprCache(cfg.DaprStateStore)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.StoreBackend)
	}
}
