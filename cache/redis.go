package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediaflow-hub/listing-aggregator/model"
)

const redisKeyPrefix = "listingcache:"

// RedisCache stores listing pages as JSON values with Redis-managed TTLs.
// Capacity is governed by the Redis instance's own eviction policy.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache backed by the given Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (model.FetchResult, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.FetchResult{}, false, nil
	}
	if err != nil {
		return model.FetchResult{}, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var value model.FetchResult
	if err := json.Unmarshal(data, &value); err != nil {
		return model.FetchResult{}, false, fmt.Errorf("decoding cached value for %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value model.FetchResult, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %q: %w", key, err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
