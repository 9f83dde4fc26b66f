package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/model"
)

type entry struct {
	value          model.FetchResult
	insertedAt     time.Time
	expiresAt      time.Time
	accessCount    int64
	lastAccessedAt time.Time
}

// MemoryCache is an in-process TTL cache bounded to maxEntries. When full,
// inserting a new key evicts the entry with the oldest access time.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates an empty cache holding at most maxEntries values.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Get implements Cache. An expired entry is removed and reported absent.
func (c *MemoryCache) Get(_ context.Context, key string) (model.FetchResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return model.FetchResult{}, false, nil
	}
	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		return model.FetchResult{}, false, nil
	}
	e.accessCount++
	e.lastAccessedAt = now
	return e.value, true, nil
}

// Set implements Cache. Inserting a new key at capacity evicts the
// least-recently accessed entry first.
func (c *MemoryCache) Set(_ context.Context, key string, value model.FetchResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &entry{
		value:          value,
		insertedAt:     now,
		expiresAt:      now.Add(ttl),
		lastAccessedAt: now,
	}
	return nil
}

// evictOldest removes the entry with the oldest lastAccessedAt.
// Caller must hold the lock.
func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccessedAt.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// StartSweep launches a background goroutine that removes expired entries
// every interval, independent of access.
func (c *MemoryCache) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed := c.removeExpired()
				if removed > 0 {
					log.Debug().Int("removed", removed).Msg("Cache sweep removed expired entries")
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep, if one is running.
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *MemoryCache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the current number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
