package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaflow-hub/listing-aggregator/model"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func page(cursor string) model.FetchResult {
	return model.FetchResult{
		Posts: []model.NormalizedPost{{
			PostID:    "p-" + cursor,
			Channel:   "cats",
			MediaURLs: []string{"https://img.example/" + cursor + ".jpg"},
		}},
		NextCursor: cursor,
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(4)
	ctx := context.Background()

	want := page("c1")
	require.NoError(t, c.Set(ctx, "k1", want, time.Minute))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestMemoryCacheMissingKey(t *testing.T) {
	c := NewMemoryCache(4)

	_, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiryOnGet(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(4)
	c.now = fixedClock(&now)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", page("c1"), time.Minute))

	now = now.Add(61 * time.Second)
	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as absent")
	assert.Equal(t, 0, c.Len(), "expired entry must be removed on access")
}

func TestMemoryCacheEvictsLeastRecentlyAccessed(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(3)
	c.now = fixedClock(&now)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", page("c1"), time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "k2", page("c2"), time.Hour))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "k3", page("c3"), time.Hour))

	// Touch k1 so k2 becomes the least recently accessed.
	now = now.Add(time.Second)
	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "k4", page("c4"), time.Hour))

	_, ok, _ = c.Get(ctx, "k2")
	assert.False(t, ok, "k2 had the oldest access time and must be evicted")
	for _, key := range []string{"k1", "k3", "k4"} {
		_, ok, _ := c.Get(ctx, key)
		assert.True(t, ok, "%s must survive the eviction", key)
	}
}

func TestMemoryCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", page("c1"), time.Hour))
	require.NoError(t, c.Set(ctx, "k2", page("c2"), time.Hour))
	require.NoError(t, c.Set(ctx, "k1", page("c9"), time.Hour))

	assert.Equal(t, 2, c.Len())
	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c9", got.NextCursor)
}

func TestMemoryCacheSweepRemovesExpired(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(8)
	c.now = fixedClock(&now)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", page("c1"), time.Minute))
	require.NoError(t, c.Set(ctx, "k2", page("c2"), time.Hour))

	now = now.Add(2 * time.Minute)
	removed := c.removeExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}
