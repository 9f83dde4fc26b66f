// Package fetch answers "give me page N of channel C". The fetcher checks
// the response cache first, then the rate limiter, and only then pays for
// an upstream call whose normalized result is cached for later callers.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/cache"
	"github.com/mediaflow-hub/listing-aggregator/client"
	"github.com/mediaflow-hub/listing-aggregator/model"
	"github.com/mediaflow-hub/listing-aggregator/normalize"
	"github.com/mediaflow-hub/listing-aggregator/ratelimit"
)

// Fetcher retrieves one page of one channel's listing on behalf of a
// caller identity.
type Fetcher interface {
	Fetch(ctx context.Context, identity string, query model.SourceQuery) (model.FetchResult, error)
}

// ChannelFetcher composes the cache, rate limiter, upstream client, and
// normalizer into the per-channel fetch path.
type ChannelFetcher struct {
	client   client.ListingClient
	cache    cache.Cache
	limiter  ratelimit.Limiter
	limitCfg ratelimit.Config
	cacheTTL time.Duration
}

// New creates a ChannelFetcher. limitCfg budgets upstream-bound listing
// calls; cache hits consume none of it.
func New(listingClient client.ListingClient, responseCache cache.Cache, limiter ratelimit.Limiter, limitCfg ratelimit.Config, cacheTTL time.Duration) *ChannelFetcher {
	return &ChannelFetcher{
		client:   listingClient,
		cache:    responseCache,
		limiter:  limiter,
		limitCfg: limitCfg,
		cacheTTL: cacheTTL,
	}
}

// Fetch implements Fetcher. A cache hit returns immediately without
// touching the rate limiter. On a miss the limiter is consulted before
// any network call; an exhausted window fails with RateLimitedError.
func (f *ChannelFetcher) Fetch(ctx context.Context, identity string, query model.SourceQuery) (model.FetchResult, error) {
	key := query.CacheKey()

	cached, hit, err := f.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to an upstream fetch.
		log.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
	} else if hit {
		log.Debug().Str("key", key).Msg("Cache hit for listing page")
		return cached, nil
	}

	rl, err := f.limiter.Check(ctx, identity, f.limitCfg)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !rl.Allowed {
		return model.FetchResult{}, &model.RateLimitedError{ResetAt: rl.ResetAt, Remaining: rl.Remaining}
	}

	// If the caller abandons the aggregation mid-flight the upstream call
	// has already been paid for, so let it finish and populate the cache
	// for later callers.
	upctx := context.WithoutCancel(ctx)

	listing, err := f.client.FetchListing(upctx, query)
	if err != nil {
		return model.FetchResult{}, err
	}

	posts := make([]model.NormalizedPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if post, ok := normalize.Normalize(child.Data); ok {
			posts = append(posts, post)
		}
	}

	result := model.FetchResult{Posts: posts, NextCursor: listing.Data.After}
	if err := f.cache.Set(upctx, key, result, f.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Caching listing page failed")
	}
	return result, nil
}
