package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaflow-hub/listing-aggregator/cache"
	"github.com/mediaflow-hub/listing-aggregator/client"
	"github.com/mediaflow-hub/listing-aggregator/model"
	"github.com/mediaflow-hub/listing-aggregator/ratelimit"
)

// fakeListingClient returns a canned listing and counts upstream calls.
type fakeListingClient struct {
	listing client.RawListing
	err     error
	calls   int
}

func (f *fakeListingClient) FetchListing(_ context.Context, _ model.SourceQuery) (client.RawListing, error) {
	f.calls++
	if f.err != nil {
		return client.RawListing{}, f.err
	}
	return f.listing, nil
}

func listingWith(after string, posts ...client.RawPost) client.RawListing {
	var listing client.RawListing
	listing.Data.After = after
	for _, p := range posts {
		listing.Data.Children = append(listing.Data.Children, struct {
			Kind string         `json:"kind"`
			Data client.RawPost `json:"data"`
		}{Kind: "t3", Data: p})
	}
	return listing
}

func imagePost(id string) client.RawPost {
	return client.RawPost{
		ID:                  id,
		Channel:             "cats",
		URLOverriddenByDest: "https://img.example/" + id + ".jpg",
	}
}

func newFetcher(c *fakeListingClient, limit int) *ChannelFetcher {
	return New(c, cache.NewMemoryCache(16), ratelimit.NewMemoryLimiter(),
		ratelimit.Config{MaxRequests: limit, Window: time.Hour}, time.Minute)
}

func TestFetchNormalizesAndDropsMedialess(t *testing.T) {
	upstream := &fakeListingClient{listing: listingWith("next-1",
		imagePost("p1"),
		client.RawPost{ID: "text-only", Channel: "cats"},
		imagePost("p2"),
	)}
	f := newFetcher(upstream, 10)

	res, err := f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortHot, PageSize: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, "next-1", res.NextCursor)
	require.Len(t, res.Posts, 2, "the medialess post must be dropped")
	assert.Equal(t, "p1", res.Posts[0].PostID)
	assert.Equal(t, "p2", res.Posts[1].PostID)
}

func TestFetchServesRepeatFromCache(t *testing.T) {
	upstream := &fakeListingClient{listing: listingWith("", imagePost("p1"))}
	f := newFetcher(upstream, 10)
	query := model.SourceQuery{Channel: "cats", Sort: model.SortHot, PageSize: 25}

	first, err := f.Fetch(context.Background(), "tester", query)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), "tester", query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls, "the second call must be cache-served")
}

func TestFetchCacheHitConsumesNoRateBudget(t *testing.T) {
	upstream := &fakeListingClient{listing: listingWith("", imagePost("p1"))}
	f := newFetcher(upstream, 1)
	query := model.SourceQuery{Channel: "cats", Sort: model.SortHot, PageSize: 25}

	_, err := f.Fetch(context.Background(), "tester", query)
	require.NoError(t, err)

	// The budget is spent, but the cached page keeps serving.
	for i := 0; i < 5; i++ {
		_, err := f.Fetch(context.Background(), "tester", query)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, upstream.calls)
}

func TestFetchRateLimitedBeforeNetwork(t *testing.T) {
	upstream := &fakeListingClient{listing: listingWith("", imagePost("p1"))}
	f := newFetcher(upstream, 1)

	_, err := f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortHot, PageSize: 25,
	})
	require.NoError(t, err)

	// Different cursor: cache miss, but the window is exhausted.
	_, err = f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortHot, Cursor: "page-2", PageSize: 25,
	})
	var rlErr *model.RateLimitedError
	require.ErrorAs(t, err, &rlErr)
	assert.False(t, rlErr.ResetAt.IsZero())
	assert.Equal(t, 1, upstream.calls, "a rate-limited fetch must not reach the network")
}

func TestFetchPropagatesUpstreamError(t *testing.T) {
	upstream := &fakeListingClient{err: &model.UpstreamError{Status: 503}}
	f := newFetcher(upstream, 10)

	_, err := f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortHot, PageSize: 25,
	})
	var upErr *model.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 503, upErr.Status)
}

func TestFetchDistinctQueriesUseDistinctCacheKeys(t *testing.T) {
	upstream := &fakeListingClient{listing: listingWith("", imagePost("p1"))}
	f := newFetcher(upstream, 10)

	_, err := f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortHot, PageSize: 25,
	})
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), "tester", model.SourceQuery{
		Channel: "cats", Sort: model.SortTop, Window: model.WindowDay, PageSize: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}
