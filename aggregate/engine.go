// Package aggregate fans one page request out across multiple channels,
// tolerates per-channel failure without losing pagination progress, and
// merges the per-channel results into a single fair-ordered stream.
package aggregate

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/fetch"
	"github.com/mediaflow-hub/listing-aggregator/model"
)

// Status classifies the outcome of one aggregation round.
type Status string

const (
	StatusSettled         Status = "settled"
	StatusPartiallyFailed Status = "partially_failed"
)

// Cursor tracks one channel's pagination position. Done means the channel
// reported no further pages; a zero Cursor means the first page has not
// been requested yet.
type Cursor struct {
	Value string `json:"value,omitempty"`
	Done  bool   `json:"done,omitempty"`
}

// CursorSet maps channel names to their cursors for one logical session.
type CursorSet map[string]Cursor

// ChannelFailure records a channel that contributed nothing this round.
type ChannelFailure struct {
	Channel string
	Err     error
}

// PageRequest asks for the next page across a set of channels. Channel
// order is significant: it fixes the interleaving order.
type PageRequest struct {
	Channels []string
	Sort     model.SortMode
	Window   model.TimeWindow
	Cursors  CursorSet
	PageSize int
	Identity string
}

// PageResult is one merged page. Cursors holds the updated cursor for
// every requested channel; failed channels keep their previous cursor so
// the next request safely retries the same page.
type PageResult struct {
	Posts      []model.NormalizedPost
	Cursors    CursorSet
	AnyHasMore bool
	Status     Status
	Failures   []ChannelFailure
}

// Engine coordinates per-channel fetches for page requests.
type Engine struct {
	fetcher fetch.Fetcher
}

// New creates an engine on top of the given fetcher.
func New(fetcher fetch.Fetcher) *Engine {
	return &Engine{fetcher: fetcher}
}

// FetchPage issues one fetch per requested channel concurrently and waits
// for all of them to settle; one channel's failure never cancels the
// others. It fails with AggregateError only when every attempted channel
// failed.
func (e *Engine) FetchPage(ctx context.Context, req PageRequest) (PageResult, error) {
	type outcome struct {
		posts  []model.NormalizedPost
		cursor Cursor
		err    error
		// skipped channels were already exhausted and never attempted
		skipped bool
	}

	outcomes := make([]outcome, len(req.Channels))
	var wg sync.WaitGroup

	for i, channel := range req.Channels {
		prev := req.Cursors[channel]
		if prev.Done {
			outcomes[i] = outcome{cursor: prev, skipped: true}
			continue
		}

		wg.Add(1)
		go func(i int, channel string, prev Cursor) {
			defer wg.Done()

			query := model.SourceQuery{
				Channel:  channel,
				Sort:     req.Sort,
				Window:   req.Window,
				Cursor:   prev.Value,
				PageSize: req.PageSize,
			}
			res, err := e.fetcher.Fetch(ctx, req.Identity, query)
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Channel fetch failed, cursor retained")
				outcomes[i] = outcome{cursor: prev, err: err}
				return
			}

			next := Cursor{Value: res.NextCursor}
			if res.NextCursor == "" {
				next = Cursor{Done: true}
			}
			outcomes[i] = outcome{posts: res.Posts, cursor: next}
		}(i, channel, prev)
	}
	wg.Wait()

	result := PageResult{
		Cursors: make(CursorSet, len(req.Channels)),
		Status:  StatusSettled,
	}
	perChannel := make([][]model.NormalizedPost, 0, len(req.Channels))
	failures := make(map[string]error)
	attempted := 0

	for i, channel := range req.Channels {
		out := outcomes[i]
		result.Cursors[channel] = out.cursor
		if out.skipped {
			continue
		}
		attempted++
		if out.err != nil {
			failures[channel] = out.err
			result.Failures = append(result.Failures, ChannelFailure{Channel: channel, Err: out.err})
			continue
		}
		perChannel = append(perChannel, out.posts)
	}

	if attempted > 0 && len(failures) == attempted {
		return PageResult{}, &model.AggregateError{Failures: failures}
	}
	if len(failures) > 0 {
		result.Status = StatusPartiallyFailed
	}

	for _, cursor := range result.Cursors {
		if !cursor.Done {
			result.AnyHasMore = true
			break
		}
	}

	result.Posts = dedupe(Interleave(perChannel))

	log.Info().
		Int("channels", len(req.Channels)).
		Int("failed", len(failures)).
		Int("posts", len(result.Posts)).
		Bool("has_more", result.AnyHasMore).
		Msg("Aggregated listing page")
	return result, nil
}

// Interleave round-robin merges the per-channel lists: round j appends
// each list's element at index j in channel order, skipping exhausted
// lists. Within-channel order is preserved and every channel gets equal
// positional weight regardless of result-count imbalance.
func Interleave(lists [][]model.NormalizedPost) []model.NormalizedPost {
	total := 0
	longest := 0
	for _, list := range lists {
		total += len(list)
		if len(list) > longest {
			longest = len(list)
		}
	}

	merged := make([]model.NormalizedPost, 0, total)
	for j := 0; j < longest; j++ {
		for _, list := range lists {
			if j < len(list) {
				merged = append(merged, list[j])
			}
		}
	}
	return merged
}

// dedupe drops repeated post IDs, keeping the first occurrence. The same
// post can reach a merged page through two requested channels when it was
// crossposted into both.
func dedupe(posts []model.NormalizedPost) []model.NormalizedPost {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0]
	for _, post := range posts {
		if _, dup := seen[post.PostID]; dup {
			continue
		}
		seen[post.PostID] = struct{}{}
		out = append(out, post)
	}
	return out
}
