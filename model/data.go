// Package model defines the canonical data types that flow through the
// listing aggregation pipeline, along with the error taxonomy shared by
// every layer.
package model

import "strings"

// SortMode selects the upstream listing ordering.
type SortMode string

const (
	SortHot SortMode = "hot"
	SortTop SortMode = "top"
)

// Valid reports whether the sort mode is one the upstream API understands.
func (s SortMode) Valid() bool {
	return s == SortHot || s == SortTop
}

// TimeWindow narrows a "top" listing to a time range. It is required when
// the sort mode is SortTop and must be absent otherwise.
type TimeWindow string

const (
	WindowNone  TimeWindow = ""
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// Valid reports whether the window is a recognized range.
func (w TimeWindow) Valid() bool {
	switch w {
	case WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll:
		return true
	}
	return false
}

// NormalizedPost is the canonical media record produced by the normalizer.
// MediaURLs is never empty: candidates with no extractable media are dropped
// before a NormalizedPost is ever constructed.
type NormalizedPost struct {
	Title   string `json:"title"`
	PostID  string `json:"postId"`
	Channel string `json:"channel"`

	// MediaURLs holds one or more URIs in display order (gallery order for
	// multi-item posts).
	MediaURLs []string `json:"mediaUrls"`

	// IsUnplayableVideo is true when the source item was flagged as a video
	// but no directly playable video URL could be resolved, so the single
	// entry in MediaURLs is a static preview image.
	IsUnplayableVideo bool `json:"isUnplayableVideo"`
}

// SourceQuery identifies one page of one channel's listing.
type SourceQuery struct {
	Channel  string
	Sort     SortMode
	Window   TimeWindow
	Cursor   string // empty means first page
	PageSize int
}

// CacheKey derives the deterministic response-cache key for the query.
// Two queries with identical (channel, sort, window, cursor) tuples always
// map to the same key.
func (q SourceQuery) CacheKey() string {
	window := string(q.Window)
	if window == "" {
		window = "none"
	}
	cursor := q.Cursor
	if cursor == "" {
		cursor = "initial"
	}
	return strings.Join([]string{"listing", q.Channel, string(q.Sort), window, cursor}, "|")
}

// FetchResult is one page of normalized posts for a single channel.
// An empty NextCursor means the channel has no further pages.
type FetchResult struct {
	Posts      []NormalizedPost `json:"posts"`
	NextCursor string           `json:"nextCursor,omitempty"`
}
