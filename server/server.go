// Package server exposes the aggregation pipeline over HTTP. It validates
// caller input before any core logic runs and maps the pipeline's error
// taxonomy onto response statuses.
package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mediaflow-hub/listing-aggregator/aggregate"
	"github.com/mediaflow-hub/listing-aggregator/config"
	"github.com/mediaflow-hub/listing-aggregator/model"
	"github.com/mediaflow-hub/listing-aggregator/ratelimit"
)

var channelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,20}$`)

// Aggregator is the slice of the engine the server depends on.
type Aggregator interface {
	FetchPage(ctx context.Context, req aggregate.PageRequest) (aggregate.PageResult, error)
}

// Server wires the HTTP surface to the aggregation engine.
type Server struct {
	engine  Aggregator
	limiter ratelimit.Limiter
	cfg     *config.Config
}

// New creates a server. The limiter throttles general inbound traffic;
// the engine's fetcher carries its own upstream-listing budget.
func New(engine Aggregator, limiter ratelimit.Limiter, cfg *config.Config) *Server {
	return &Server{engine: engine, limiter: limiter, cfg: cfg}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())
	r.Use(globalRateLimit(s.limiter, ratelimit.Config{
		MaxRequests: s.cfg.GlobalMaxRequests,
		Window:      s.cfg.GlobalWindow,
	}))

	r.GET("/health", s.health)
	r.GET("/listings", s.listings)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type listingsResponse struct {
	Posts    []model.NormalizedPost `json:"posts"`
	Cursor   *string                `json:"cursor"`
	HasMore  bool                   `json:"hasMore"`
	Warnings []string               `json:"warnings,omitempty"`
}

func (s *Server) listings(c *gin.Context) {
	req, verr := s.parseListingsRequest(c)
	if verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": verr.Details})
		return
	}

	result, err := s.engine.FetchPage(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := listingsResponse{
		Posts:   result.Posts,
		HasMore: result.AnyHasMore,
	}
	if result.AnyHasMore {
		token, err := encodeCursor(result.Cursors)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding cursor failed"})
			return
		}
		resp.Cursor = &token
	}
	for _, failure := range result.Failures {
		resp.Warnings = append(resp.Warnings, failure.Channel+": "+failure.Err.Error())
	}
	c.JSON(http.StatusOK, resp)
}

// parseListingsRequest validates query parameters before any core logic
// runs. Limit is clamped rather than rejected.
func (s *Server) parseListingsRequest(c *gin.Context) (aggregate.PageRequest, *model.ValidationError) {
	var details []string

	channels := splitChannels(c.Query("channel"))
	if len(channels) == 0 {
		details = append(details, "at least one channel is required")
	}
	if len(channels) > s.cfg.MaxChannels {
		details = append(details, "too many channels, maximum is "+strconv.Itoa(s.cfg.MaxChannels))
	}
	for _, ch := range channels {
		if !channelNamePattern.MatchString(ch) {
			details = append(details, "invalid channel name: "+ch)
		}
	}

	sort := model.SortMode(c.DefaultQuery("sort", string(model.SortHot)))
	if !sort.Valid() {
		details = append(details, "sort must be hot or top")
	}

	window := model.TimeWindow(c.Query("timeWindow"))
	switch sort {
	case model.SortTop:
		if window == model.WindowNone {
			details = append(details, "timeWindow is required when sort is top")
		} else if !window.Valid() {
			details = append(details, "timeWindow must be one of day, week, month, year, all")
		}
	default:
		if window != model.WindowNone {
			details = append(details, "timeWindow is only valid when sort is top")
		}
	}

	limit := 25
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			details = append(details, "limit must be an integer")
		} else {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	cursors, err := decodeCursor(c.Query("cursor"))
	if err != nil {
		details = append(details, "cursor token is malformed")
	}

	if len(details) > 0 {
		return aggregate.PageRequest{}, &model.ValidationError{Details: details}
	}

	return aggregate.PageRequest{
		Channels: channels,
		Sort:     sort,
		Window:   window,
		Cursors:  cursors,
		PageSize: limit,
		Identity: "listing:" + c.ClientIP(),
	}, nil
}

func splitChannels(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	channels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			channels = append(channels, p)
		}
	}
	return channels
}

// writeError maps pipeline errors onto response statuses: 429 for local
// throttling, 502 for credential and upstream failure, 504 when every
// channel timed out.
func (s *Server) writeError(c *gin.Context, err error) {
	var rateLimited *model.RateLimitedError
	if errors.As(err, &rateLimited) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "rate limit exceeded",
			"resetAt":   rateLimited.ResetAt.UTC().Format(time.RFC3339),
			"remaining": rateLimited.Remaining,
		})
		return
	}

	var credential *model.CredentialError
	if errors.As(err, &credential) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream credential unavailable"})
		return
	}

	var aggregateErr *model.AggregateError
	if errors.As(err, &aggregateErr) {
		// When every channel failed the same way, report the shared cause
		// rather than a generic upstream error.
		if reset, ok := allRateLimited(aggregateErr); ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"resetAt": reset.UTC().Format(time.RFC3339),
			})
			return
		}
		for _, cause := range aggregateErr.Failures {
			var credErr *model.CredentialError
			if errors.As(cause, &credErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "upstream credential unavailable"})
				return
			}
		}
		status := http.StatusBadGateway
		if allTimeouts(aggregateErr) {
			status = http.StatusGatewayTimeout
		}
		details := make([]string, 0, len(aggregateErr.Failures))
		for channel, cause := range aggregateErr.Failures {
			details = append(details, channel+": "+cause.Error())
		}
		c.JSON(status, gin.H{"error": "all channels failed", "details": details})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func allRateLimited(err *model.AggregateError) (time.Time, bool) {
	var reset time.Time
	for _, cause := range err.Failures {
		var rlErr *model.RateLimitedError
		if !errors.As(cause, &rlErr) {
			return time.Time{}, false
		}
		if rlErr.ResetAt.After(reset) {
			reset = rlErr.ResetAt
		}
	}
	return reset, len(err.Failures) > 0
}

func allTimeouts(err *model.AggregateError) bool {
	for _, cause := range err.Failures {
		var netErr *model.NetworkError
		if !errors.As(cause, &netErr) || !netErr.Timeout {
			return false
		}
	}
	return len(err.Failures) > 0
}
