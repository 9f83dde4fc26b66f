// Package ratelimit gates outbound calls per caller identity using
// fixed-window counting. Two backends are provided: an in-process
// mutex-guarded map and a Redis-backed implementation that relies on the
// store's atomic increment so concurrent checks cannot race.
package ratelimit

import (
	"context"
	"time"
)

// Config bounds one identity's request budget within a window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Result reports the outcome of a single rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a caller identity may make another request.
type Limiter interface {
	Check(ctx context.Context, identity string, cfg Config) (Result, error)
}
