package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError reports malformed caller input. It is raised before any
// core logic runs and never reaches the network.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Details, "; ")
}

// RateLimitedError is returned when the local rate limiter rejects a call
// before any upstream request is made.
type RateLimitedError struct {
	ResetAt   time.Time
	Remaining int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// CredentialError means an upstream access credential could not be obtained.
// This is fatal for any in-flight fetch that needed a fresh token.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential exchange failed: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the source API. It affects a
// single channel and may therefore be partial within an aggregation.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NetworkError is a transport-level failure or timeout talking to the
// upstream. Like UpstreamError it is scoped to a single channel.
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream request timed out: %v", e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AggregateError means every requested channel failed, so the whole page
// request fails. Failures holds the per-channel cause.
type AggregateError struct {
	Failures map[string]error
}

func (e *AggregateError) Error() string {
	channels := make([]string, 0, len(e.Failures))
	for ch := range e.Failures {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	parts := make([]string, 0, len(channels))
	for _, ch := range channels {
		parts = append(parts, fmt.Sprintf("%s: %v", ch, e.Failures[ch]))
	}
	return "all channels failed: " + strings.Join(parts, "; ")
}
