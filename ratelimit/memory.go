package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps one fixed window per identity in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter creates an empty in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check implements Limiter. The first request for an identity, or the
// first after the window elapses, resets the count to 1 and starts a new
// window. A check that finds the window exhausted has no side effects.
func (l *MemoryLimiter) Check(_ context.Context, identity string, cfg Config) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[identity]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(cfg.Window)}
		l.windows[identity] = w
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Remaining: cfg.MaxRequests - w.count, ResetAt: w.resetAt}, nil
}
