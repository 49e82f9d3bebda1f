package engine

import (
	"context"
	"sync"
	"time"
)

// CheckResult is the outcome of a guardrails check.
type CheckResult struct {
	Allowed bool
	Warning string
}

// Guardrails gates agent runs per user, e.g. for rate limiting.
type Guardrails interface {
	// Check decides whether a run may start for this user.
	Check(ctx context.Context, userID string) (*CheckResult, error)

	// RecordSuccess notifies the guardrails of a completed run.
	RecordSuccess(ctx context.Context, userID string)
}

// RateLimiter is a sliding-window per-user guardrails implementation.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter allows up to limit runs per user within window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Check implements Guardrails.
func (r *RateLimiter) Check(ctx context.Context, userID string) (*CheckResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	recent := r.hits[userID][:0]
	for _, t := range r.hits[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.hits[userID] = recent
		return &CheckResult{Allowed: false, Warning: "rate limit exceeded, try again shortly"}, nil
	}

	r.hits[userID] = append(recent, now)
	return &CheckResult{Allowed: true}, nil
}

// RecordSuccess implements Guardrails. The sliding window counts attempts,
// so there is nothing to record here.
func (r *RateLimiter) RecordSuccess(ctx context.Context, userID string) {}
