// Package ratelimiter throttles calls to external backends.
//
// It wraps golang.org/x/time/rate with an interval-based constructor, which
// is the natural unit for snapshot publishing ("at most one publish every
// 30s, bursts of 2"). A zero interval disables limiting entirely.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New returns a limiter that refills one token per interval and holds at
// most burst tokens. interval <= 0 means unlimited; burst < 1 is raised to 1.
func New(interval time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Unlimited reports whether the limiter never throttles.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Delay returns how long a caller would currently wait for a token,
// without consuming it.
func (r *RateLimiter) Delay() time.Duration {
	if r.Unlimited() {
		return 0
	}

	res := r.limiter.Reserve()
	d := res.Delay()
	res.Cancel()
	return d
}

// Tokens returns the number of tokens currently in the bucket.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
