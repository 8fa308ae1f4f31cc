// Package middleware provides cross-cutting guards the service facade
// applies around domain operations: per-key rate limiting and panic
// recovery. These wrap plain Go calls since this module has no HTTP
// transport in scope.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

// RateLimiter enforces a per-key token bucket, used by the facade to
// throttle auth-like operations (login). The key is whatever the caller
// passes; the facade's own default limiter allows 10 attempts per minute
// per key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	window   time.Duration
	limit    int
}

// NewRateLimiter builds a limiter allowing `limit` operations per `window`
// for each distinct key, with burst equal to limit.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 1
	}
	perSecond := float64(limit) / window.Seconds()
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    limit,
		window:   window,
		limit:    limit,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// Allow reports whether the operation identified by key may proceed now,
// consuming a token if so.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).Allow()
}

// Guard returns an error if the key has exceeded its allotment, otherwise nil.
func (rl *RateLimiter) Guard(key string) error {
	if rl.Allow(key) {
		return nil
	}
	return apperrors.New(apperrors.KindForbidden, "rate limit exceeded").
		WithDetails("key", key).
		WithDetails("limit", rl.limit).
		WithDetails("window", rl.window.String())
}

// Reset drops all per-key limiter state; used by tests.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters = make(map[string]*rate.Limiter)
}
