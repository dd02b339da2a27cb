package spotify

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter.
type RateLimiter struct {
	mu           sync.Mutex
	requestTimes []time.Time
	maxRequests  int
	windowSize   time.Duration
	enabled      bool
}

// NewRateLimiter creates a new rate limiter allowing maxRequests per window.
func NewRateLimiter(enabled bool, maxRequests int, windowSeconds float64) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		windowSize:  time.Duration(windowSeconds * float64(time.Second)),
		enabled:     enabled && maxRequests > 0,
	}
}

// WaitIfNeeded blocks until a request slot is free or ctx is done.
func (rl *RateLimiter) WaitIfNeeded(ctx context.Context) error {
	if rl == nil || !rl.enabled {
		return nil
	}

	for {
		wait := rl.reserve(time.Now())
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reserve records a request at now if the window allows it, else returns how long to wait.
func (rl *RateLimiter) reserve(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := now.Add(-rl.windowSize)
	valid := rl.requestTimes[:0]
	for _, t := range rl.requestTimes {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	rl.requestTimes = valid

	if len(rl.requestTimes) < rl.maxRequests {
		rl.requestTimes = append(rl.requestTimes, now)
		return 0
	}
	if wait := rl.windowSize - now.Sub(rl.requestTimes[0]); wait > 0 {
		return wait
	}
	return time.Millisecond
}
