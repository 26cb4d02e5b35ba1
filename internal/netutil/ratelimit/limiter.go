// Package ratelimit provides cooperative per-venue rate limiting using token
// buckets. Each venue client self-throttles through one of these; the engine
// imposes no global throttle of its own.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimited marks an upstream 429/throttle response. The acquisition
// engine treats repeated occurrences on one venue as a reason to move on.
var ErrRateLimited = errors.New("rate limited by upstream")

// Limiter holds one token bucket per venue id.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter that lazily allocates per-venue buckets with
// the given default rate.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Configure sets a venue-specific rate, replacing any existing bucket.
func (l *Limiter) Configure(venue string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[venue] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (l *Limiter) get(venue string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[venue]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[venue] = lim
	return lim
}

// Wait blocks until a request for the venue is allowed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, venue string) error {
	return l.get(venue).Wait(ctx)
}

// Allow reports whether a request for the venue may proceed immediately.
func (l *Limiter) Allow(venue string) bool {
	return l.get(venue).Allow()
}
