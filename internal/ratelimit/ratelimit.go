package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps the number of reports emitted per rolling window. It is a
// counting policy only and never inspects report content. Backed by a token
// bucket holding the full budget as burst and refilling one token per window,
// so no more than maxReports are admitted inside any single window whether
// the reports arrive in a burst or spread out.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing maxReports per window.
func New(maxReports int, window time.Duration) *Limiter {
	if maxReports <= 0 || window <= 0 {
		// Misconfiguration is caught by config validation; fall back to a
		// budget of one per minute rather than panicking.
		maxReports = 1
		window = time.Minute
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(window), maxReports),
	}
}

// Allow reports whether another report fits in the current window, consuming
// budget when it does.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
