// Package ratelimit implements the crawler's politeness throttle: a
// fixed minimum spacing between cache-miss fetches, applied once per
// call to Wait before a network round trip.
package ratelimit

import (
	"context"
	"time"
)

// Limiter enforces a minimum spacing between fetches via a
// time.Ticker. It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	ticker *time.Ticker
	ch     <-chan time.Time
}

// NewLimiter creates a limiter that permits one fetch every 1/rps
// seconds. A non-positive rps disables throttling entirely, which
// Wait then treats as a no-op.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}

	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker: ticker,
		ch:     ticker.C,
	}
}

// Wait blocks until it is time to perform the next fetch, or until
// the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}
	return nil
}

// Stop releases the underlying ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
