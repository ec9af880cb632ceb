package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces fetches at least delay apart. The first fetch is not delayed.
// A nil Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns a limiter for delay, or nil when delay is not positive.
func NewLimiter(delay time.Duration) *Limiter {
	if delay <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next fetch may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
