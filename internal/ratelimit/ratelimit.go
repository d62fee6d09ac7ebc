// Package ratelimit gates remote download calls to a configured
// downloads-per-minute budget (§4.5, §5), using golang.org/x/time/rate's
// token bucket rather than a hand-rolled ticker.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket rate limiter sized in events per minute.
type Limiter struct {
	rl *rate.Limiter
}

// NewDownloadLimiter returns a limiter allowing perMinute events per minute,
// with a burst of 1 so downloads are spaced rather than allowed to spike.
func NewDownloadLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	every := time.Minute / time.Duration(perMinute)
	return &Limiter{rl: rate.NewLimiter(rate.Every(every), 1)}
}

// Wait blocks until a download slot is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
