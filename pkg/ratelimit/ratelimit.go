package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests with a token bucket and optional positive
// jitter. It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	bucket   *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a limiter allowing rps requests per second with a burst
// of one. Jitter is clamped to [0, 1]. If rps is <= 0, Wait never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(rps), 1),
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.bucket == nil {
		return nil
	}

	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	if l.jitter <= 0 {
		return nil
	}

	// Only the positive half of the jitter range delays; the bucket already
	// enforces the minimum spacing.
	extra := time.Duration(float64(l.interval) * l.jitter * ((rand.Float64() * 2) - 1.0))
	if extra <= 0 {
		return nil
	}

	t := time.NewTimer(extra)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Limit returns the configured steady-state rate, or rate.Inf when unlimited.
func (l *Limiter) Limit() rate.Limit {
	if l.bucket == nil {
		return rate.Inf
	}
	return l.bucket.Limit()
}
