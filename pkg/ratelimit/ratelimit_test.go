package ratelimit

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_NoBlockWhenZeroRPS(t *testing.T) {
	limiter := NewLimiter(0, 0.5)

	start := time.Now()
	for range 5 {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("limiter with 0 RPS should not block")
	}
	if limiter.Limit() != rate.Inf {
		t.Errorf("expected infinite limit, got %v", limiter.Limit())
	}
}

func TestLimiter_Wait(t *testing.T) {
	rps := 10.0 // 100ms interval
	limiter := NewLimiter(rps, 0)

	ctx := context.Background()

	// The bucket starts full, so the first call returns immediately.
	_ = limiter.Wait(ctx)

	start := time.Now()
	err := limiter.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	duration := time.Since(start)

	if duration < 50*time.Millisecond || duration > 150*time.Millisecond {
		t.Errorf("expected wait around 100ms, took %v", duration)
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(1, 0)
	ctx := context.Background()
	_ = limiter.Wait(ctx) // drain the initial token

	ctx, cancel := context.WithCancel(ctx)
	cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatalf("expected context canceled error")
	}
}

func TestLimiter_Jitter(t *testing.T) {
	rps := 10.0                     // 100ms interval
	limiter := NewLimiter(rps, 0.5) // up to +50ms

	ctx := context.Background()

	_ = limiter.Wait(ctx)

	start := time.Now()
	_ = limiter.Wait(ctx)

	duration := time.Since(start)

	// The first call may itself have slept some jitter, eating into the
	// bucket interval, so the lower bound is loose.
	if duration < 20*time.Millisecond || duration > 300*time.Millisecond {
		t.Errorf("expected jittered wait to be roughly between 100ms and 150ms, took %v", duration)
	}
}

func TestNewLimiter_ClampsJitter(t *testing.T) {
	if l := NewLimiter(5, 3); l.jitter != 1 {
		t.Errorf("expected jitter clamped to 1, got %v", l.jitter)
	}
	if l := NewLimiter(5, -1); l.jitter != 0 {
		t.Errorf("expected jitter clamped to 0, got %v", l.jitter)
	}
}
