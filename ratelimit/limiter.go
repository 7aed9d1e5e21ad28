// Package ratelimit implements a fixed-window, weight-based rate limiter
// for a single remote venue API.
//
// Grounded on original_source/backend/src/backtesting/data_cache.rs's
// RateLimiter struct (weight_used/max_weight over a 60s window, with
// admit/record/time_to_wait/wait_if_needed as four separate operations).
// Observability is an optional observer callback (WithObserver) that the
// limiter invokes itself, so call sites never report usage; the limiter
// imports no metrics package, and the wiring code points the callback at a
// Prometheus gauge.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxWeight is the default weight budget per window, matching the
	// original Binance-style "1200 per minute" convention.
	DefaultMaxWeight = 1200
	// DefaultWindow is the rolling window length.
	DefaultWindow = 60 * time.Second
)

// Limiter enforces a weight budget over a rolling fixed window for one
// venue. It is safe for concurrent use. The zero value is not usable; build
// one with New.
type Limiter struct {
	mu         sync.Mutex
	maxWeight  int
	window     time.Duration
	weightUsed int
	windowStart time.Time
	now        func() time.Time

	onReserve func(venue string, used, max int)
	venue     string
}

// Option customizes a Limiter at construction time.
type Option func(*Limiter)

// WithClock overrides the limiter's time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithObserver registers a callback invoked after every Record with
// the venue name and the current (used, max) weight. Wiring a Prometheus
// gauge here keeps the limiter itself metrics-agnostic.
func WithObserver(fn func(venue string, used, max int)) Option {
	return func(l *Limiter) { l.onReserve = fn }
}

// New constructs a Limiter for the named venue with the given per-window
// weight budget. A maxWeight of 0 selects DefaultMaxWeight.
func New(venue string, maxWeight int, opts ...Option) *Limiter {
	if maxWeight <= 0 {
		maxWeight = DefaultMaxWeight
	}
	l := &Limiter{
		venue:     venue,
		maxWeight: maxWeight,
		window:    DefaultWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

// resetIfElapsed must be called with mu held.
func (l *Limiter) resetIfElapsed() {
	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.weightUsed = 0
	}
}

// Admit reports whether weight additional units would fit in the current
// window. It does not record the request; pair it with Record once the
// remote call actually succeeds.
func (l *Limiter) Admit(weight int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfElapsed()
	return l.weightUsed+weight <= l.maxWeight
}

// Record adds weight units to the current window's usage, regardless of
// whether Admit was previously called for it.
func (l *Limiter) Record(weight int) {
	l.mu.Lock()
	l.resetIfElapsed()
	l.weightUsed += weight
	used, max := l.weightUsed, l.maxWeight
	l.mu.Unlock()
	if l.onReserve != nil {
		l.onReserve(l.venue, used, max)
	}
}

// TimeToWait returns how long the caller must wait before the window
// resets, or zero if the window has budget remaining right now.
func (l *Limiter) TimeToWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfElapsed()
	if l.weightUsed < l.maxWeight {
		return 0
	}
	elapsed := l.now().Sub(l.windowStart)
	remaining := l.window - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WaitIfNeeded blocks until TimeToWait reports zero, or ctx is cancelled.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	wait := l.TimeToWait()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
