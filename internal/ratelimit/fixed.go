// Package ratelimit implements the per-identity fixed-window message
// limiter and the per-IP upgrade throttle.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/humanchat/chatroom/internal/store"
)

const keyPrefix = "chat:ratelimit"

// Result reports one limiter decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the current window expires and the counter restarts.
	Reset time.Time
}

// Fixed counts hits per key in fixed windows backed by the remote store.
// The window is not renewed by activity once started, so a burst at the
// end of one window and another at the start of the next can total up to
// twice the nominal limit across the boundary. Known behavior, kept.
type Fixed struct {
	store  store.Commander
	max    int
	window time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// NewFixed builds a limiter. A nil store disables the limiter entirely:
// every request is allowed. This is the fail-open path for a missing or
// misconfigured store.
func NewFixed(st store.Commander, max int, window time.Duration) *Fixed {
	return &Fixed{
		store:  st,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Enabled reports whether the limiter has a backing store.
func (f *Fixed) Enabled() bool {
	return f.store != nil
}

// Check records a hit for key and reports whether it is within quota.
// INCR and PTTL run as one pipelined round trip; the first hit in a
// window (or a counter with no live expiry) sets the window explicitly.
func (f *Fixed) Check(ctx context.Context, key string) (Result, error) {
	if !f.Enabled() {
		return Result{Allowed: true, Limit: f.max, Remaining: f.max, Reset: f.now()}, nil
	}

	storeKey := fmt.Sprintf("%s:%s", keyPrefix, key)

	count, ttl, err := f.store.IncrWithTTL(ctx, storeKey)
	if err != nil {
		return Result{}, fmt.Errorf("internal/ratelimit: failed to bump counter for %s: %w", key, err)
	}

	if count == 1 || ttl < 0 {
		if err := f.store.Expire(ctx, storeKey, f.window); err != nil {
			return Result{}, fmt.Errorf("internal/ratelimit: failed to set window for %s: %w", key, err)
		}
		ttl = f.window
	}

	remaining := f.max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(f.max),
		Limit:     f.max,
		Remaining: remaining,
		Reset:     f.now().Add(ttl),
	}, nil
}
