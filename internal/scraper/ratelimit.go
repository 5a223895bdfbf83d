// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultRateLimitWindow = 60 * time.Second
	defaultRateLimitMax    = 20
)

// RateLimiter is an advisory sliding-window self throttle shared process-wide
// by every adapter. It records request timestamps, evicts entries older than
// the window, and suspends callers that would exceed the cap until the oldest
// entry ages out. A borderline request slipping slightly over the cap under
// concurrency is an acceptable approximation, not a correctness violation.
type RateLimiter struct {
	mu         sync.Mutex
	window     time.Duration
	max        int
	timestamps []time.Time
	now        func() time.Time

	waitHook func(time.Duration)
}

// NewRateLimiter creates a limiter admitting max requests per window.
// Non-positive arguments fall back to the defaults (20 requests / 60s).
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = defaultRateLimitMax
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &RateLimiter{
		window: window,
		max:    max,
		now:    time.Now,
	}
}

// SetWaitObserver installs a callback invoked each time a caller is
// suspended. Set it during wiring, before the limiter is shared.
func (r *RateLimiter) SetWaitObserver(fn func(time.Duration)) {
	r.waitHook = fn
}

// Wait blocks until the caller may issue a request, then records it.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.tryAdmit()
		if wait <= 0 {
			return nil
		}

		log.Debug().Dur("wait", wait).Msg("Rate limit reached, pausing before next request")
		if r.waitHook != nil {
			r.waitHook(wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAdmit records the request and returns 0 when admitted, or the duration
// until the oldest in-window entry expires.
func (r *RateLimiter) tryAdmit() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)

	if len(r.timestamps) < r.max {
		r.timestamps = append(r.timestamps, now)
		return 0
	}

	return r.timestamps[0].Add(r.window).Sub(now)
}

// Pending returns the number of requests currently inside the window.
func (r *RateLimiter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked(r.now())
	return len(r.timestamps)
}

func (r *RateLimiter) evictLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}
