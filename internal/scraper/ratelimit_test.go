// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAdmitsUpToMax(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(3, time.Minute)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.Zero(t, limiter.tryAdmit())
	}
	assert.Equal(t, 3, limiter.Pending())

	wait := limiter.tryAdmit()
	assert.Equal(t, time.Minute, wait)
}

func TestRateLimiterSlidingWindowEviction(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	require.Zero(t, limiter.tryAdmit())

	now = now.Add(30 * time.Second)
	require.Zero(t, limiter.tryAdmit())

	// window full; next admit must wait until the first entry ages out
	wait := limiter.tryAdmit()
	assert.Equal(t, 30*time.Second, wait)

	// first entry expires, a slot opens
	now = now.Add(31 * time.Second)
	assert.Zero(t, limiter.tryAdmit())
	assert.Equal(t, 2, limiter.Pending())
}

func TestRateLimiterWaitBlocksThenAdmits(t *testing.T) {
	limiter := NewRateLimiter(1, 20*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	var waited time.Duration
	limiter.waitHook = func(d time.Duration) { waited = d }

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	elapsed := time.Since(start)

	assert.Positive(t, waited)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
}

func TestRateLimiterWaitHonorsContextCancel(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	assert.Equal(t, defaultRateLimitMax, limiter.max)
	assert.Equal(t, defaultRateLimitWindow, limiter.window)
}
