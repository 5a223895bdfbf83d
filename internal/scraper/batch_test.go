// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastProcessor(limit int) *BatchProcessor {
	return &BatchProcessor{Limit: limit, StaggerDelay: time.Millisecond, BatchDelay: time.Millisecond}
}

func TestProcessAllPreservesInputOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	results := ProcessAll(context.Background(), fastProcessor(3), items, func(_ context.Context, n int) (string, error) {
		return fmt.Sprintf("item-%d", n), nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r)
	}
}

func TestProcessAllExcludesFailedItems(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	results := ProcessAll(context.Background(), fastProcessor(2), items, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("boom")
		}
		return n * 10, nil
	})

	assert.Equal(t, []int{0, 10, 30, 40}, results)
}

func TestProcessAllBoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	items := make([]int, 12)
	p := &BatchProcessor{Limit: 3}

	ProcessAll(context.Background(), p, items, func(_ context.Context, _ int) (struct{}, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, maxSeen, 3)
	assert.Positive(t, maxSeen)
}

func TestProcessAllSurvivesPanickingItem(t *testing.T) {
	items := []int{0, 1, 2}

	results := ProcessAll(context.Background(), fastProcessor(3), items, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			panic("adapter bug")
		}
		return n, nil
	})

	assert.Equal(t, []int{0, 2}, results)
}

func TestProcessAllStopsStartingNewBatchesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	items := make([]int, 10)
	p := &BatchProcessor{Limit: 2, BatchDelay: 5 * time.Millisecond}

	ProcessAll(ctx, p, items, func(_ context.Context, _ int) (struct{}, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return struct{}{}, nil
	})

	assert.Less(t, calls.Load(), int32(10))
}

func TestProcessAllEmptyInput(t *testing.T) {
	results := ProcessAll(context.Background(), NewBatchProcessor(5), nil, func(_ context.Context, _ int) (int, error) {
		t.Fatal("work must not run for empty input")
		return 0, nil
	})
	assert.Nil(t, results)
}

func TestNewBatchProcessorDefaults(t *testing.T) {
	p := NewBatchProcessor(5)
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, defaultStaggerDelay, p.StaggerDelay)
	assert.Equal(t, defaultBatchDelay, p.BatchDelay)
}
