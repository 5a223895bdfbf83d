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
	defaultStaggerDelay = 100 * time.Millisecond
	defaultBatchDelay   = 500 * time.Millisecond
)

// BatchProcessor fans work out over a bounded number of concurrent workers.
// Items are split into sequential batches of at most the concurrency limit;
// inside a batch every item runs concurrently but item starts are staggered
// to smooth burst load, and batches are separated by a pause. The two knobs
// (per-batch parallelism, inter-batch pacing) exist to stay under upstream
// abuse thresholds while keeping throughput up.
type BatchProcessor struct {
	Limit        int
	StaggerDelay time.Duration
	BatchDelay   time.Duration
}

// NewBatchProcessor creates a processor with the given concurrency limit and
// default pacing.
func NewBatchProcessor(limit int) *BatchProcessor {
	return &BatchProcessor{
		Limit:        limit,
		StaggerDelay: defaultStaggerDelay,
		BatchDelay:   defaultBatchDelay,
	}
}

// ProcessAll runs work for every item. An item whose work fails is logged and
// excluded from the result; it never aborts sibling work. Successful results
// keep the input order of their items.
func ProcessAll[T, R any](ctx context.Context, p *BatchProcessor, items []T, work func(context.Context, T) (R, error)) []R {
	if len(items) == 0 {
		return nil
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}
	stagger := p.StaggerDelay
	batchDelay := p.BatchDelay

	type slot struct {
		result R
		ok     bool
	}
	slots := make([]slot, len(items))

	for start := 0; start < len(items); start += limit {
		if ctx.Err() != nil {
			break
		}

		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx, offset int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						log.Error().Int("item", idx).Any("panic", r).Msg("Batch item panicked")
					}
				}()

				if offset > 0 && stagger > 0 {
					timer := time.NewTimer(time.Duration(offset) * stagger)
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case <-timer.C:
					}
				}

				res, err := work(ctx, items[idx])
				if err != nil {
					log.Debug().Err(err).Int("item", idx).Msg("Batch item failed, continuing with siblings")
					return
				}
				slots[idx] = slot{result: res, ok: true}
			}(i, i-start)
		}
		wg.Wait()

		if end < len(items) && batchDelay > 0 {
			timer := time.NewTimer(batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	results := make([]R, 0, len(items))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.result)
		}
	}
	return results
}
