// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
)

const (
	retryAttempts  = 4 // first try + 3 retries
	retryBaseDelay = 1000 * time.Millisecond
	retryMaxJitter = 1000 * time.Millisecond
)

// Do runs op under the engine-wide retry policy: up to 3 retries with
// exponential backoff (1s base) plus random jitter up to 1s. Validation
// failures and 4xx-classified fetch errors are terminal and returned as-is;
// anything else that exhausts the attempt cap surfaces as a ScrapingError
// carrying the last cause.
func Do(ctx context.Context, op func() error) error {
	err := retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.MaxJitter(retryMaxJitter),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err == nil {
		return nil
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	var scrapeErr *ScrapingError
	if errors.As(err, &scrapeErr) {
		return scrapeErr
	}

	status := 0
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		status = fetchErr.StatusCode
	}
	return &ScrapingError{StatusCode: status, Cause: err}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable()
	}
	return true
}
