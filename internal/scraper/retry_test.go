// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping retry backoff test in short mode")
	}

	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &FetchError{Kind: FetchServerError, StatusCode: 502, URL: "https://site.example"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnTerminalFetchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
	}{
		{name: "not_found", err: &FetchError{Kind: FetchNotFound, StatusCode: 404, URL: "https://site.example/x"}},
		{name: "forbidden", err: &FetchError{Kind: FetchForbidden, StatusCode: 403, URL: "https://site.example/x"}},
		{name: "other_4xx", err: &FetchError{Kind: FetchUnknown, StatusCode: 410, URL: "https://site.example/x"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), func() error {
				attempts++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, 1, attempts)

			var scrapeErr *ScrapingError
			require.ErrorAs(t, err, &scrapeErr)
			assert.Equal(t, tt.err.StatusCode, scrapeErr.StatusCode)
		})
	}
}

func TestDoPassesThroughValidationErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return NewValidationError("query too short")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestDoWrapsExhaustedErrorsWithLastStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping retry backoff test in short mode")
	}

	err := Do(context.Background(), func() error {
		return &FetchError{Kind: FetchServerError, StatusCode: 503, URL: "https://site.example"}
	})

	require.Error(t, err)

	var scrapeErr *ScrapingError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, 503, scrapeErr.StatusCode)
	assert.Equal(t, CodeScraping, ErrorCode(err))
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		cancel()
		return &FetchError{Kind: FetchTimeout, URL: "https://site.example"}
	})

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 2)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "timeout", err: &FetchError{Kind: FetchTimeout}, retryable: true},
		{name: "server_error", err: &FetchError{Kind: FetchServerError, StatusCode: 500}, retryable: true},
		{name: "unknown_transport", err: errors.New("connection reset"), retryable: true},
		{name: "forbidden", err: &FetchError{Kind: FetchForbidden, StatusCode: 403}, retryable: false},
		{name: "not_found", err: &FetchError{Kind: FetchNotFound, StatusCode: 404}, retryable: false},
		{name: "validation", err: NewValidationError("bad input"), retryable: false},
		{name: "context_canceled", err: context.Canceled, retryable: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
		})
	}
}
