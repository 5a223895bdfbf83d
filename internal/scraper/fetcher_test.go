// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))

	assert.Contains(t, userAgents, gotUA)
	assert.Contains(t, gotAccept, "text/html")
}

func TestFetcherUserAgentComesFromPool(t *testing.T) {
	f := NewFetcher(nil)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ua := f.randomUserAgent()
		assert.Contains(t, userAgents, ua)
		seen[ua] = struct{}{}
	}
	// 100 draws from a 5-entry pool should hit more than one identity
	assert.Greater(t, len(seen), 1)
}

func TestFetcherClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected FetchKind
	}{
		{name: "forbidden", status: http.StatusForbidden, expected: FetchForbidden},
		{name: "too_many_requests", status: http.StatusTooManyRequests, expected: FetchForbidden},
		{name: "not_found", status: http.StatusNotFound, expected: FetchNotFound},
		{name: "bad_gateway", status: http.StatusBadGateway, expected: FetchServerError},
		{name: "teapot", status: http.StatusTeapot, expected: FetchUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			f := NewFetcher(nil)
			_, err := f.Fetch(context.Background(), srv.URL)
			require.Error(t, err)

			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.expected, fetchErr.Kind)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
		})
	}
}

func TestFetcherClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	_, err := f.FetchWithOptions(context.Background(), srv.URL, FetchOptions{Timeout: 20 * time.Millisecond})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, FetchTimeout, fetchErr.Kind)
	assert.True(t, fetchErr.Retryable())
}

func TestFetcherRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, FetchUnknown, fetchErr.Kind)
}

func TestFetcherTruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", int(maxResponseBytes)+1024)))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, int(maxResponseBytes))
}

func TestFetcherWaitsOnSharedLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	limiter := NewRateLimiter(1, 30*time.Millisecond)
	f := NewFetcher(limiter)

	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestFetcherLimiterCancelSurfacesFetchError(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	f := NewFetcher(limiter)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, "https://site.example")
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, FetchTimeout, fetchErr.Kind)
}