// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout applies to listing and search pages.
	DefaultTimeout = 15 * time.Second
	// DetailTimeout applies to detail pages, which tend to be heavier.
	DetailTimeout = 20 * time.Second

	maxResponseBytes int64 = 8 << 20
)

// Keep the pool short but varied. Picking a random identity per request
// reduces trivial fingerprinting; it is not an evasion guarantee.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// Fetcher issues single HTTP requests with a randomized client identity and
// browser-like negotiation headers. It does no retrying and no caching; the
// retry policy sits above it, the rate limiter below it.
type Fetcher struct {
	client  *http.Client
	limiter *RateLimiter

	mu  sync.Mutex
	rnd *rand.Rand
}

// FetchOptions overrides per-request behaviour.
type FetchOptions struct {
	Timeout time.Duration
	Headers map[string]string
}

// NewFetcher creates a fetcher. limiter may be nil for unthrottled use in
// tests; production wiring shares one limiter across every adapter.
func NewFetcher(limiter *RateLimiter) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				MaxIdleConnsPerHost:   4,
			},
		},
		limiter: limiter,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves url with the default listing timeout.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.fetch(ctx, url, FetchOptions{Timeout: DefaultTimeout})
}

// FetchDetail retrieves url with the longer detail-page timeout.
func (f *Fetcher) FetchDetail(ctx context.Context, url string) ([]byte, error) {
	return f.fetch(ctx, url, FetchOptions{Timeout: DetailTimeout})
}

// FetchWithOptions retrieves url with caller-supplied options.
func (f *Fetcher) FetchWithOptions(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	return f.fetch(ctx, url, opts)
}

func (f *Fetcher) fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(url, err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchUnknown, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}
	defer resp.Body.Close()

	if fe := classifyStatus(url, resp.StatusCode); fe != nil {
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(url, err)
	}
	if len(body) == 0 {
		return nil, &FetchError{Kind: FetchUnknown, URL: url, Err: errors.New("empty response body")}
	}

	log.Trace().Str("url", url).Int("bytes", len(body)).Msg("Fetched page")
	return body, nil
}

func (f *Fetcher) randomUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return userAgents[f.rnd.Intn(len(userAgents))]
}

func classifyStatus(url string, status int) *FetchError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return &FetchError{Kind: FetchForbidden, StatusCode: status, URL: url}
	case status == http.StatusNotFound:
		return &FetchError{Kind: FetchNotFound, StatusCode: status, URL: url}
	case status >= 500:
		return &FetchError{Kind: FetchServerError, StatusCode: status, URL: url}
	default:
		return &FetchError{Kind: FetchUnknown, StatusCode: status, URL: url}
	}
}

func classifyTransportError(url string, err error) *FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{Kind: FetchTimeout, URL: url, Err: err}
	default:
		return &FetchError{Kind: FetchUnknown, URL: url, Err: err}
	}
}
