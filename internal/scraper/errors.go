// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to the HTTP shell.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeScraping   = "SCRAPING_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// FetchKind classifies a transport failure. The retry policy keys off it.
type FetchKind string

const (
	FetchTimeout     FetchKind = "timeout"
	FetchForbidden   FetchKind = "forbidden"
	FetchNotFound    FetchKind = "not_found"
	FetchServerError FetchKind = "server_error"
	FetchUnknown     FetchKind = "unknown"
)

// FetchError is a classified upstream transport failure.
type FetchError struct {
	Kind       FetchKind
	StatusCode int
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}

// Retryable reports whether another attempt could plausibly succeed.
// Forbidden, NotFound and any other 4xx are terminal.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchForbidden, FetchNotFound:
		return false
	}
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

// ValidationError marks bad caller input. Terminal, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a terminal request-validation failure.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ScrapingError is an upstream failure that survived the retry policy.
// StatusCode carries the HTTP-equivalent status of the last cause.
type ScrapingError struct {
	StatusCode int
	Cause      error
}

func (e *ScrapingError) Error() string {
	return fmt.Sprintf("scraping failed (status %d): %v", e.StatusCode, e.Cause)
}

func (e *ScrapingError) Unwrap() error { return e.Cause }

func (e *ScrapingError) Is(target error) bool {
	_, ok := target.(*ScrapingError)
	return ok
}

// ErrorCode maps an error to its stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, &ValidationError{}):
		return CodeValidation
	case errors.Is(err, &ScrapingError{}):
		return CodeScraping
	default:
		return CodeInternal
	}
}

// HTTPStatus maps an error to its HTTP-equivalent status for the shell.
func HTTPStatus(err error) int {
	var scrapeErr *ScrapingError
	switch {
	case errors.Is(err, &ValidationError{}):
		return http.StatusBadRequest
	case errors.As(err, &scrapeErr):
		if scrapeErr.StatusCode >= 400 {
			return scrapeErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
