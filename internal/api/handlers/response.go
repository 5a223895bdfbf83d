// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cinefeed/cinefeed/internal/scraper"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondJSON writes the payload with a JSON content type. An encoding
// failure at this point means headers are already out, so it is only logged.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// RespondError maps the scraping error taxonomy onto the wire: stable codes,
// matching HTTP statuses, client-safe messages.
func RespondError(w http.ResponseWriter, err error) {
	code := scraper.ErrorCode(err)
	status := scraper.HTTPStatus(err)

	msg := err.Error()
	if code == scraper.CodeInternal {
		// never leak internals
		msg = "internal server error"
	}

	RespondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// SetCacheControl translates a freshness hint into a Cache-Control header.
// A zero hint leaves the response uncacheable.
func SetCacheControl(w http.ResponseWriter, hint time.Duration) {
	if hint <= 0 {
		w.Header().Set("Cache-Control", "no-store")
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(hint.Seconds())))
}
