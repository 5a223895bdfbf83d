// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/cinefeed/cinefeed/internal/sources"
)

type HealthHandler struct {
	registry *sources.Registry
}

func NewHealthHandler(registry *sources.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0)
	for _, src := range h.registry.All() {
		names = append(names, src.Name())
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"sources": names,
	})
}

func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleReady reports ready once at least one source adapter is registered.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if len(h.registry.All()) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no sources registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
