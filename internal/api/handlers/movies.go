// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/services/aggregator"
)

type MoviesHandler struct {
	aggregator *aggregator.Service
}

func NewMoviesHandler(svc *aggregator.Service) *MoviesHandler {
	return &MoviesHandler{aggregator: svc}
}

func (h *MoviesHandler) Routes(r chi.Router) {
	r.Route("/movies", func(r chi.Router) {
		r.Get("/", h.ListMovies)
		r.Get("/home", h.Home)
		r.Get("/search", h.Search)
	})
	r.Get("/categories", h.ListCategories)
}

// ListMovies serves paginated listings. Query params: query, category, page,
// details. Query and category are mutually exclusive; query wins.
func (h *MoviesHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	req := models.ScrapeRequest{
		Query:          r.URL.Query().Get("query"),
		Category:       r.URL.Query().Get("category"),
		Page:           parsePage(r.URL.Query().Get("page")),
		IncludeDetails: parseBool(r.URL.Query().Get("details")),
	}

	env, err := h.aggregator.GetListings(r.Context(), req)
	if err != nil {
		RespondError(w, err)
		return
	}

	SetCacheControl(w, env.CacheHint)
	RespondJSON(w, http.StatusOK, env)
}

func (h *MoviesHandler) Home(w http.ResponseWriter, r *http.Request) {
	includeDetails := parseBool(r.URL.Query().Get("details"))
	sourceFilter := r.URL.Query().Get("source")

	env, err := h.aggregator.GetHomeListings(r.Context(), includeDetails, sourceFilter)
	if err != nil {
		RespondError(w, err)
		return
	}

	SetCacheControl(w, env.CacheHint)
	RespondJSON(w, http.StatusOK, env)
}

func (h *MoviesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	includeDetails := parseBool(r.URL.Query().Get("details"))

	env, err := h.aggregator.SearchMovies(r.Context(), query, includeDetails)
	if err != nil {
		RespondError(w, err)
		return
	}

	SetCacheControl(w, env.CacheHint)
	RespondJSON(w, http.StatusOK, env)
}

func (h *MoviesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.aggregator.GetCategories(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	RespondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func parsePage(raw string) int {
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
