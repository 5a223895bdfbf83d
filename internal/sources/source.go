// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package sources holds the per-site scraping adapters. Each adapter knows
// one upstream site's HTML structure and converts raw markup into listing
// entries and detail fragments; everything above it depends only on the
// Source interface and the shared models.
package sources

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/scraper"
)

// Source is the capability every adapter implements. Listing calls return
// hasMore=true only when the site exposes real pagination and another page
// exists; sites without pagination always report false.
type Source interface {
	Name() string
	ListLatest(ctx context.Context, page int) (listings []models.MovieListing, hasMore bool, err error)
	Search(ctx context.Context, query string) ([]models.MovieListing, error)
	FetchDetail(ctx context.Context, link string) (models.DetailFragment, error)
}

// PopularLister is implemented by sources that distinguish a "popular"
// listing from the latest one.
type PopularLister interface {
	ListPopular(ctx context.Context) ([]models.MovieListing, error)
}

// CategoryLister is implemented by the source that owns the category facet.
type CategoryLister interface {
	Categories() []models.Category
	ListCategory(ctx context.Context, slug string, page int) ([]models.MovieListing, bool, error)
}

// Registry holds the configured adapters in registration order.
type Registry struct {
	order  []string
	byName map[string]Source
}

func NewRegistry(sources ...Source) *Registry {
	r := &Registry{byName: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if _, dup := r.byName[s.Name()]; dup {
			continue
		}
		r.order = append(r.order, s.Name())
		r.byName[s.Name()] = s
	}
	return r
}

// All returns every adapter in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Get returns the adapter with the given name.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// newListing builds a validated MovieListing from a raw anchor. It returns
// false for items that must be skipped: missing title or href, a sanitized
// title shorter than two characters, or an href that does not resolve to a
// valid absolute URL. A bad item never aborts its batch; the caller logs and
// moves on.
func newListing(source, baseURL, rawTitle, rawHref string) (models.MovieListing, bool) {
	title := scraper.SanitizeTitle(rawTitle)
	if len(title) < 2 || rawHref == "" {
		return models.MovieListing{}, false
	}

	link := scraper.ResolveURL(baseURL, rawHref)
	if !scraper.ValidAbsoluteURL(link) {
		log.Debug().Str("source", source).Str("href", rawHref).Msg("Skipping listing item with unresolvable link")
		return models.MovieListing{}, false
	}

	return models.MovieListing{
		Title:   title,
		Link:    link,
		Quality: scraper.ExtractQuality(title + " " + link),
		Size:    scraper.ExtractSize(title),
		Source:  source,
	}, true
}
