// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// MovieListing is the minimal record produced by a listing scrape. It is
// immutable once an adapter has produced it; enrichment builds a MovieDetail
// around it instead of mutating it.
type MovieListing struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Quality string `json:"quality,omitempty"`
	Size    string `json:"size,omitempty"`
	Source  string `json:"source"`
}

// DownloadLink is a label/URL pair extracted from a detail page.
type DownloadLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// MovieDetail is a MovieListing enriched from the movie's own page. Every
// added field is optional: a failed or partial detail fetch leaves them empty
// and the base listing survives untouched.
type MovieDetail struct {
	MovieListing

	Thumbnail     string         `json:"thumbnail,omitempty"`
	DownloadLinks []DownloadLink `json:"downloadLinks,omitempty"`
	Genres        []string       `json:"genres,omitempty"`
	Language      string         `json:"language,omitempty"`
	Format        string         `json:"format,omitempty"`
	ReleaseDate   string         `json:"releaseDate,omitempty"`
	Cast          string         `json:"cast,omitempty"`
	Synopsis      string         `json:"synopsis,omitempty"`
	Gallery       []string       `json:"gallery,omitempty"`
}

// DetailFragment carries the fields an adapter managed to extract from a
// detail page. Same shape for every site; absent fields stay empty.
type DetailFragment struct {
	Quality       string
	Size          string
	Thumbnail     string
	DownloadLinks []DownloadLink
	Genres        []string
	Language      string
	Format        string
	ReleaseDate   string
	Cast          string
	Synopsis      string
	Gallery       []string
}

// MergeDetail overlays the non-empty fragment fields onto the listing.
// Fragment values win, with one deliberate exception: a quality derived from
// the listing title is kept over the fragment's guess, since listing pages
// tag quality more reliably than detail-page body text.
func MergeDetail(listing MovieListing, frag DetailFragment) MovieDetail {
	d := MovieDetail{MovieListing: listing}

	if listing.Quality == "" && frag.Quality != "" {
		d.Quality = frag.Quality
	}
	if frag.Size != "" {
		d.Size = frag.Size
	}
	d.Thumbnail = frag.Thumbnail
	d.DownloadLinks = frag.DownloadLinks
	d.Genres = frag.Genres
	d.Language = frag.Language
	d.Format = frag.Format
	d.ReleaseDate = frag.ReleaseDate
	d.Cast = frag.Cast
	d.Synopsis = frag.Synopsis
	d.Gallery = frag.Gallery

	return d
}

// Category is a filter facet sourced from a single listing site.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ScrapeRequest drives which adapters run and whether enrichment executes.
type ScrapeRequest struct {
	Query          string
	Category       string
	Page           int
	IncludeDetails bool
}

// ResultEnvelope is the uniform response shape returned to the HTTP shell
// regardless of which sources contributed.
type ResultEnvelope struct {
	Items    []MovieDetail `json:"items"`
	Total    int           `json:"total"`
	HasMore  bool          `json:"hasMore"`
	NextPage int           `json:"nextPage,omitempty"`

	// CacheHint is a freshness intent, not an enforced contract: the shell
	// may translate it into a Cache-Control header.
	CacheHint time.Duration `json:"-"`
}
