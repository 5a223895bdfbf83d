// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/scraper"
)

const vegaMoviesBaseURL = "https://vegamovies.si"

// VegaMovies scrapes a WordPress-style article grid. It is the only adapter
// with real pagination and it owns the category facet.
type VegaMovies struct {
	fetcher *scraper.Fetcher
	baseURL string
}

func NewVegaMovies(fetcher *scraper.Fetcher) *VegaMovies {
	return &VegaMovies{fetcher: fetcher, baseURL: vegaMoviesBaseURL}
}

func (v *VegaMovies) Name() string { return "vegamovies" }

func (v *VegaMovies) ListLatest(ctx context.Context, page int) ([]models.MovieListing, bool, error) {
	pageURL := v.baseURL + "/"
	if page > 1 {
		pageURL = fmt.Sprintf("%s/page/%d/", v.baseURL, page)
	}
	body, err := v.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, false, err
	}
	return v.parseListing(body)
}

func (v *VegaMovies) Search(ctx context.Context, query string) ([]models.MovieListing, error) {
	searchURL := v.baseURL + "/?s=" + url.QueryEscape(query)
	body, err := v.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	listings, _, err := v.parseListing(body)
	return listings, err
}

var vegaCategories = []models.Category{
	{Slug: "bollywood", Name: "Bollywood"},
	{Slug: "hollywood", Name: "Hollywood"},
	{Slug: "south-hindi-dubbed", Name: "South Hindi Dubbed"},
	{Slug: "web-series", Name: "Web Series"},
	{Slug: "dual-audio", Name: "Dual Audio"},
	{Slug: "punjabi", Name: "Punjabi"},
}

// Categories returns the static facet list. The slugs map onto the site's
// category archive paths.
func (v *VegaMovies) Categories() []models.Category {
	return append([]models.Category(nil), vegaCategories...)
}

func (v *VegaMovies) ListCategory(ctx context.Context, slug string, page int) ([]models.MovieListing, bool, error) {
	pageURL := fmt.Sprintf("%s/category/%s/", v.baseURL, url.PathEscape(slug))
	if page > 1 {
		pageURL = fmt.Sprintf("%s/category/%s/page/%d/", v.baseURL, url.PathEscape(slug), page)
	}
	body, err := v.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, false, err
	}
	return v.parseListing(body)
}

func (v *VegaMovies) FetchDetail(ctx context.Context, link string) (models.DetailFragment, error) {
	body, err := v.fetcher.FetchDetail(ctx, link)
	if err != nil {
		return models.DetailFragment{}, err
	}
	return v.parseDetail(body, link)
}

// parseListing extracts listing entries from an archive or search page.
// Items are processed independently; a malformed item is logged and skipped.
func (v *VegaMovies) parseListing(html []byte) ([]models.MovieListing, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	var listings []models.MovieListing
	doc.Find("article.post-item, article.latestPost").Each(func(i int, item *goquery.Selection) {
		anchor := item.Find("h3.entry-title a, h2.title a").First()
		if anchor.Length() == 0 {
			anchor = item.Find("a[title]").First()
		}
		title := anchor.Text()
		if scraper.SanitizeTitle(title) == "" {
			title, _ = anchor.Attr("title")
		}
		href, _ := anchor.Attr("href")

		listing, ok := newListing(v.Name(), v.baseURL, title, href)
		if !ok {
			log.Debug().Str("source", v.Name()).Int("item", i).Msg("Skipping malformed listing item")
			return
		}
		listings = append(listings, listing)
	})

	hasMore := doc.Find("a.next.page-numbers, .pagination a.next").Length() > 0
	return listings, hasMore, nil
}

var vegaThumbnailStrategies = []scraper.ThumbnailStrategy{
	{Selector: ".entry-inner img", Attr: "src"},
	{Selector: ".post-thumbnail img", Attr: "src"},
	{Selector: ".entry-content img", Attr: "data-lazy-src"},
}

const vegaDownloadPrimary = `.entry-content a.dl-button`

var vegaDownloadFallbacks = []string{
	`.dlbtn a`,
	`.entry-content h3 a`,
	`.entry-content p a[href*="download"]`,
	`.entry-content a.btn`,
}

func (v *VegaMovies) parseDetail(html []byte, pageURL string) (models.DetailFragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return models.DetailFragment{}, err
	}

	const infoBlock = ".entry-content p, .entry-content li"

	frag := models.DetailFragment{
		Thumbnail:     scraper.ExtractThumbnail(doc, pageURL, vegaThumbnailStrategies),
		DownloadLinks: scraper.ExtractDownloadLinks(doc, pageURL, vegaDownloadPrimary, vegaDownloadFallbacks),
		Genres:        scraper.SplitList(scraper.ExtractLabeledField(doc, infoBlock, []string{"Genres", "Genre"})),
		Language:      scraper.ExtractLabeledField(doc, infoBlock, []string{"Language", "Audio"}),
		Format:        scraper.ExtractLabeledField(doc, infoBlock, []string{"Format", "Quality"}),
		ReleaseDate:   scraper.ExtractLabeledField(doc, infoBlock, []string{"Release Date", "Released"}),
		Cast:          scraper.ExtractLabeledField(doc, infoBlock, []string{"Starring", "Stars", "Cast"}),
		Size:          scraper.ExtractSize(scraper.ExtractLabeledField(doc, infoBlock, []string{"Size"})),
	}

	if synopsis := scraper.ExtractLabeledField(doc, infoBlock, []string{"Synopsis", "Storyline", "Movie-SYNOPSIS/PLOT"}); synopsis != "" {
		frag.Synopsis = synopsis
	}

	doc.Find(".entry-content img.aligncenter, .gallery img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		u := scraper.ResolveURL(pageURL, src)
		if scraper.LooksLikeImageURL(u) && u != frag.Thumbnail {
			frag.Gallery = append(frag.Gallery, u)
		}
	})

	frag.Quality = scraper.ExtractQuality(doc.Find("h1.entry-title").Text())
	return frag, nil
}
