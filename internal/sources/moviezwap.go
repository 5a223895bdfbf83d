// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package sources

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/scraper"
)

const moviezWapBaseURL = "https://www.moviezwap.pink"

// MoviezWap scrapes a table-based catalog. The site exposes no pagination,
// so listing calls always report no more pages. Hrefs on this site are
// path-relative ("movie/Title.html"), not root-relative.
type MoviezWap struct {
	fetcher *scraper.Fetcher
	baseURL string
}

func NewMoviezWap(fetcher *scraper.Fetcher) *MoviezWap {
	return &MoviezWap{fetcher: fetcher, baseURL: moviezWapBaseURL}
}

func (m *MoviezWap) Name() string { return "moviezwap" }

func (m *MoviezWap) ListLatest(ctx context.Context, page int) ([]models.MovieListing, bool, error) {
	body, err := m.fetcher.Fetch(ctx, m.baseURL+"/category/latest-updates.html")
	if err != nil {
		return nil, false, err
	}
	listings, err := m.parseListing(body)
	return listings, false, err
}

func (m *MoviezWap) Search(ctx context.Context, query string) ([]models.MovieListing, error) {
	searchURL := m.baseURL + "/search.php?q=" + url.QueryEscape(query)
	body, err := m.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return m.parseListing(body)
}

func (m *MoviezWap) FetchDetail(ctx context.Context, link string) (models.DetailFragment, error) {
	body, err := m.fetcher.FetchDetail(ctx, link)
	if err != nil {
		return models.DetailFragment{}, err
	}
	return m.parseDetail(body, link)
}

func (m *MoviezWap) parseListing(html []byte) ([]models.MovieListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var listings []models.MovieListing
	doc.Find("table.list tr td a, .listbox a").Each(func(i int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		// Catalog rows link movie pages; skip nav/footer anchors in the
		// same table.
		if !strings.Contains(href, "/movie/") && !strings.HasPrefix(href, "movie/") {
			return
		}

		// Path-relative hrefs need an explicit directory base to resolve.
		base := m.baseURL + "/"
		listing, ok := newListing(m.Name(), base, anchor.Text(), href)
		if !ok {
			log.Debug().Str("source", m.Name()).Int("item", i).Msg("Skipping malformed listing item")
			return
		}
		listings = append(listings, listing)
	})
	return listings, nil
}

var moviezThumbnailStrategies = []scraper.ThumbnailStrategy{
	{Selector: ".movie-poster img", Attr: "src"},
	{Selector: "td img.poster", Attr: "src"},
}

const moviezDownloadPrimary = `a.dwnLink`

var moviezDownloadFallbacks = []string{
	`td a[href*="download"]`,
	`a[href*="getlink"]`,
}

func (m *MoviezWap) parseDetail(html []byte, pageURL string) (models.DetailFragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return models.DetailFragment{}, err
	}

	// Structured fields live in "Label : value" table rows.
	const infoBlock = "table tr td, .movie-info p"

	frag := models.DetailFragment{
		Thumbnail:     scraper.ExtractThumbnail(doc, pageURL, moviezThumbnailStrategies),
		DownloadLinks: scraper.ExtractDownloadLinks(doc, pageURL, moviezDownloadPrimary, moviezDownloadFallbacks),
		Genres:        scraper.SplitList(scraper.ExtractLabeledField(doc, infoBlock, []string{"Genre"})),
		Language:      scraper.ExtractLabeledField(doc, infoBlock, []string{"Language"}),
		Format:        scraper.ExtractLabeledField(doc, infoBlock, []string{"Format", "File Format"}),
		ReleaseDate:   scraper.ExtractLabeledField(doc, infoBlock, []string{"Release Date", "Year"}),
		Cast:          scraper.ExtractLabeledField(doc, infoBlock, []string{"Starring", "Cast"}),
		Synopsis:      scraper.ExtractLabeledField(doc, infoBlock, []string{"Story", "Plot"}),
		Size:          scraper.ExtractSize(scraper.ExtractLabeledField(doc, infoBlock, []string{"Size", "File Size"})),
	}
	return frag, nil
}
