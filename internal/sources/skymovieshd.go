// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package sources

import (
	"bytes"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/scraper"
)

const skyMoviesBaseURL = "https://skymovieshd.land"

// SkyMoviesHD scrapes a plain div/anchor layout. It distinguishes a
// most-watched section, so it also serves the popular listing. No
// pagination; hrefs are root-relative.
type SkyMoviesHD struct {
	fetcher *scraper.Fetcher
	baseURL string
}

func NewSkyMoviesHD(fetcher *scraper.Fetcher) *SkyMoviesHD {
	return &SkyMoviesHD{fetcher: fetcher, baseURL: skyMoviesBaseURL}
}

func (s *SkyMoviesHD) Name() string { return "skymovieshd" }

func (s *SkyMoviesHD) ListLatest(ctx context.Context, page int) ([]models.MovieListing, bool, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL+"/latest-movie.html")
	if err != nil {
		return nil, false, err
	}
	listings, err := s.parseListing(body)
	return listings, false, err
}

// ListPopular returns the site's most-watched section.
func (s *SkyMoviesHD) ListPopular(ctx context.Context) ([]models.MovieListing, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL+"/most-watched.html")
	if err != nil {
		return nil, err
	}
	return s.parseListing(body)
}

func (s *SkyMoviesHD) Search(ctx context.Context, query string) ([]models.MovieListing, error) {
	searchURL := s.baseURL + "/search.php?search=" + url.QueryEscape(query)
	body, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return s.parseListing(body)
}

func (s *SkyMoviesHD) FetchDetail(ctx context.Context, link string) (models.DetailFragment, error) {
	body, err := s.fetcher.FetchDetail(ctx, link)
	if err != nil {
		return models.DetailFragment{}, err
	}
	return s.parseDetail(body, link)
}

func (s *SkyMoviesHD) parseListing(html []byte) ([]models.MovieListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	var listings []models.MovieListing
	doc.Find("div.Fmvideo, div.L").Each(func(i int, item *goquery.Selection) {
		anchor := item.Find("a").First()
		if anchor.Length() == 0 {
			return
		}
		href, _ := anchor.Attr("href")

		listing, ok := newListing(s.Name(), s.baseURL, anchor.Text(), href)
		if !ok {
			log.Debug().Str("source", s.Name()).Int("item", i).Msg("Skipping malformed listing item")
			return
		}
		listings = append(listings, listing)
	})
	return listings, nil
}

var skyThumbnailStrategies = []scraper.ThumbnailStrategy{
	{Selector: "div.movie-thumb img", Attr: "src"},
	{Selector: "div.Thumbnail img", Attr: "src"},
}

const skyDownloadPrimary = `div.Bolly a`

var skyDownloadFallbacks = []string{
	`div.Let a`,
	`a[href*="server"]`,
	`a[href*="howblogs"]`,
}

func (s *SkyMoviesHD) parseDetail(html []byte, pageURL string) (models.DetailFragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return models.DetailFragment{}, err
	}

	// Field blocks are colored div rows: "Genre: Action", "Language: Hindi".
	const infoBlock = "div.Fcolor, div.FontRed, small"

	frag := models.DetailFragment{
		Thumbnail:     scraper.ExtractThumbnail(doc, pageURL, skyThumbnailStrategies),
		DownloadLinks: scraper.ExtractDownloadLinks(doc, pageURL, skyDownloadPrimary, skyDownloadFallbacks),
		Genres:        scraper.SplitList(scraper.ExtractLabeledField(doc, infoBlock, []string{"Genre", "Genres"})),
		Language:      scraper.ExtractLabeledField(doc, infoBlock, []string{"Language"}),
		Format:        scraper.ExtractLabeledField(doc, infoBlock, []string{"Format"}),
		ReleaseDate:   scraper.ExtractLabeledField(doc, infoBlock, []string{"Release Date", "Released On"}),
		Cast:          scraper.ExtractLabeledField(doc, infoBlock, []string{"Starcast", "Starring"}),
		Synopsis:      scraper.ExtractLabeledField(doc, infoBlock, []string{"Description", "Story"}),
		Size:          scraper.ExtractSize(scraper.ExtractLabeledField(doc, infoBlock, []string{"Size"})),
	}
	return frag, nil
}
