// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/scraper"
)

const skyListingFixture = `<html><body>
<div class="Fmvideo"><a href="/movie/example-movie-2024.html">Example Movie (2024) Hindi HDRip</a></div>
<div class="Fmvideo"><a href="/movie/second-film.html">Second Film 480p</a></div>
<div class="Fmvideo"><span>no anchor here</span></div>
</body></html>`

const skyDetailFixture = `<html><body>
<div class="Thumbnail"><img src="https://cdn.example/thumbs/example.webp"></div>
<div class="Fcolor">Genre: Action</div>
<div class="Fcolor">Language: Hindi</div>
<div class="Fcolor">Starcast: Lead Actor</div>
<div class="Fcolor">Size: 900MB</div>
<div class="Bolly">
<a href="https://hub.example/server-1">Download Server 1</a>
<a href="https://hub.example/server-2">Download Server 2</a>
</div>
</body></html>`

func newSkyTestServer(t *testing.T, pages map[string]string) *SkyMoviesHD {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.RequestURI()]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	s := NewSkyMoviesHD(scraper.NewFetcher(nil))
	s.baseURL = srv.URL
	return s
}

func TestSkyMoviesHDListLatest(t *testing.T) {
	s := newSkyTestServer(t, map[string]string{
		"/latest-movie.html": skyListingFixture,
	})

	listings, hasMore, err := s.ListLatest(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, hasMore)
	require.Len(t, listings, 2, "item without an anchor must be skipped")
	assert.Equal(t, "Example Movie (2024) Hindi HDRip", listings[0].Title)
	assert.Equal(t, "HDRIP", listings[0].Quality)
	assert.Equal(t, "skymovieshd", listings[0].Source)
}

func TestSkyMoviesHDListPopular(t *testing.T) {
	s := newSkyTestServer(t, map[string]string{
		"/most-watched.html": skyListingFixture,
	})

	listings, err := s.ListPopular(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestSkyMoviesHDSearch(t *testing.T) {
	s := newSkyTestServer(t, map[string]string{
		"/search.php?search=example+movie": skyListingFixture,
	})

	listings, err := s.Search(context.Background(), "example movie")
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestSkyMoviesHDParseDetail(t *testing.T) {
	frag, err := NewSkyMoviesHD(scraper.NewFetcher(nil)).parseDetail([]byte(skyDetailFixture), "https://skymovieshd.land/movie/example-movie-2024.html")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/thumbs/example.webp", frag.Thumbnail)
	assert.Equal(t, []string{"Action"}, frag.Genres)
	assert.Equal(t, "Hindi", frag.Language)
	assert.Equal(t, "Lead Actor", frag.Cast)
	assert.Equal(t, "900MB", frag.Size)

	require.Len(t, frag.DownloadLinks, 2)
	assert.Equal(t, "Download Server 1", frag.DownloadLinks[0].Label)
	assert.Equal(t, "Download Server 2", frag.DownloadLinks[1].Label)
}
