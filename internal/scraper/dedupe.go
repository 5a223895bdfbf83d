// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"strings"

	"github.com/cinefeed/cinefeed/internal/models"
)

// Dedupe collapses near-duplicate titles across sources and pages, keeping
// the highest-quality variant of each. The base key is the title substring
// before the first '(' (commonly where a year or tag begins), trimmed and
// case-folded; titles without '(' key on the whole title. Distinct movies
// sharing a prefix before '(' therefore collapse into one entry; that lossy
// behaviour is kept deliberately for compatibility with existing consumers.
func Dedupe(movies []models.MovieDetail) []models.MovieDetail {
	type entry struct {
		index int
		rank  int
	}
	best := make(map[string]entry, len(movies))
	order := make([]string, 0, len(movies))

	for i, m := range movies {
		key := dedupeKey(m.Title)
		rank := QualityRank(m.Quality)

		cur, seen := best[key]
		if !seen {
			best[key] = entry{index: i, rank: rank}
			order = append(order, key)
			continue
		}
		// Strictly better quality replaces; ties keep the first encountered.
		if rank < cur.rank {
			best[key] = entry{index: i, rank: rank}
		}
	}

	out := make([]models.MovieDetail, 0, len(order))
	for _, key := range order {
		out = append(out, movies[best[key].index])
	}
	return out
}

func dedupeKey(title string) string {
	base := title
	if i := strings.Index(title, "("); i >= 0 {
		base = title[:i]
	}
	return strings.ToLower(strings.TrimSpace(base))
}
