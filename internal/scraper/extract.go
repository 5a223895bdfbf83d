// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cinefeed/cinefeed/internal/models"
)

// qualityOrder is the fixed best-to-worst ordering used for download-link
// sorting and dedupe tie-breaking. Resolution tokens outrank format tokens.
var qualityOrder = []string{
	"4K", "2160P", "1440P", "1080P", "720P", "480P", "360P",
	"BLURAY", "WEBRIP", "HDRIP", "HDTV", "DVDRIP", "HD", "SD",
}

var sizePattern = regexp.MustCompile(`(?i)[\[(]?\s*(\d+(?:\.\d+)?\s*(?:GB|MB|KB))\s*[\])]?`)

// ExtractQuality scans text (typically title plus URL) for the best known
// quality token. The first token in priority order that appears anywhere in
// the text wins, case-normalized to upper case. Empty when nothing matches.
func ExtractQuality(text string) string {
	upper := strings.ToUpper(text)
	for _, token := range qualityOrder {
		if containsToken(upper, token) {
			return token
		}
	}
	return ""
}

// containsToken matches a quality token without tripping over substrings:
// "HD" must not match inside "HDRIP" or "HDTV".
func containsToken(upper, token string) bool {
	idx := 0
	for {
		i := strings.Index(upper[idx:], token)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(token)
		beforeOK := start == 0 || !isAlphaNum(upper[start-1])
		afterOK := end == len(upper) || !isAlphaNum(upper[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(upper) {
			return false
		}
	}
}

func isAlphaNum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// QualityRank returns the token's index in the fixed quality order; unknown
// or empty tokens rank after every known one.
func QualityRank(quality string) int {
	q := strings.ToUpper(strings.TrimSpace(quality))
	for i, token := range qualityOrder {
		if q == token {
			return i
		}
	}
	return len(qualityOrder)
}

// ExtractSize pulls a "1.4GB" style size tag out of text, tolerating
// brackets and internal spacing.
func ExtractSize(text string) string {
	m := sizePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(m[1], " ", ""))
}

// SanitizeTitle collapses runs of whitespace and trims the result.
func SanitizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// ResolveURL makes href absolute against base, handling protocol-relative,
// root-relative and path-relative forms. Returns empty on unusable input.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ru, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(ru).String()
}

// ValidAbsoluteURL reports whether s parses as an absolute http(s) URL.
func ValidAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// LooksLikeImageURL is the acceptance heuristic for thumbnail candidates:
// an image extension, or an image-ish keyword in the path.
func LooksLikeImageURL(s string) bool {
	if !ValidAbsoluteURL(s) {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "image") || strings.Contains(lower, "poster") || strings.Contains(lower, "thumb")
}

// ThumbnailStrategy is one step in an ordered thumbnail extraction chain.
type ThumbnailStrategy struct {
	Selector string
	Attr     string
}

// Generic meta fallbacks appended after every site-specific strategy.
var metaThumbnailStrategies = []ThumbnailStrategy{
	{Selector: `meta[property="og:image"]`, Attr: "content"},
	{Selector: `meta[name="twitter:image"]`, Attr: "content"},
}

// ExtractThumbnail walks the site-specific strategies, then the generic meta
// fallbacks, and returns the first candidate passing the image heuristic.
func ExtractThumbnail(doc *goquery.Document, baseURL string, strategies []ThumbnailStrategy) string {
	all := make([]ThumbnailStrategy, 0, len(strategies)+len(metaThumbnailStrategies))
	all = append(all, strategies...)
	all = append(all, metaThumbnailStrategies...)

	for _, strat := range all {
		attr := strat.Attr
		if attr == "" {
			attr = "src"
		}
		var found string
		doc.Find(strat.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, ok := s.Attr(attr)
			if !ok {
				return true
			}
			candidate := ResolveURL(baseURL, raw)
			if LooksLikeImageURL(candidate) {
				found = candidate
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// ExtractDownloadLinks tries the primary selector, then each fallback in
// order, stopping at the first selector yielding at least one link. Links are
// deduplicated by URL; repeated normalized labels get a distinguishing suffix
// rather than being dropped.
func ExtractDownloadLinks(doc *goquery.Document, baseURL string, primary string, fallbacks []string) []models.DownloadLink {
	selectors := append([]string{primary}, fallbacks...)

	for _, selector := range selectors {
		links := collectLinks(doc, baseURL, selector)
		if len(links) > 0 {
			return SortLinksByQuality(links)
		}
	}
	return nil
}

func collectLinks(doc *goquery.Document, baseURL, selector string) []models.DownloadLink {
	var links []models.DownloadLink
	seenURL := make(map[string]struct{})
	labelCount := make(map[string]int)

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := ResolveURL(baseURL, href)
		if !ValidAbsoluteURL(link) {
			return
		}
		if _, dup := seenURL[link]; dup {
			return
		}
		seenURL[link] = struct{}{}

		label := SanitizeTitle(s.Text())
		if label == "" {
			label = "Download"
		}
		norm := strings.ToLower(label)
		labelCount[norm]++
		if n := labelCount[norm]; n > 1 {
			if n == 2 {
				label += " (Backup)"
			} else {
				label += fmt.Sprintf(" (Backup %d)", n-1)
			}
		}

		links = append(links, models.DownloadLink{Label: label, URL: link})
	})
	return links
}

// SortLinksByQuality orders links by the fixed quality order of their labels.
// Labels matching no known token sort after every ranked link, keeping their
// original relative order.
func SortLinksByQuality(links []models.DownloadLink) []models.DownloadLink {
	sorted := append([]models.DownloadLink(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return QualityRank(ExtractQuality(sorted[i].Label)) < QualityRank(ExtractQuality(sorted[j].Label))
	})
	return sorted
}

// ExtractLabeledField scans the selections matching selector for a block
// whose text carries one of the label strings ("Genre: Action ..."), and
// returns the value following the first matching label. Absent labels leave
// the field unset rather than erroring.
func ExtractLabeledField(doc *goquery.Document, selector string, labels []string) string {
	var value string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := SanitizeTitle(s.Text())
		for _, label := range labels {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*[:\-–]\s*(.+)`)
			if m := re.FindStringSubmatch(text); m != nil {
				value = strings.TrimSpace(m[1])
				return false
			}
		}
		return true
	})
	return value
}

// SplitList breaks a comma- or pipe-separated field value into a trimmed,
// deduplicated list.
func SplitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '|' || r == '/'
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
