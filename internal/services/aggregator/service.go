// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package aggregator composes the scraping engine per request: fan-out to
// the relevant adapters, partial-success joins, content filtering, optional
// detail enrichment, dedupe and the final response envelope.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cinefeed/cinefeed/internal/domain"
	"github.com/cinefeed/cinefeed/internal/metrics"
	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/scraper"
	"github.com/cinefeed/cinefeed/internal/sources"
)

const (
	// Freshness intents handed to the shell, advisory only.
	cacheHintDetailed = 10 * time.Minute
	cacheHintListing  = 5 * time.Minute

	defaultMinQueryLength = 2
	defaultMaxQueryLength = 100
)

// Service is the aggregation orchestrator consumed by the HTTP shell.
type Service struct {
	registry  *sources.Registry
	collector *metrics.Collector
	logger    zerolog.Logger

	// Dynamic settings, swapped wholesale on config reload.
	mu    sync.RWMutex
	cfg   domain.ScraperConfig
	batch *scraper.BatchProcessor
}

func NewService(registry *sources.Registry, cfg domain.ScraperConfig, collector *metrics.Collector) *Service {
	cfg = normalizeConfig(cfg)

	return &Service{
		registry:  registry,
		collector: collector,
		logger:    log.Logger.With().Str("module", "aggregator").Logger(),
		cfg:       cfg,
		batch:     buildBatchProcessor(cfg),
	}
}

// ApplyConfig swaps the dynamic scraper settings, typically from a config
// reload listener. In-flight requests finish with the values they started
// with; subsequent requests see the new ones.
func (s *Service) ApplyConfig(cfg domain.ScraperConfig) {
	cfg = normalizeConfig(cfg)
	batch := buildBatchProcessor(cfg)

	s.mu.Lock()
	s.cfg = cfg
	s.batch = batch
	s.mu.Unlock()

	s.logger.Info().Msg("Applied updated scraper settings")
}

func (s *Service) config() domain.ScraperConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) processor() *scraper.BatchProcessor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch
}

func normalizeConfig(cfg domain.ScraperConfig) domain.ScraperConfig {
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = defaultMinQueryLength
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = defaultMaxQueryLength
	}
	return cfg
}

func buildBatchProcessor(cfg domain.ScraperConfig) *scraper.BatchProcessor {
	batch := scraper.NewBatchProcessor(cfg.ConcurrencyLimit)
	if cfg.StaggerDelayMs > 0 {
		batch.StaggerDelay = time.Duration(cfg.StaggerDelayMs) * time.Millisecond
	}
	if cfg.BatchDelayMs > 0 {
		batch.BatchDelay = time.Duration(cfg.BatchDelayMs) * time.Millisecond
	}
	return batch
}

// sourceResult is one adapter's contribution to a request.
type sourceResult struct {
	source   string
	listings []models.MovieListing
	hasMore  bool
	err      error
}

// GetHomeListings returns the combined "latest"+"popular" front listing,
// optionally restricted to a single source.
func (s *Service) GetHomeListings(ctx context.Context, includeDetails bool, sourceFilter string) (env *models.ResultEnvelope, err error) {
	defer s.recoverBoundary(&err)

	srcs := s.selectSources(sourceFilter)
	if len(srcs) == 0 {
		return nil, scraper.NewValidationError("unknown source %q", sourceFilter)
	}

	results := s.fanOut(ctx, srcs, func(ctx context.Context, src sources.Source) ([]models.MovieListing, bool, error) {
		listings, hasMore, err := src.ListLatest(ctx, 1)
		if err != nil {
			return nil, false, err
		}
		if popular, ok := src.(sources.PopularLister); ok {
			extra, perr := popular.ListPopular(ctx)
			if perr != nil {
				// Popular is a bonus section; the latest listing stands on
				// its own.
				s.logger.Warn().Err(perr).Str("source", src.Name()).Msg("Popular listing failed, serving latest only")
			} else {
				listings = append(listings, extra...)
			}
		}
		return listings, hasMore, nil
	})

	return s.assemble(ctx, results, includeDetails)
}

// GetListings is the general paginated/filterable entry point.
func (s *Service) GetListings(ctx context.Context, req models.ScrapeRequest) (env *models.ResultEnvelope, err error) {
	defer s.recoverBoundary(&err)

	if req.Query != "" {
		if verr := s.validateQuery(req.Query); verr != nil {
			return nil, verr
		}
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	var results []sourceResult
	switch {
	case req.Query != "":
		results = s.fanOut(ctx, s.registry.All(), func(ctx context.Context, src sources.Source) ([]models.MovieListing, bool, error) {
			listings, err := src.Search(ctx, req.Query)
			return listings, false, err
		})
	case req.Category != "":
		lister, ok := s.categorySource()
		if !ok {
			return nil, scraper.NewValidationError("category filtering is not available")
		}
		results = s.fanOut(ctx, []sources.Source{lister.(sources.Source)}, func(ctx context.Context, src sources.Source) ([]models.MovieListing, bool, error) {
			return lister.ListCategory(ctx, req.Category, page)
		})
	default:
		results = s.fanOut(ctx, s.registry.All(), func(ctx context.Context, src sources.Source) ([]models.MovieListing, bool, error) {
			return src.ListLatest(ctx, page)
		})
	}

	env, err = s.assemble(ctx, results, req.IncludeDetails)
	if err != nil {
		return nil, err
	}
	if env.HasMore {
		env.NextPage = page + 1
	}
	return env, nil
}

// SearchMovies searches every adapter for query. The query is validated
// here: GetListings treats an empty query as "no query" and would fall
// back to the latest listing instead of rejecting the request.
func (s *Service) SearchMovies(ctx context.Context, query string, includeDetails bool) (*models.ResultEnvelope, error) {
	if verr := s.validateQuery(query); verr != nil {
		return nil, verr
	}
	return s.GetListings(ctx, models.ScrapeRequest{Query: query, IncludeDetails: includeDetails})
}

// GetCategories returns the static facet list from the category-owning
// source.
func (s *Service) GetCategories(ctx context.Context) ([]models.Category, error) {
	lister, ok := s.categorySource()
	if !ok {
		return nil, nil
	}
	return lister.Categories(), nil
}

func (s *Service) validateQuery(query string) error {
	cfg := s.config()

	q := strings.TrimSpace(query)
	if q == "" {
		return scraper.NewValidationError("search query must not be empty")
	}
	if len(q) < cfg.MinQueryLength {
		return scraper.NewValidationError("search query must be at least %d characters", cfg.MinQueryLength)
	}
	if len(q) > cfg.MaxQueryLength {
		return scraper.NewValidationError("search query must be at most %d characters", cfg.MaxQueryLength)
	}
	return nil
}

func (s *Service) selectSources(filter string) []sources.Source {
	if filter == "" {
		return s.registry.All()
	}
	src, ok := s.registry.Get(filter)
	if !ok {
		return nil
	}
	return []sources.Source{src}
}

func (s *Service) categorySource() (sources.CategoryLister, bool) {
	for _, src := range s.registry.All() {
		if lister, ok := src.(sources.CategoryLister); ok {
			return lister, true
		}
	}
	return nil, false
}

// fanOut runs op against every source concurrently with the retry policy.
// A source's terminal failure is recovered locally: it is logged and the
// source contributes zero listings.
func (s *Service) fanOut(ctx context.Context, srcs []sources.Source, op func(context.Context, sources.Source) ([]models.MovieListing, bool, error)) []sourceResult {
	results := make([]sourceResult, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			var listings []models.MovieListing
			var hasMore bool

			err := scraper.Do(ctx, func() error {
				var opErr error
				listings, hasMore, opErr = op(ctx, src)
				return opErr
			})

			if s.collector != nil {
				s.collector.ObserveScrape(src.Name(), err, time.Since(start))
			}
			if err != nil {
				s.logger.Warn().Err(err).Str("source", src.Name()).Msg("Source failed, continuing without it")
			}
			results[i] = sourceResult{source: src.Name(), listings: listings, hasMore: hasMore, err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

// assemble turns per-source results into the final envelope: policy filter,
// optional enrichment, dedupe, counts.
func (s *Service) assemble(ctx context.Context, results []sourceResult, includeDetails bool) (*models.ResultEnvelope, error) {
	var merged []models.MovieListing
	hasMore := false
	allFailed := len(results) > 0

	for _, res := range results {
		if res.err != nil {
			continue
		}
		allFailed = false
		merged = append(merged, s.filterDisallowed(res.listings)...)
		if res.hasMore {
			hasMore = true
		}
	}

	if allFailed {
		if s.config().TotalFailureIsFatal {
			return nil, &scraper.ScrapingError{StatusCode: 502, Cause: fmt.Errorf("all %d sources failed", len(results))}
		}
		s.logger.Warn().Int("sources", len(results)).Msg("Every source failed, returning empty envelope")
		return &models.ResultEnvelope{Items: []models.MovieDetail{}, CacheHint: cacheHintListing}, nil
	}

	var details []models.MovieDetail
	if includeDetails {
		details = s.enrich(ctx, merged)
	} else {
		details = make([]models.MovieDetail, 0, len(merged))
		for _, listing := range merged {
			details = append(details, models.MovieDetail{MovieListing: listing})
		}
	}

	details = scraper.Dedupe(details)

	hint := cacheHintListing
	if includeDetails {
		hint = cacheHintDetailed
	}

	return &models.ResultEnvelope{
		Items:     details,
		Total:     len(details),
		HasMore:   hasMore,
		CacheHint: hint,
	}, nil
}

// enrich partitions listings by owning source and fans detail fetches out
// through the batch processor. A per-item failure yields the original
// listing unenriched; items are never dropped here.
func (s *Service) enrich(ctx context.Context, listings []models.MovieListing) []models.MovieDetail {
	groups := make(map[string][]models.MovieListing)
	for _, l := range listings {
		groups[l.Source] = append(groups[l.Source], l)
	}

	var mu sync.Mutex
	bySource := make(map[string][]models.MovieDetail, len(groups))

	batch := s.processor()
	var g errgroup.Group
	for name, group := range groups {
		src, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		name, group, src := name, group, src
		g.Go(func() error {
			enriched := scraper.ProcessAll(ctx, batch, group, func(ctx context.Context, listing models.MovieListing) (models.MovieDetail, error) {
				frag, err := src.FetchDetail(ctx, listing.Link)
				if err != nil {
					s.logger.Debug().Err(err).Str("source", name).Str("link", listing.Link).Msg("Detail fetch failed, keeping bare listing")
					return models.MovieDetail{MovieListing: listing}, nil
				}
				return models.MergeDetail(listing, frag), nil
			})
			mu.Lock()
			bySource[name] = enriched
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// Reassemble in the original listing order.
	offsets := make(map[string]int, len(bySource))
	out := make([]models.MovieDetail, 0, len(listings))
	for _, l := range listings {
		group := bySource[l.Source]
		i := offsets[l.Source]
		if i < len(group) {
			out = append(out, group[i])
			offsets[l.Source] = i + 1
		}
	}
	return out
}

func (s *Service) filterDisallowed(listings []models.MovieListing) []models.MovieListing {
	tokens := s.config().DisallowedTitleTokens
	if len(tokens) == 0 {
		return listings
	}
	out := listings[:0:0]
	for _, l := range listings {
		lower := strings.ToLower(l.Title)
		blocked := false
		for _, token := range tokens {
			if token != "" && strings.Contains(lower, strings.ToLower(token)) {
				blocked = true
				break
			}
		}
		if blocked {
			s.logger.Debug().Str("title", l.Title).Msg("Dropping listing by content policy")
			continue
		}
		out = append(out, l)
	}
	return out
}

// recoverBoundary maps panics escaping an operation to an opaque internal
// error so adapter internals never leak to the caller.
func (s *Service) recoverBoundary(err *error) {
	if r := recover(); r != nil {
		s.logger.Error().Any("panic", r).Msg("Recovered panic at aggregator boundary")
		*err = fmt.Errorf("internal aggregation failure")
	}
}
