// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Collector aggregates scrape engine metrics.
type Collector struct {
	registry *prometheus.Registry

	ScrapesTotal    *prometheus.CounterVec
	ScrapeDuration  *prometheus.HistogramVec
	RateLimiterWait prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		ScrapesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinefeed_scrapes_total",
			Help: "Scrape operations by source and outcome",
		}, []string{"source", "outcome"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinefeed_scrape_duration_seconds",
			Help:    "Duration of scrape operations by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		RateLimiterWait: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinefeed_ratelimiter_waits_total",
			Help: "Times a request was suspended by the rate limiter",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ScrapesTotal,
		c.ScrapeDuration,
		c.RateLimiterWait,
	)

	return c
}

// ObserveScrape records one scrape operation.
func (c *Collector) ObserveScrape(source string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.ScrapesTotal.WithLabelValues(source, outcome).Inc()
	c.ScrapeDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Server exposes the collector on a dedicated listener, separate from the
// main API port.
type Server struct {
	collector *Collector
	host      string
	port      int
}

func NewServer(collector *Collector, host string, port int) *Server {
	return &Server{collector: collector, host: host, port: port}
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.collector.registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	log.Info().Str("addr", addr).Msg("Starting metrics server")
	return http.ListenAndServe(addr, mux)
}
