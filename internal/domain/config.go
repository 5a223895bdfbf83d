// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config holds the runtime configuration, populated from the TOML config file
// and CINEFEED__ environment variables.
type Config struct {
	Version string

	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"baseUrl"`

	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`

	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	MetricsHost    string `mapstructure:"metricsHost"`
	MetricsPort    int    `mapstructure:"metricsPort"`

	Scraper ScraperConfig `mapstructure:"scraper"`
}

// ScraperConfig tunes the scraping engine. All pacing knobs exist to stay
// under upstream abuse thresholds, not to guarantee server-side limits.
type ScraperConfig struct {
	MinQueryLength int `mapstructure:"minQueryLength"`
	MaxQueryLength int `mapstructure:"maxQueryLength"`

	// Sliding-window self throttle, shared by every adapter.
	RateLimitWindowSeconds int `mapstructure:"rateLimitWindowSeconds"`
	RateLimitMaxRequests   int `mapstructure:"rateLimitMaxRequests"`

	// Detail-enrichment fan-out.
	ConcurrencyLimit int `mapstructure:"concurrencyLimit"`
	StaggerDelayMs   int `mapstructure:"staggerDelayMs"`
	BatchDelayMs     int `mapstructure:"batchDelayMs"`

	// Listings whose title contains any of these tokens are dropped before
	// enrichment and dedupe.
	DisallowedTitleTokens []string `mapstructure:"disallowedTitleTokens"`

	// When true, a request where every source failed returns a scraping error
	// instead of an empty envelope.
	TotalFailureIsFatal bool `mapstructure:"totalFailureIsFatal"`
}
