// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/domain"
)

func TestConfigDirResolution(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		setupFile      bool
		fileIsDir      bool
		expectedSuffix string
	}{
		{
			name:           "toml_file_extension",
			input:          "/path/to/custom.toml",
			expectedSuffix: "custom.toml",
		},
		{
			name:           "TOML_file_extension_uppercase",
			input:          "/path/to/CONFIG.TOML",
			expectedSuffix: "CONFIG.TOML",
		},
		{
			name:           "directory_path",
			input:          "/path/to/config",
			expectedSuffix: "config.toml",
		},
		{
			name:           "existing_file_without_toml",
			input:          "/path/to/configfile",
			setupFile:      true,
			fileIsDir:      false,
			expectedSuffix: "configfile",
		},
		{
			name:           "existing_directory",
			input:          "/path/to/configdir",
			setupFile:      true,
			fileIsDir:      true,
			expectedSuffix: "config.toml",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			inputPath := filepath.Join(tmpDir, filepath.Base(tt.input))

			if tt.setupFile {
				if tt.fileIsDir {
					err := os.MkdirAll(inputPath, 0o755)
					require.NoError(t, err)
				} else {
					err := os.WriteFile(inputPath, []byte("test"), 0o644)
					require.NoError(t, err)
				}
			}

			c := &AppConfig{}
			result := c.resolveConfigPath(inputPath)
			assert.True(t, strings.HasSuffix(result, tt.expectedSuffix),
				"Expected result %s to end with %s", result, tt.expectedSuffix)
		})
	}
}

func TestNewLoadsConfigFromFileOrDirectory(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, tmpDir string) (inputPath string, expectedHost string, expectedPort int)
	}{
		{
			name: "config_file_path",
			prepare: func(t *testing.T, tmpDir string) (string, string, int) {
				configPath := filepath.Join(tmpDir, "myconfig.toml")
				content := "host = \"localhost\"\nport = 8080\n"
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, "localhost", 8080
			},
		},
		{
			name: "config_directory_path",
			prepare: func(t *testing.T, tmpDir string) (string, string, int) {
				configDir := filepath.Join(tmpDir, "configdir")
				require.NoError(t, os.MkdirAll(configDir, 0o755))
				content := "host = \"0.0.0.0\"\nport = 9090\n"
				require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
				return configDir, "0.0.0.0", 9090
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			inputPath, expectedHost, expectedPort := tt.prepare(t, tmpDir)

			cfg, err := New(inputPath)
			require.NoError(t, err)

			assert.Equal(t, expectedHost, cfg.Config.Host)
			assert.Equal(t, expectedPort, cfg.Config.Port)
		})
	}
}

func TestScraperDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("host = \"localhost\"\nport = 7480\n"), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	sc := cfg.Config.Scraper
	assert.Equal(t, 2, sc.MinQueryLength)
	assert.Equal(t, 100, sc.MaxQueryLength)
	assert.Equal(t, 60, sc.RateLimitWindowSeconds)
	assert.Equal(t, 20, sc.RateLimitMaxRequests)
	assert.Equal(t, 5, sc.ConcurrencyLimit)
	assert.Equal(t, 100, sc.StaggerDelayMs)
	assert.Equal(t, 500, sc.BatchDelayMs)
	assert.False(t, sc.TotalFailureIsFatal)
}

func TestScraperSectionOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	content := `host = "localhost"
port = 7480

[scraper]
minQueryLength = 3
rateLimitMaxRequests = 5
concurrencyLimit = 2
disallowedTitleTokens = ["cam", "screener"]
totalFailureIsFatal = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	sc := cfg.Config.Scraper
	assert.Equal(t, 3, sc.MinQueryLength)
	assert.Equal(t, 5, sc.RateLimitMaxRequests)
	assert.Equal(t, 2, sc.ConcurrencyLimit)
	assert.Equal(t, []string{"cam", "screener"}, sc.DisallowedTitleTokens)
	assert.True(t, sc.TotalFailureIsFatal)

	// untouched keys keep defaults
	assert.Equal(t, 100, sc.MaxQueryLength)
	assert.Equal(t, 500, sc.BatchDelayMs)
}

func TestEnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		check  func(t *testing.T, c *AppConfig)
	}{
		{
			name:   "port",
			envKey: envPrefix + "PORT",
			envVal: "9999",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 9999, c.Config.Port)
			},
		},
		{
			name:   "log_level",
			envKey: envPrefix + "LOG_LEVEL",
			envVal: "DEBUG",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, "DEBUG", c.Config.LogLevel)
			},
		},
		{
			name:   "rate_limit_max_requests",
			envKey: envPrefix + "SCRAPER_RATE_LIMIT_MAX_REQUESTS",
			envVal: "7",
			check: func(t *testing.T, c *AppConfig) {
				assert.Equal(t, 7, c.Config.Scraper.RateLimitMaxRequests)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.toml")
			require.NoError(t, os.WriteFile(configPath, []byte("host = \"localhost\"\n"), 0o644))
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := New(configPath)
			require.NoError(t, err)

			tt.check(t, cfg)
		})
	}
}

func TestWriteDefaultConfigCreatesReadableFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.toml")

	require.NoError(t, WriteDefaultConfig(configPath))

	cfg, err := New(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7480, cfg.Config.Port)
	assert.Equal(t, "INFO", cfg.Config.LogLevel)
}

func TestReloadListenerReceivesCopy(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf("host = %q\nport = 7480\n", "localhost")), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	var seen []string
	cfg.RegisterReloadListener(func(c *domain.Config) {
		seen = append(seen, c.Host)
	})

	cfg.notifyListeners()
	require.Len(t, seen, 1)
	assert.Equal(t, "localhost", seen[0])
}
