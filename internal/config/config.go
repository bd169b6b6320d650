// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package config provides layered application configuration via koanf.
//
// Configuration is merged from three layers with clear precedence:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (CONFIG_PATH or the default paths)
//  3. Environment variables: override any setting
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/bibliographus/internal/fetch"
	"github.com/tomtom215/bibliographus/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bibliographus/config.yaml",
	"/etc/bibliographus/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root application configuration.
type Config struct {
	Data      DataConfig       `koanf:"data"`
	Recommend recommend.Config `koanf:"recommend"`
	Cache     CacheConfig      `koanf:"cache"`
	Fetch     fetch.Config     `koanf:"fetch"`
	Server    ServerConfig     `koanf:"server"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// DataConfig locates the CSV snapshots the engine is built from.
type DataConfig struct {
	BooksPath   string `koanf:"books_path"`
	RatingsPath string `koanf:"ratings_path"`
	UsersPath   string `koanf:"users_path"`
}

// CacheConfig bounds the cover image cache.
type CacheConfig struct {
	Capacity int `koanf:"capacity"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			BooksPath:   "/data/books.csv",
			RatingsPath: "/data/ratings.csv",
			UsersPath:   "", // Optional; empty skips the user table
		},
		Recommend: *recommend.DefaultConfig(),
		Cache: CacheConfig{
			Capacity: 200,
		},
		Fetch: fetch.Config{
			Timeout:           10 * time.Second,
			MaxBodyBytes:      5 << 20,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8642,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BOOKS_PATH -> data.books_path, HTTP_PORT -> server.port, etc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated slices when supplied via environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults).
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables are ignored so unrelated environment noise never
// reaches the config tree.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"books_path":   "data.books_path",
		"ratings_path": "data.ratings_path",
		"users_path":   "data.users_path",

		"min_user_ratings": "recommend.min_user_ratings",
		"min_book_ratings": "recommend.min_book_ratings",
		"popularity_floor": "recommend.popularity_floor",

		"cover_cache_capacity": "cache.capacity",

		"fetch_timeout":             "fetch.timeout",
		"fetch_max_body_bytes":      "fetch.max_body_bytes",
		"fetch_requests_per_second": "fetch.requests_per_second",
		"fetch_burst":               "fetch.burst",

		"http_host":         "server.host",
		"http_port":         "server.port",
		"http_timeout":      "server.timeout",
		"shutdown_timeout":  "server.shutdown_timeout",
		"cors_origins":      "server.cors_origins",
		"rate_limit_reqs":   "server.rate_limit_reqs",
		"rate_limit_window": "server.rate_limit_window",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	return envMappings[strings.ToLower(key)]
}

// Validate checks configuration invariants that koanf cannot express.
func (c *Config) Validate() error {
	if c.Data.BooksPath == "" {
		return fmt.Errorf("data.books_path is required")
	}
	if c.Data.RatingsPath == "" {
		return fmt.Errorf("data.ratings_path is required")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("server.rate_limit_reqs must not be negative, got %d", c.Server.RateLimitReqs)
	}
	return nil
}
