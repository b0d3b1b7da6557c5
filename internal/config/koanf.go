// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

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
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cobasket/config.yaml",
	"/etc/cobasket/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			RequestTimeout:  5 * time.Minute, // Remote ingestion of large documents can be slow
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			DuckDB: DuckDBConfig{
				Path:      "/data/cobasket.duckdb",
				MaxMemory: "1GB",
				Threads:   0,
			},
			Badger: BadgerConfig{
				Path:     "/data/cobasket-graph",
				InMemory: false,
			},
			Neo4j: Neo4jConfig{
				URI:       "bolt://localhost:7687",
				Username:  "neo4j",
				Password:  "",
				Database:  "",
				BatchSize: 500,
			},
		},
		Source: SourceConfig{
			HTTPTimeout:       60 * time.Second,
			MaxBytes:          256 << 20, // 256MB
			BaseDir:           "",
			UserAgent:         "cobasket/1.0",
			FetchRateRequests: 10,
			FetchRateWindow:   time.Minute,
			Breaker: BreakerConfig{
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  3,
				FailureRatio: 0.6,
			},
		},
		Recommend: RecommendConfig{
			DefaultNumRecommendations:  5,
			DefaultThresholdPercent:    0,
			DefaultMinOrderCount:       1000,
			DefaultMinItemOrderedCount: 0,
			MaxRecommendations:         100,
			CacheEnabled:               true,
			CacheTTL:                   5 * time.Minute,
		},
		Rebuild: RebuildConfig{
			Enabled:   false,
			Locator:   "",
			IsRemote:  false,
			OnStartup: true,
			Interval:  24 * time.Hour,
			Timeout:   30 * time.Minute,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// STORE_BACKEND -> store.backend, NEO4J_URI -> store.neo4j.uri
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

// findConfigFile returns the path of the first config file found, or "" if none.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_request_timeout":  "server.request_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Store
	"store_backend":           "store.backend",
	"duckdb_path":             "store.duckdb.path",
	"duckdb_max_memory":       "store.duckdb.max_memory",
	"duckdb_threads":          "store.duckdb.threads",
	"badger_path":             "store.badger.path",
	"badger_in_memory":        "store.badger.in_memory",
	"neo4j_uri":               "store.neo4j.uri",
	"neo4j_username":          "store.neo4j.username",
	"neo4j_password":          "store.neo4j.password",
	"neo4j_database":          "store.neo4j.database",
	"neo4j_max_pool_size":     "store.neo4j.max_connection_pool_size",
	"neo4j_ingest_batch_size": "store.neo4j.batch_size",

	// Source
	"source_http_timeout":          "source.http_timeout",
	"source_max_bytes":             "source.max_bytes",
	"source_base_dir":              "source.base_dir",
	"source_user_agent":            "source.user_agent",
	"source_fetch_rate_requests":   "source.fetch_rate_requests",
	"source_fetch_rate_window":     "source.fetch_rate_window",
	"source_breaker_max_requests":  "source.breaker.max_requests",
	"source_breaker_interval":      "source.breaker.interval",
	"source_breaker_timeout":       "source.breaker.timeout",
	"source_breaker_min_requests":  "source.breaker.min_requests",
	"source_breaker_failure_ratio": "source.breaker.failure_ratio",

	// Recommend
	"recommend_num_recommendations":    "recommend.default_num_recommendations",
	"recommend_threshold_percent":      "recommend.default_threshold_percent",
	"recommend_min_order_count":        "recommend.default_min_order_count",
	"recommend_min_item_ordered_count": "recommend.default_min_item_ordered_count",
	"recommend_max_recommendations":    "recommend.max_recommendations",
	"recommend_cache_enabled":          "recommend.cache_enabled",
	"recommend_cache_ttl":              "recommend.cache_ttl",

	// Rebuild
	"rebuild_enabled":    "rebuild.enabled",
	"rebuild_locator":    "rebuild.locator",
	"rebuild_is_remote":  "rebuild.is_remote",
	"rebuild_on_startup": "rebuild.on_startup",
	"rebuild_interval":   "rebuild.interval",
	"rebuild_timeout":    "rebuild.timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - STORE_BACKEND -> store.backend
//   - NEO4J_URI -> store.neo4j.uri
//   - REBUILD_LOCATOR -> rebuild.locator
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables cannot pollute config
	return ""
}
