// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	store, err := graph.Open(ctx, &cfg.Store)
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Source    SourceConfig    `koanf:"source"`
	Recommend RecommendConfig `koanf:"recommend"`
	Rebuild   RebuildConfig   `koanf:"rebuild"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`  // Upper bound for one recommend/ingest request
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // Graceful shutdown budget for the HTTP server
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Store backend names.
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
	BackendNeo4j  = "neo4j"
)

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Backend is one of: memory, duckdb, badger, neo4j.
	// Default: memory
	Backend string `koanf:"backend"`

	DuckDB DuckDBConfig `koanf:"duckdb"`
	Badger BadgerConfig `koanf:"badger"`
	Neo4j  Neo4jConfig  `koanf:"neo4j"`
}

// DuckDBConfig holds the embedded DuckDB backend settings.
type DuckDBConfig struct {
	// Path is the database file. Empty means an in-memory database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// BadgerConfig holds the embedded BadgerDB backend settings.
type BadgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// Neo4jConfig holds the Neo4j (Bolt) backend settings.
type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"` // Empty uses the server's default database

	// MaxConnectionPoolSize caps driver connections. 0 keeps the driver default.
	MaxConnectionPoolSize int `koanf:"max_connection_pool_size"`

	// BatchSize is the number of orders sent per UNWIND statement during ingestion.
	BatchSize int `koanf:"batch_size"`
}

// SourceConfig configures how order documents are fetched.
type SourceConfig struct {
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// MaxBytes caps the size of an order document, local or remote.
	MaxBytes int64 `koanf:"max_bytes"`

	// BaseDir, when set, confines local locators to this directory tree.
	// Leave it empty only when request locators are trusted.
	BaseDir string `koanf:"base_dir"`

	UserAgent string        `koanf:"user_agent"`
	Breaker   BreakerConfig `koanf:"breaker"`

	// FetchRateRequests remote fetches are allowed per FetchRateWindow.
	// Zero disables the limit.
	FetchRateRequests int           `koanf:"fetch_rate_requests"`
	FetchRateWindow   time.Duration `koanf:"fetch_rate_window"`
}

// BreakerConfig holds circuit breaker settings for remote order sources.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`  // Requests allowed in half-open state
	Interval     time.Duration `koanf:"interval"`      // Count reset period in closed state
	Timeout      time.Duration `koanf:"timeout"`       // Open -> half-open delay
	MinRequests  uint32        `koanf:"min_requests"`  // Requests required before tripping
	FailureRatio float64       `koanf:"failure_ratio"` // Trip when failures/requests >= ratio
}

// RecommendConfig holds defaults and limits for recommendation requests.
type RecommendConfig struct {
	DefaultNumRecommendations  int     `koanf:"default_num_recommendations"`
	DefaultThresholdPercent    float64 `koanf:"default_threshold_percent"`
	DefaultMinOrderCount       int64   `koanf:"default_min_order_count"`
	DefaultMinItemOrderedCount int64   `koanf:"default_min_item_ordered_count"`

	// MaxRecommendations bounds numRecommendations at the request boundary.
	MaxRecommendations int `koanf:"max_recommendations"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// RebuildConfig controls the background rebuild service, which re-ingests a
// fixed locator on startup and on an interval.
type RebuildConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Locator   string        `koanf:"locator"`
	IsRemote  bool          `koanf:"is_remote"`
	OnStartup bool          `koanf:"on_startup"`
	Interval  time.Duration `koanf:"interval"`
	Timeout   time.Duration `koanf:"timeout"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load loads configuration using Koanf with layered sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
