// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateSource(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateRebuild(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// validateStore validates the selected backend; settings of unselected backends are ignored.
func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendMemory:
		return nil
	case BackendDuckDB:
		if c.Store.DuckDB.Threads < 0 {
			return fmt.Errorf("DUCKDB_THREADS must be non-negative")
		}
		return nil
	case BackendBadger:
		if !c.Store.Badger.InMemory && c.Store.Badger.Path == "" {
			return fmt.Errorf("BADGER_PATH is required when BADGER_IN_MEMORY=false")
		}
		return nil
	case BackendNeo4j:
		return c.validateNeo4j()
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: %s, %s, %s, %s (got %q)",
			BackendMemory, BackendDuckDB, BackendBadger, BackendNeo4j, c.Store.Backend)
	}
}

func (c *Config) validateNeo4j() error {
	if c.Store.Neo4j.URI == "" {
		return fmt.Errorf("NEO4J_URI is required when STORE_BACKEND=neo4j")
	}
	u, err := url.Parse(c.Store.Neo4j.URI)
	if err != nil {
		return fmt.Errorf("NEO4J_URI is invalid: %w", err)
	}
	switch u.Scheme {
	case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
	default:
		return fmt.Errorf("NEO4J_URI scheme must be bolt or neo4j (got %q)", u.Scheme)
	}
	if c.Store.Neo4j.BatchSize < 1 {
		return fmt.Errorf("NEO4J_INGEST_BATCH_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.MaxBytes < 1 {
		return fmt.Errorf("SOURCE_MAX_BYTES must be positive")
	}
	if c.Source.HTTPTimeout <= 0 {
		return fmt.Errorf("SOURCE_HTTP_TIMEOUT must be positive")
	}
	ratio := c.Source.Breaker.FailureRatio
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("SOURCE_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	if c.Source.FetchRateRequests < 0 {
		return fmt.Errorf("SOURCE_FETCH_RATE_REQUESTS must not be negative")
	}
	if c.Source.FetchRateRequests > 0 && c.Source.FetchRateWindow <= 0 {
		return fmt.Errorf("SOURCE_FETCH_RATE_WINDOW must be positive when SOURCE_FETCH_RATE_REQUESTS is set")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.MaxRecommendations < 1 {
		return fmt.Errorf("RECOMMEND_MAX_RECOMMENDATIONS must be at least 1")
	}
	if r.DefaultNumRecommendations < 1 || r.DefaultNumRecommendations > r.MaxRecommendations {
		return fmt.Errorf("RECOMMEND_NUM_RECOMMENDATIONS must be between 1 and %d", r.MaxRecommendations)
	}
	if r.DefaultThresholdPercent < 0 || r.DefaultThresholdPercent > 100 {
		return fmt.Errorf("RECOMMEND_THRESHOLD_PERCENT must be between 0 and 100")
	}
	if r.DefaultMinOrderCount < 0 {
		return fmt.Errorf("RECOMMEND_MIN_ORDER_COUNT must be non-negative")
	}
	if r.DefaultMinItemOrderedCount < 0 {
		return fmt.Errorf("RECOMMEND_MIN_ITEM_ORDERED_COUNT must be non-negative")
	}
	if r.CacheEnabled && r.CacheTTL <= 0 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateRebuild() error {
	if !c.Rebuild.Enabled {
		return nil
	}
	if c.Rebuild.Locator == "" {
		return fmt.Errorf("REBUILD_LOCATOR is required when REBUILD_ENABLED=true")
	}
	if c.Rebuild.Interval <= 0 {
		return fmt.Errorf("REBUILD_INTERVAL must be positive")
	}
	if c.Rebuild.IsRemote && !isHTTPURL(c.Rebuild.Locator) {
		return fmt.Errorf("REBUILD_LOCATOR must be an http(s) URL when REBUILD_IS_REMOTE=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must not be empty")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL is invalid: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
