// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/api"
	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/logging"
	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
	"github.com/tomtom215/cobasket/internal/supervisor"
	"github.com/tomtom215/cobasket/internal/supervisor/services"
)

// app holds the wired components. The store is owned here and closed after
// the tree stops.
type app struct {
	store   graph.Store
	loader  *source.Loader
	engine  *recommend.Engine
	handler http.Handler
	tree    *supervisor.SupervisorTree
	rebuild *services.RebuildService
}

// newApp builds every component from cfg. On error nothing is left open.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, slogger *slog.Logger) (*app, error) {
	store, err := graph.Open(ctx, &cfg.Store, logger.With().Str("component", "graph").Logger())
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	loader := source.NewLoader(&cfg.Source, logger.With().Str("component", "source").Logger())

	engine, err := recommend.NewEngine(store, loader, &cfg.Recommend, logger.With().Str("component", "recommend").Logger())
	if err != nil {
		closeStore(store, logger)
		return nil, fmt.Errorf("create engine: %w", err)
	}

	handler := api.NewHandler(engine, loader, cfg.Server.RequestTimeout, logger)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		closeStore(store, logger)
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	a := &app{
		store:   store,
		loader:  loader,
		engine:  engine,
		handler: router.SetupChi(),
		tree:    tree,
	}

	if cfg.Rebuild.Enabled {
		a.rebuild = services.NewRebuildService(engine, cfg.Rebuild, logger)
		tree.AddDataService(a.rebuild)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + cfg.Server.RequestTimeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	return a, nil
}

// close releases the graph store.
func (a *app) close(logger zerolog.Logger) { //nolint:gocritic // zerolog.Logger is designed to be passed by value
	closeStore(a.store, logger)
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func closeStore(store graph.Store, logger zerolog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing graph store")
	}
}

// logStartup records the effective configuration without secrets.
func logStartup(cfg *config.Config) {
	event := logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store_backend", cfg.Store.Backend).
		Bool("rebuild_enabled", cfg.Rebuild.Enabled).
		Bool("cache_enabled", cfg.Recommend.CacheEnabled).
		Int64("default_min_order_count", cfg.Recommend.DefaultMinOrderCount)
	if cfg.Store.Backend == graph.BackendNeo4j {
		event = event.Str("neo4j_uri", logging.SanitizeURL(cfg.Store.Neo4j.URI))
	}
	if cfg.Rebuild.Enabled {
		event = event.Str("rebuild_locator", logging.SanitizeURL(cfg.Rebuild.Locator))
	}
	event.Msg("Configuration loaded")

	if cfg.Source.BaseDir == "" {
		logging.Warn().Msg("SOURCE_BASE_DIR is not set; local orderJsonPath locators can read any file the process can open")
	}
}
