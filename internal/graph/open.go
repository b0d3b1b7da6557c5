// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
)

// Open builds the Store selected by cfg.Backend, wrapped with metrics
// instrumentation.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(ctx context.Context, cfg *config.StoreConfig, logger zerolog.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Backend {
	case BackendMemory, "":
		store = NewMemoryStore()
	case BackendDuckDB:
		store, err = NewDuckDBStore(ctx, &cfg.DuckDB, logger)
	case BackendBadger:
		store, err = NewBadgerStore(&cfg.Badger, logger)
	case BackendNeo4j:
		store, err = NewNeo4jStore(ctx, &cfg.Neo4j, logger)
	default:
		return nil, fmt.Errorf("unknown graph store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().Str("backend", store.Backend()).Msg("Graph store ready")
	return Instrument(store), nil
}
