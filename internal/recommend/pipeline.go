// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/source"
)

// OrderLoader reads and decodes an order document. *source.Loader
// implements it.
type OrderLoader interface {
	Load(ctx context.Context, loc source.Locator) ([]graph.Order, error)
}

// Pipeline writes order batches into the graph store. It does no locking of
// its own; the engine serializes write units.
type Pipeline struct {
	store  graph.Store
	loader OrderLoader
	logger zerolog.Logger
}

// NewPipeline creates a pipeline over store, reading documents with loader.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPipeline(store graph.Store, loader OrderLoader, logger zerolog.Logger) *Pipeline {
	return &Pipeline{store: store, loader: loader, logger: logger}
}

// Ingest replaces the stored dataset with the orders behind loc. The
// document is fully read and validated before the reset, so a bad source
// leaves the previous dataset in place.
func (p *Pipeline) Ingest(ctx context.Context, loc source.Locator) (IngestReport, error) {
	start := time.Now()

	orders, err := p.loader.Load(ctx, loc)
	if err != nil {
		return IngestReport{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	err = p.withSession(ctx, graph.ReadWrite, "ingest", func(sess graph.Session) error {
		if err := sess.Reset(ctx); err != nil {
			return storeError("reset", err)
		}
		if err := sess.LoadOrders(ctx, orders); err != nil {
			return storeError("load orders", err)
		}
		return nil
	})
	if err != nil {
		return IngestReport{}, err
	}

	p.logger.Info().
		Str("locator", loc.String()).
		Int("orders", len(orders)).
		Dur("took", time.Since(start)).
		Msg("Orders ingested")

	return IngestReport{
		Locator: loc.String(),
		Orders:  int64(len(orders)),
	}, nil
}

// BuildCooccurrence links every pair of distinct items that share an order.
// Running it again on the same orders leaves the edge set unchanged.
func (p *Pipeline) BuildCooccurrence(ctx context.Context) error {
	return p.withSession(ctx, graph.ReadWrite, "build co-occurrence", func(sess graph.Session) error {
		if err := sess.LinkOrderedTogether(ctx); err != nil {
			return storeError("link ordered together", err)
		}
		return nil
	})
}

// Stats reads the current graph counts.
func (p *Pipeline) Stats(ctx context.Context) (graph.Stats, error) {
	var stats graph.Stats
	err := p.withSession(ctx, graph.Read, "stats", func(sess graph.Session) error {
		var err error
		stats, err = sess.Stats(ctx)
		if err != nil {
			return storeError("stats", err)
		}
		return nil
	})
	return stats, err
}

// withSession opens a session, runs fn and closes the session on every
// path. A close failure is logged and never replaces fn's error.
func (p *Pipeline) withSession(ctx context.Context, mode graph.AccessMode, op string, fn func(graph.Session) error) error {
	sess, err := p.store.Open(ctx, mode)
	if err != nil {
		return storeError("open "+mode.String()+" session", err)
	}
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			p.logger.Warn().Err(cerr).Str("operation", op).Msg("Failed to close store session")
		}
	}()
	return fn(sess)
}
