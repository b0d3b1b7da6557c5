// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/logging"
	"github.com/tomtom215/cobasket/internal/metrics"
	"github.com/tomtom215/cobasket/internal/source"
)

// Engine serves recommendations from a graph store and replaces the
// dataset on demand. It is safe for concurrent use.
type Engine struct {
	store    graph.Store
	pipeline *Pipeline
	logger   zerolog.Logger

	defaults           Options
	maxRecommendations int

	// datasetMu guards the dataset: the write unit (reset, ingest, build)
	// takes it exclusively, scoring takes it shared.
	datasetMu  sync.RWMutex
	version    atomic.Uint64
	lastIngest atomic.Pointer[IngestReport]

	cache *resultCache
}

// NewEngine creates an engine over store. loader reads order documents for
// ingest requests.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(store graph.Store, loader OrderLoader, cfg *config.RecommendConfig, logger zerolog.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("recommend: nil store")
	}
	if loader == nil {
		return nil, errors.New("recommend: nil order loader")
	}

	defaults := DefaultOptions(cfg)
	req := Request{Options: defaults}
	if verr := req.Validate(cfg.MaxRecommendations); verr != nil {
		return nil, fmt.Errorf("invalid recommendation defaults: %w", verr)
	}

	logger = logger.With().Str("component", "recommend").Logger()
	e := &Engine{
		store:              store,
		pipeline:           NewPipeline(store, loader, logger),
		logger:             logger,
		defaults:           defaults,
		maxRecommendations: cfg.MaxRecommendations,
	}
	if cfg.CacheEnabled {
		e.cache = newResultCache(cfg.CacheTTL)
	}
	return e, nil
}

// Defaults returns the configured default options.
func (e *Engine) Defaults() Options {
	return e.defaults
}

// MaxRecommendations is the configured upper bound on numRecommendations.
func (e *Engine) MaxRecommendations() int {
	return e.maxRecommendations
}

// Backend names the graph store backend.
func (e *Engine) Backend() string {
	return e.store.Backend()
}

// DatasetVersion increments with every successful ingest.
func (e *Engine) DatasetVersion() uint64 {
	return e.version.Load()
}

// LastIngest returns the report of the ingest that produced the current
// dataset, or nil. After a failure past the reset the report carries Error.
func (e *Engine) LastIngest() *IngestReport {
	return e.lastIngest.Load()
}

// Ping checks store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreConnectivity, err)
	}
	return nil
}

// Handle runs one request: option check, connectivity check, optional
// ingest, scoring. An insufficient-data outcome is returned as
// *InsufficientDataError. Invalid options fail with ErrInvalidOptions before
// the store is touched.
func (e *Engine) Handle(ctx context.Context, req Request) (Result, error) {
	if err := checkRequest(&req, e.maxRecommendations); err != nil {
		return Result{}, err
	}
	if err := e.Ping(ctx); err != nil {
		logging.Enrich(ctx, e.logger).Error().Err(err).Msg("Graph store unreachable")
		return Result{}, err
	}

	var report *IngestReport
	if loc, ok := req.Locator(); ok {
		r, err := e.ingest(ctx, loc)
		if err != nil {
			return Result{}, err
		}
		report = &r
	}

	res, err := e.recommend(ctx, req.Options)
	res.Ingest = report
	return res, err
}

// Ingest runs the write unit for loc after checking connectivity.
func (e *Engine) Ingest(ctx context.Context, loc source.Locator) (IngestReport, error) {
	if err := e.Ping(ctx); err != nil {
		return IngestReport{}, err
	}
	return e.ingest(ctx, loc)
}

// ingest resets, loads and links under the exclusive dataset lock.
func (e *Engine) ingest(ctx context.Context, loc source.Locator) (IngestReport, error) {
	start := time.Now()

	e.datasetMu.Lock()
	defer e.datasetMu.Unlock()

	report, err := e.pipeline.Ingest(ctx, loc)
	if err == nil {
		err = e.pipeline.BuildCooccurrence(ctx)
	}
	if err != nil {
		// Past the source stage the store may be half written.
		if !errors.Is(err, ErrSourceUnavailable) {
			e.cache.clear()
			e.lastIngest.Store(&IngestReport{
				Locator:        loc.String(),
				Duration:       time.Since(start),
				CompletedAt:    time.Now().UTC(),
				DatasetVersion: e.version.Add(1),
				Error:          KindOf(err),
			})
		}
		metrics.RecordIngest("failure", time.Since(start), 0)
		logging.Enrich(ctx, e.logger).Error().Err(err).Str("locator", loc.String()).Msg("Ingest failed")
		return IngestReport{}, err
	}

	stats, err := e.pipeline.Stats(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read graph stats after ingest")
	} else {
		report.Items = stats.Items
		report.Ordered = stats.Ordered
		report.OrderedTogether = stats.OrderedTogether
		metrics.RecordGraphShape(stats.Orders, stats.Items, stats.OrderedTogether)
	}

	e.cache.clear()
	report.DatasetVersion = e.version.Add(1)
	report.Duration = time.Since(start)
	report.CompletedAt = time.Now().UTC()
	e.lastIngest.Store(&report)

	metrics.RecordIngest("success", report.Duration, int(report.Orders))
	e.logger.Info().
		Str("locator", report.Locator).
		Int64("orders", report.Orders).
		Int64("items", report.Items).
		Int64("cooccurrence_edges", report.OrderedTogether).
		Uint64("dataset_version", report.DatasetVersion).
		Dur("took", report.Duration).
		Msg("Dataset rebuilt")

	return report, nil
}

// Recommend scores the loaded dataset. It has no side effects on the store.
// Options outside their bounds fail with ErrInvalidOptions.
func (e *Engine) Recommend(ctx context.Context, opts Options) (Result, error) {
	if err := checkRequest(&Request{Options: opts}, e.maxRecommendations); err != nil {
		return Result{}, err
	}
	return e.recommend(ctx, opts)
}

func (e *Engine) recommend(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()

	e.datasetMu.RLock()
	defer e.datasetMu.RUnlock()

	if res, ok := e.cache.get(opts); ok {
		res.CacheHit = true
		metrics.RecordRecommend("cache_hit", time.Since(start))
		return res, nil
	}

	res, err := e.score(ctx, opts)
	metrics.RecordRecommend(outcome(err), time.Since(start))
	if err != nil {
		return Result{}, err
	}

	e.cache.put(opts, res)
	logging.Enrich(ctx, e.logger).Debug().
		Int("anchors", len(res.Recommendations)).
		Int64("orders", res.OrderCount).
		Dur("took", time.Since(start)).
		Msg("Recommendations computed")
	return res, nil
}

func (e *Engine) score(ctx context.Context, opts Options) (Result, error) {
	var (
		res  Result
		rows []graph.CoOccurrence
	)
	res.DatasetVersion = e.version.Load()

	err := e.pipeline.withSession(ctx, graph.Read, "recommend", func(sess graph.Session) error {
		count, err := sess.CountOrders(ctx)
		if err != nil {
			return storeError("count orders", err)
		}
		res.OrderCount = count
		if count <= opts.MinOrderCount {
			return &InsufficientDataError{MinOrderCount: opts.MinOrderCount, OrderCount: count}
		}

		rows, err = sess.CoOccurrences(ctx)
		if err != nil {
			return storeError("co-occurrences", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Recommendations = rank(rows, opts)
	return res, nil
}

// Status reports the dataset counts and the latest ingest.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	e.datasetMu.RLock()
	defer e.datasetMu.RUnlock()

	stats, err := e.pipeline.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Backend:        e.store.Backend(),
		DatasetVersion: e.version.Load(),
		Graph:          stats,
		LastIngest:     e.lastIngest.Load(),
		Cache:          e.cache.status(),
	}, nil
}

func outcome(err error) string {
	switch KindOf(err) {
	case KindNone:
		return "success"
	case KindInsufficientData:
		return "insufficient_data"
	default:
		return "error"
	}
}
