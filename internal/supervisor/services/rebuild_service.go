// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/logging"
	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
)

// defaultRebuildTimeout bounds one rebuild when no timeout is configured.
const defaultRebuildTimeout = 5 * time.Minute

// Ingester rebuilds the dataset from a locator. *recommend.Engine
// implements it.
type Ingester interface {
	Ingest(ctx context.Context, loc source.Locator) (recommend.IngestReport, error)
}

// RebuildService re-ingests a fixed locator on startup and on an interval.
// A failed rebuild is logged and retried on the next tick.
type RebuildService struct {
	engine   Ingester
	locator  source.Locator
	cfg      config.RebuildConfig
	logger   zerolog.Logger
	name     string
	runs     atomic.Int64
	failures atomic.Int64
}

// NewRebuildService creates the service. Callers add it to the tree only
// when cfg.Enabled is set.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRebuildService(engine Ingester, cfg config.RebuildConfig, logger zerolog.Logger) *RebuildService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRebuildTimeout
	}
	return &RebuildService{
		engine:  engine,
		locator: source.Locator{Path: cfg.Locator, Remote: cfg.IsRemote},
		cfg:     cfg,
		logger:  logger.With().Str("service", "rebuild").Logger(),
		name:    "rebuild-service",
	}
}

// Serve implements suture.Service. With no interval it runs the startup
// rebuild (if configured) and then idles until shutdown.
func (s *RebuildService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("locator", logging.SanitizeURL(s.locator.String())).
		Bool("on_startup", s.cfg.OnStartup).
		Dur("interval", s.cfg.Interval).
		Msg("Rebuild service starting")

	if s.cfg.OnStartup {
		s.rebuild(ctx)
	}

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Rebuild service stopping")
			return ctx.Err()
		case <-tick:
			s.rebuild(ctx)
		}
	}
}

func (s *RebuildService) rebuild(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	s.runs.Add(1)
	report, err := s.engine.Ingest(runCtx, s.locator)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.failures.Add(1)
		s.logger.Warn().
			Err(err).
			Str("kind", string(recommend.KindOf(err))).
			Msg("Rebuild failed; retrying on the next run")
		return
	}

	s.logger.Info().
		Int64("orders", report.Orders).
		Int64("items", report.Items).
		Int64("ordered_together_edges", report.OrderedTogether).
		Uint64("dataset_version", report.DatasetVersion).
		Dur("took", report.Duration).
		Msg("Rebuild complete")
}

// Runs returns how many rebuilds have been attempted.
func (s *RebuildService) Runs() int64 {
	return s.runs.Load()
}

// Failures returns how many rebuilds have failed.
func (s *RebuildService) Failures() int64 {
	return s.failures.Load()
}

// String implements fmt.Stringer; suture uses it in events.
func (s *RebuildService) String() string {
	return s.name
}
