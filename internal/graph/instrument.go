// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"time"

	"github.com/tomtom215/cobasket/internal/metrics"
)

// Instrument wraps store so that every session operation is recorded in the
// store_operation_* metrics and open sessions are tracked.
func Instrument(store Store) Store {
	if _, ok := store.(*instrumentedStore); ok {
		return store
	}
	return &instrumentedStore{Store: store}
}

type instrumentedStore struct {
	Store
}

func (s *instrumentedStore) Open(ctx context.Context, mode AccessMode) (Session, error) {
	start := time.Now()
	sess, err := s.Store.Open(ctx, mode)
	metrics.RecordStoreOperation(s.Backend(), "open_"+mode.String(), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	metrics.StoreSessionsOpen.WithLabelValues(s.Backend()).Inc()
	return &instrumentedSession{inner: sess, backend: s.Backend()}, nil
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.Store.Ping(ctx)
	metrics.RecordStoreOperation(s.Backend(), "ping", time.Since(start), err)
	return err
}

type instrumentedSession struct {
	inner   Session
	backend string
	closed  bool
}

func (s *instrumentedSession) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(s.backend, op, time.Since(start), err)
}

func (s *instrumentedSession) Reset(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Reset(ctx)
	s.observe("reset", start, err)
	return err
}

func (s *instrumentedSession) LoadOrders(ctx context.Context, orders []Order) error {
	start := time.Now()
	err := s.inner.LoadOrders(ctx, orders)
	s.observe("load_orders", start, err)
	return err
}

func (s *instrumentedSession) LinkOrderedTogether(ctx context.Context) error {
	start := time.Now()
	err := s.inner.LinkOrderedTogether(ctx)
	s.observe("link_ordered_together", start, err)
	return err
}

func (s *instrumentedSession) CountOrders(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.inner.CountOrders(ctx)
	s.observe("count_orders", start, err)
	return n, err
}

func (s *instrumentedSession) CoOccurrences(ctx context.Context) ([]CoOccurrence, error) {
	start := time.Now()
	rows, err := s.inner.CoOccurrences(ctx)
	s.observe("co_occurrences", start, err)
	return rows, err
}

func (s *instrumentedSession) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	st, err := s.inner.Stats(ctx)
	s.observe("stats", start, err)
	return st, err
}

func (s *instrumentedSession) Close(ctx context.Context) error {
	if !s.closed {
		s.closed = true
		metrics.StoreSessionsOpen.WithLabelValues(s.backend).Dec()
	}
	return s.inner.Close(ctx)
}
