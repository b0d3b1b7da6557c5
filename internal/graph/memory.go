// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"fmt"
	"sync"
)

// pairKey is an unordered item pair with a < b.
type pairKey struct {
	a, b int32
}

func newPairKey(x, y int32) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

type memOrder struct {
	id    string
	items []int32 // distinct arena indexes
}

// MemoryStore keeps the graph in process. Items live in an arena addressed
// by int32 index; relationships refer to indexes, not identifiers.
type MemoryStore struct {
	mu sync.RWMutex

	items    []ItemID
	index    map[ItemID]int32
	freq     []int64 // ORDERED edges per item
	orders   []memOrder
	orderIDs map[string]struct{}
	together map[pairKey]int64

	closed bool
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.resetLocked()
	return s
}

func (s *MemoryStore) resetLocked() {
	s.items = nil
	s.index = make(map[ItemID]int32)
	s.freq = nil
	s.orders = nil
	s.orderIDs = make(map[string]struct{})
	s.together = make(map[pairKey]int64)
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return BackendMemory }

// Open implements Store.
func (s *MemoryStore) Open(_ context.Context, mode AccessMode) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return &memorySession{sessionState: sessionState{mode: mode}, store: s}, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store. The dataset is discarded.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.resetLocked()
	return nil
}

type memorySession struct {
	sessionState
	store *MemoryStore
}

func (m *memorySession) Reset(ctx context.Context) error {
	if err := m.check(ctx, true); err != nil {
		return err
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.resetLocked()
	return nil
}

func (m *memorySession) LoadOrders(ctx context.Context, orders []Order) error {
	if err := m.check(ctx, true); err != nil {
		return err
	}
	if err := validateOrders(orders); err != nil {
		return err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for i := range orders {
		if _, dup := s.orderIDs[orders[i].ID]; dup {
			return fmt.Errorf("%w: order %q already loaded", ErrDuplicateOrder, orders[i].ID)
		}
	}

	for i := range orders {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		distinct := orders[i].DistinctItems()
		idx := make([]int32, len(distinct))
		for j, id := range distinct {
			n, ok := s.index[id]
			if !ok {
				n = int32(len(s.items))
				s.items = append(s.items, id)
				s.freq = append(s.freq, 0)
				s.index[id] = n
			}
			s.freq[n]++
			idx[j] = n
		}
		s.orders = append(s.orders, memOrder{id: orders[i].ID, items: idx})
		s.orderIDs[orders[i].ID] = struct{}{}
	}
	return nil
}

func (m *memorySession) LinkOrderedTogether(ctx context.Context) error {
	if err := m.check(ctx, true); err != nil {
		return err
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	together := make(map[pairKey]int64, len(s.together))
	for i := range s.orders {
		items := s.orders[i].items
		for x := 0; x < len(items); x++ {
			for y := x + 1; y < len(items); y++ {
				together[newPairKey(items[x], items[y])]++
			}
		}
	}
	s.together = together
	return nil
}

func (m *memorySession) CountOrders(ctx context.Context) (int64, error) {
	if err := m.check(ctx, false); err != nil {
		return 0, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.orders)), nil
}

func (m *memorySession) CoOccurrences(ctx context.Context) ([]CoOccurrence, error) {
	if err := m.check(ctx, false); err != nil {
		return nil, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]CoOccurrence, 0, 2*len(s.together))
	for k, n := range s.together {
		rows = append(rows,
			CoOccurrence{Anchor: s.items[k.a], Other: s.items[k.b], Together: n, AnchorOrders: s.freq[k.a]},
			CoOccurrence{Anchor: s.items[k.b], Other: s.items[k.a], Together: n, AnchorOrders: s.freq[k.b]},
		)
	}
	return rows, nil
}

func (m *memorySession) Stats(ctx context.Context) (Stats, error) {
	if err := m.check(ctx, false); err != nil {
		return Stats{}, err
	}
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ordered int64
	for _, f := range s.freq {
		ordered += f
	}
	return Stats{
		Orders:          int64(len(s.orders)),
		Items:           int64(len(s.items)),
		Ordered:         ordered,
		OrderedTogether: int64(len(s.together)),
	}, nil
}

func (m *memorySession) Close(_ context.Context) error {
	m.closed = true
	return nil
}
