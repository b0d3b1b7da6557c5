// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package graph holds the order/item co-occurrence graph behind a
// session-based Store interface with four backends: an in-process arena
// store, DuckDB, Badger and Neo4j.
//
// The graph has two node kinds (Order, Item) and two relationships:
// ORDERED (order to item, one per distinct pair) and ORDERED_TOGETHER
// (item to item, undirected, one logical edge per co-occurring pair carrying
// the number of orders that produced it).
//
//	store, err := graph.Open(ctx, &cfg.Store, logger)
//	sess, err := store.Open(ctx, graph.ReadWrite)
//	defer sess.Close(ctx)
//	err = sess.Reset(ctx)
//	err = sess.LoadOrders(ctx, orders)
//	err = sess.LinkOrderedTogether(ctx)
//	rows, err := sess.CoOccurrences(ctx)
package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tomtom215/cobasket/internal/config"
)

// Backend names accepted by Open.
const (
	BackendMemory = config.BackendMemory
	BackendDuckDB = config.BackendDuckDB
	BackendBadger = config.BackendBadger
	BackendNeo4j  = config.BackendNeo4j
)

var (
	// ErrUnavailable reports that the store cannot be reached.
	ErrUnavailable = errors.New("graph store unavailable")

	// ErrClosed is returned by operations on a closed store or session.
	ErrClosed = errors.New("graph store closed")

	// ErrReadOnly is returned when a read session attempts a mutation.
	ErrReadOnly = errors.New("graph session is read-only")

	// ErrInvalidID rejects identifiers a backend cannot store.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrDuplicateOrder rejects an order whose ID is already present.
	ErrDuplicateOrder = errors.New("duplicate order")
)

// ItemID identifies an Item. Integer identifiers from the order document are
// kept as their decimal text.
type ItemID string

// Less orders identifiers naturally: integers numerically and before any
// non-integer identifier, everything else byte-wise.
func (id ItemID) Less(other ItemID) bool {
	a, aNum := parseInt(id)
	b, bNum := parseInt(other)
	switch {
	case aNum && bNum:
		if a != b {
			return a < b
		}
		return id < other // "01" vs "1"
	case aNum:
		return true
	case bNum:
		return false
	default:
		return id < other
	}
}

func parseInt(id ItemID) (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// Order is one purchase transaction.
type Order struct {
	ID    string
	Items []ItemID
}

// DistinctItems returns the order's items without repeats, in first-seen order.
func (o *Order) DistinctItems() []ItemID {
	seen := make(map[ItemID]struct{}, len(o.Items))
	out := make([]ItemID, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// CoOccurrence is one directional row of the co-occurrence aggregation.
// Every ORDERED_TOGETHER edge yields two rows, one per orientation.
type CoOccurrence struct {
	Anchor ItemID
	Other  ItemID

	// Together is the edge multiplicity: the number of orders that linked
	// Anchor and Other.
	Together int64

	// AnchorOrders is the number of ORDERED edges into Anchor.
	AnchorOrders int64
}

// Stats are the node and edge counts of the current dataset.
type Stats struct {
	Orders          int64 `json:"orders"`
	Items           int64 `json:"items"`
	Ordered         int64 `json:"ordered_edges"`
	OrderedTogether int64 `json:"ordered_together_edges"`
}

// AccessMode selects read or write sessions.
type AccessMode int

const (
	Read AccessMode = iota
	ReadWrite
)

func (m AccessMode) String() string {
	if m == ReadWrite {
		return "write"
	}
	return "read"
}

// Store is a graph database handle. Implementations are safe for concurrent use.
type Store interface {
	// Backend returns the backend name ("memory", "duckdb", ...).
	Backend() string

	// Open starts a session. Callers must Close it on every path.
	Open(ctx context.Context, mode AccessMode) (Session, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// Session is a unit of work against a Store. A Session is not safe for
// concurrent use.
type Session interface {
	// Reset removes every Order, Item and relationship.
	Reset(ctx context.Context) error

	// LoadOrders creates one Order per element with ORDERED edges to its
	// items, creating Items that do not exist yet.
	LoadOrders(ctx context.Context, orders []Order) error

	// LinkOrderedTogether derives ORDERED_TOGETHER edges from the current
	// orders. Running it again on unchanged data yields the same edges.
	LinkOrderedTogether(ctx context.Context) error

	CountOrders(ctx context.Context) (int64, error)

	// CoOccurrences returns both orientations of every ORDERED_TOGETHER edge.
	CoOccurrences(ctx context.Context) ([]CoOccurrence, error)

	Stats(ctx context.Context) (Stats, error)

	Close(ctx context.Context) error
}

// validateOrders checks the identifiers of a batch before any backend
// mutation so that a rejected batch leaves the store untouched.
func validateOrders(orders []Order) error {
	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		id := orders[i].ID
		if id == "" {
			return fmt.Errorf("%w: order %d has an empty id", ErrInvalidID, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: order %q appears twice in the batch", ErrDuplicateOrder, id)
		}
		seen[id] = struct{}{}
		for _, item := range orders[i].Items {
			if item == "" {
				return fmt.Errorf("%w: order %q has an empty item id", ErrInvalidID, id)
			}
		}
	}
	return nil
}
