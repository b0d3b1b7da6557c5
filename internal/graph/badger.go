// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
)

// KV key layout:
//
//	o:{order}          -> JSON list of the order's distinct items
//	i:{item}           -> empty (Item node)
//	e:{item}\x00{order} -> empty (ORDERED edge, keyed by item for frequency scans)
//	t:{a}\x00{b}       -> big-endian int64 multiplicity, a < b (ORDERED_TOGETHER)
const (
	badgerOrderPrefix    = "o:"
	badgerItemPrefix     = "i:"
	badgerOrderedPrefix  = "e:"
	badgerTogetherPrefix = "t:"
	badgerSep            = "\x00"
)

// BadgerStore keeps the graph in an embedded Badger key-value store.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens the Badger directory, or an in-memory instance when
// cfg.InMemory is set.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBadgerStore(cfg *config.BadgerConfig, logger zerolog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %w", ErrUnavailable, err)
	}

	logger.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Badger graph store opened")
	return &BadgerStore{db: db, logger: logger}, nil
}

// Backend implements Store.
func (s *BadgerStore) Backend() string { return BackendBadger }

// Open implements Store.
func (s *BadgerStore) Open(_ context.Context, mode AccessMode) (Session, error) {
	if s.db.IsClosed() {
		return nil, ErrClosed
	}
	return &badgerSession{sessionState: sessionState{mode: mode}, db: s.db}, nil
}

// Ping implements Store.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerSession struct {
	sessionState
	db *badger.DB
}

func orderKey(id string) []byte { return []byte(badgerOrderPrefix + id) }
func itemKey(id ItemID) []byte  { return []byte(badgerItemPrefix + string(id)) }

func orderedKey(item ItemID, order string) []byte {
	return []byte(badgerOrderedPrefix + string(item) + badgerSep + order)
}

func togetherKey(a, b ItemID) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(badgerTogetherPrefix + string(a) + badgerSep + string(b))
}

// splitPair splits the remainder of an e: or t: key at the separator.
func splitPair(rest []byte) (string, string, bool) {
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return "", "", false
	}
	return string(rest[:i]), string(rest[i+1:]), true
}

func checkKeySegments(orders []Order) error {
	for i := range orders {
		if strings.Contains(orders[i].ID, badgerSep) {
			return fmt.Errorf("%w: order %q contains NUL", ErrInvalidID, orders[i].ID)
		}
		for _, item := range orders[i].Items {
			if strings.Contains(string(item), badgerSep) {
				return fmt.Errorf("%w: item %q contains NUL", ErrInvalidID, item)
			}
		}
	}
	return nil
}

func (b *badgerSession) Reset(ctx context.Context) error {
	if err := b.check(ctx, true); err != nil {
		return err
	}
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	return nil
}

func (b *badgerSession) LoadOrders(ctx context.Context, orders []Order) error {
	if err := b.check(ctx, true); err != nil {
		return err
	}
	if err := validateOrders(orders); err != nil {
		return err
	}
	if err := checkKeySegments(orders); err != nil {
		return err
	}

	err := b.db.View(func(txn *badger.Txn) error {
		for i := range orders {
			_, err := txn.Get(orderKey(orders[i].ID))
			if err == nil {
				return fmt.Errorf("%w: order %q already loaded", ErrDuplicateOrder, orders[i].ID)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("get order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range orders {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := &orders[i]
		items := o.DistinctItems()
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("marshal order %q: %w", o.ID, err)
		}
		if err := wb.Set(orderKey(o.ID), data); err != nil {
			return fmt.Errorf("set order: %w", err)
		}
		for _, item := range items {
			if err := wb.Set(itemKey(item), nil); err != nil {
				return fmt.Errorf("set item: %w", err)
			}
			if err := wb.Set(orderedKey(item, o.ID), nil); err != nil {
				return fmt.Errorf("set ordered edge: %w", err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush orders: %w", err)
	}
	return nil
}

func (b *badgerSession) LinkOrderedTogether(ctx context.Context) error {
	if err := b.check(ctx, true); err != nil {
		return err
	}

	counts := make(map[[2]ItemID]int64)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerOrderPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var items []ItemID
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &items)
			}); err != nil {
				return fmt.Errorf("decode order %q: %w", it.Item().Key(), err)
			}
			for x := 0; x < len(items); x++ {
				for y := x + 1; y < len(items); y++ {
					a, c := items[x], items[y]
					if c < a {
						a, c = c, a
					}
					counts[[2]ItemID{a, c}]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := b.db.DropPrefix([]byte(badgerTogetherPrefix)); err != nil {
		return fmt.Errorf("drop ordered_together: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for pair, n := range counts {
		var val [8]byte
		binary.BigEndian.PutUint64(val[:], uint64(n))
		if err := wb.Set(togetherKey(pair[0], pair[1]), val[:]); err != nil {
			return fmt.Errorf("set ordered_together: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush ordered_together: %w", err)
	}
	return nil
}

// countPrefix counts keys under prefix without reading values.
func countPrefix(txn *badger.Txn, prefix string) int64 {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var n int64
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

func (b *badgerSession) CountOrders(ctx context.Context) (int64, error) {
	if err := b.check(ctx, false); err != nil {
		return 0, err
	}
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		n = countPrefix(txn, badgerOrderPrefix)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (b *badgerSession) CoOccurrences(ctx context.Context) ([]CoOccurrence, error) {
	if err := b.check(ctx, false); err != nil {
		return nil, err
	}

	var out []CoOccurrence
	err := b.db.View(func(txn *badger.Txn) error {
		freq := make(map[ItemID]int64)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerOrderedPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			item, _, ok := splitPair(it.Item().Key()[len(badgerOrderedPrefix):])
			if ok {
				freq[ItemID(item)]++
			}
		}
		it.Close()

		opts = badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerTogetherPrefix)
		it = txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, c, ok := splitPair(it.Item().Key()[len(badgerTogetherPrefix):])
			if !ok {
				continue
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read ordered_together: %w", err)
			}
			if len(val) != 8 {
				return fmt.Errorf("corrupt ordered_together value for %q/%q", a, c)
			}
			n := int64(binary.BigEndian.Uint64(val))
			ia, ic := ItemID(a), ItemID(c)
			out = append(out,
				CoOccurrence{Anchor: ia, Other: ic, Together: n, AnchorOrders: freq[ia]},
				CoOccurrence{Anchor: ic, Other: ia, Together: n, AnchorOrders: freq[ic]},
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *badgerSession) Stats(ctx context.Context) (Stats, error) {
	if err := b.check(ctx, false); err != nil {
		return Stats{}, err
	}
	var st Stats
	err := b.db.View(func(txn *badger.Txn) error {
		st.Orders = countPrefix(txn, badgerOrderPrefix)
		st.Items = countPrefix(txn, badgerItemPrefix)
		st.Ordered = countPrefix(txn, badgerOrderedPrefix)
		st.OrderedTogether = countPrefix(txn, badgerTogetherPrefix)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

func (b *badgerSession) Close(_ context.Context) error {
	b.closed = true
	return nil
}

// badgerLogger routes Badger's internal logging through zerolog. Info is
// demoted to debug; Badger is chatty at startup and compaction.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
