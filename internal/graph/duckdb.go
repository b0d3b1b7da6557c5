// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver registration

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
)

// The relationship tables carry no primary keys: DuckDB checks index
// constraints eagerly, which breaks delete-then-insert of the same key
// inside one transaction. Uniqueness comes from the GROUP BY that fills
// ordered_together and from DistinctItems for ordered.
var duckdbSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		order_id VARCHAR PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		item_id VARCHAR PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS ordered (
		order_id VARCHAR NOT NULL,
		item_id  VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ordered_together (
		item_a VARCHAR NOT NULL,
		item_b VARCHAR NOT NULL,
		orders BIGINT  NOT NULL
	)`,
}

const (
	duckdbLinkDelete = `DELETE FROM ordered_together`

	duckdbLinkInsert = `
		INSERT INTO ordered_together (item_a, item_b, orders)
		SELECT a.item_id, b.item_id, COUNT(*)
		FROM ordered a
		JOIN ordered b ON a.order_id = b.order_id AND a.item_id < b.item_id
		GROUP BY a.item_id, b.item_id`

	duckdbCoOccurrences = `
		WITH freq AS (
			SELECT item_id, COUNT(*) AS n FROM ordered GROUP BY item_id
		),
		edges AS (
			SELECT item_a AS anchor, item_b AS other, orders FROM ordered_together
			UNION ALL
			SELECT item_b AS anchor, item_a AS other, orders FROM ordered_together
		)
		SELECT e.anchor, e.other, e.orders, f.n
		FROM edges e
		JOIN freq f ON f.item_id = e.anchor`

	duckdbStats = `
		SELECT
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM items),
			(SELECT COUNT(*) FROM ordered),
			(SELECT COUNT(*) FROM ordered_together)`
)

// DuckDBStore keeps the graph as four relational tables in an embedded
// DuckDB database. An empty path opens an in-memory database.
type DuckDBStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewDuckDBStore opens (creating if needed) the database and its schema.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDuckDBStore(ctx context.Context, cfg *config.DuckDBConfig, logger zerolog.Logger) (*DuckDBStore, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == "" || path == ":memory:" {
		path = ":memory:"
	} else if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	db.SetMaxOpenConns(runtime.NumCPU())
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	for _, stmt := range duckdbSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info().Str("path", path).Int("threads", threads).Msg("DuckDB graph store opened")
	return &DuckDBStore{db: db, path: path, logger: logger}, nil
}

// Backend implements Store.
func (s *DuckDBStore) Backend() string { return BackendDuckDB }

// Open implements Store. Each session pins one pooled connection.
func (s *DuckDBStore) Open(ctx context.Context, mode AccessMode) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &duckdbSession{sessionState: sessionState{mode: mode}, conn: conn}, nil
}

// Ping implements Store.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

type duckdbSession struct {
	sessionState
	conn *sql.Conn
}

// inTx runs fn in a transaction on the session connection.
func (d *duckdbSession) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the fn error is the one worth reporting
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (d *duckdbSession) Reset(ctx context.Context) error {
	if err := d.check(ctx, true); err != nil {
		return err
	}
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"ordered_together", "ordered", "items", "orders"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (d *duckdbSession) LoadOrders(ctx context.Context, orders []Order) error {
	if err := d.check(ctx, true); err != nil {
		return err
	}
	if err := validateOrders(orders); err != nil {
		return err
	}

	return d.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := tx.PrepareContext(ctx, `SELECT COUNT(*) FROM orders WHERE order_id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare order lookup: %w", err)
		}
		defer closeQuietly(exists)

		insOrder, err := tx.PrepareContext(ctx, `INSERT INTO orders (order_id) VALUES (?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare order insert: %w", err)
		}
		defer closeQuietly(insOrder)

		insItem, err := tx.PrepareContext(ctx, `INSERT INTO items (item_id) VALUES (?) ON CONFLICT DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare item upsert: %w", err)
		}
		defer closeQuietly(insItem)

		insOrdered, err := tx.PrepareContext(ctx, `INSERT INTO ordered (order_id, item_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare ordered insert: %w", err)
		}
		defer closeQuietly(insOrdered)

		for i := range orders {
			o := &orders[i]

			var n int64
			if err := exists.QueryRowContext(ctx, o.ID).Scan(&n); err != nil {
				return fmt.Errorf("failed to look up order %q: %w", o.ID, err)
			}
			if n > 0 {
				return fmt.Errorf("%w: order %q already loaded", ErrDuplicateOrder, o.ID)
			}

			if _, err := insOrder.ExecContext(ctx, o.ID); err != nil {
				return fmt.Errorf("failed to insert order %q: %w", o.ID, err)
			}
			for _, item := range o.DistinctItems() {
				if _, err := insItem.ExecContext(ctx, string(item)); err != nil {
					return fmt.Errorf("failed to upsert item %q: %w", item, err)
				}
				if _, err := insOrdered.ExecContext(ctx, o.ID, string(item)); err != nil {
					return fmt.Errorf("failed to link order %q to item %q: %w", o.ID, item, err)
				}
			}
		}
		return nil
	})
}

func (d *duckdbSession) LinkOrderedTogether(ctx context.Context) error {
	if err := d.check(ctx, true); err != nil {
		return err
	}
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, duckdbLinkDelete); err != nil {
			return fmt.Errorf("failed to clear ordered_together: %w", err)
		}
		if _, err := tx.ExecContext(ctx, duckdbLinkInsert); err != nil {
			return fmt.Errorf("failed to build ordered_together: %w", err)
		}
		return nil
	})
}

func (d *duckdbSession) CountOrders(ctx context.Context) (int64, error) {
	if err := d.check(ctx, false); err != nil {
		return 0, err
	}
	var n int64
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

func (d *duckdbSession) CoOccurrences(ctx context.Context) ([]CoOccurrence, error) {
	if err := d.check(ctx, false); err != nil {
		return nil, err
	}
	rows, err := d.conn.QueryContext(ctx, duckdbCoOccurrences)
	if err != nil {
		return nil, fmt.Errorf("failed to query co-occurrences: %w", err)
	}
	defer rows.Close()

	var out []CoOccurrence
	for rows.Next() {
		var anchor, other string
		var c CoOccurrence
		if err := rows.Scan(&anchor, &other, &c.Together, &c.AnchorOrders); err != nil {
			return nil, fmt.Errorf("failed to scan co-occurrence: %w", err)
		}
		c.Anchor, c.Other = ItemID(anchor), ItemID(other)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating co-occurrences: %w", err)
	}
	return out, nil
}

func (d *duckdbSession) Stats(ctx context.Context) (Stats, error) {
	if err := d.check(ctx, false); err != nil {
		return Stats{}, err
	}
	var st Stats
	err := d.conn.QueryRowContext(ctx, duckdbStats).Scan(&st.Orders, &st.Items, &st.Ordered, &st.OrderedTogether)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return st, nil
}

func (d *duckdbSession) Close(_ context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}
