// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cobasket/internal/config"
)

var neo4jSchema = []string{
	`CREATE CONSTRAINT item_id_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.itemId IS UNIQUE`,
	`CREATE CONSTRAINT order_id_unique IF NOT EXISTS FOR (o:Order) REQUIRE o.orderId IS UNIQUE`,
}

const (
	cypherReset = `
		MATCH (n) WHERE n:Order OR n:Item
		CALL { WITH n DETACH DELETE n } IN TRANSACTIONS OF 10000 ROWS`

	cypherExistingOrders = `
		UNWIND $ids AS id
		MATCH (o:Order {orderId: id})
		RETURN o.orderId AS orderId
		LIMIT 1`

	cypherLoadOrders = `
		UNWIND $orders AS row
		CREATE (o:Order {orderId: row.orderId})
		WITH o, row
		UNWIND row.items AS itemId
		MERGE (i:Item {itemId: itemId})
		CREATE (o)-[:ORDERED]->(i)`

	cypherUnlink = `MATCH (:Item)-[r:ORDERED_TOGETHER]->(:Item) DELETE r`

	cypherLink = `
		MATCH (a:Item)<-[:ORDERED]-(o:Order)-[:ORDERED]->(b:Item)
		WHERE a.itemId < b.itemId
		WITH a, b, count(DISTINCT o) AS n
		MERGE (a)-[r:ORDERED_TOGETHER]->(b)
		SET r.orders = n`

	cypherCountOrders = `MATCH (o:Order) RETURN count(o) AS n`

	cypherCoOccurrences = `
		MATCH (a:Item)-[r:ORDERED_TOGETHER]-(b:Item)
		RETURN a.itemId AS anchor, b.itemId AS other, r.orders AS together,
		       size([(a)<-[:ORDERED]-(:Order) | 1]) AS anchorOrders`
)

var neo4jStatsQueries = [4]string{
	`MATCH (o:Order) RETURN count(o) AS n`,
	`MATCH (i:Item) RETURN count(i) AS n`,
	`MATCH (:Order)-[r:ORDERED]->(:Item) RETURN count(r) AS n`,
	`MATCH (:Item)-[r:ORDERED_TOGETHER]->(:Item) RETURN count(r) AS n`,
}

// Neo4jStore keeps the graph in a Neo4j database reached over Bolt.
type Neo4jStore struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    zerolog.Logger
}

// NewNeo4jStore connects, verifies connectivity and installs the uniqueness
// constraints.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewNeo4jStore(ctx context.Context, cfg *config.Neo4jConfig, logger zerolog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
		})
	if err != nil {
		return nil, fmt.Errorf("%w: create neo4j driver: %w", ErrUnavailable, err)
	}

	s := &Neo4jStore{
		driver:    driver,
		database:  cfg.Database,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
	if s.batchSize <= 0 {
		s.batchSize = 500
	}

	if err := s.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	sess := s.newSession(ctx, neo4j.AccessModeWrite)
	defer s.closeSession(ctx, sess)
	for _, stmt := range neo4jSchema {
		if _, err := runCollect(ctx, sess, stmt, nil); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("failed to create constraint: %w", err)
		}
	}

	logger.Info().Str("uri", cfg.URI).Str("database", cfg.Database).Msg("Neo4j graph store connected")
	return s, nil
}

// Backend implements Store.
func (s *Neo4jStore) Backend() string { return BackendNeo4j }

func (s *Neo4jStore) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) closeSession(ctx context.Context, sess neo4j.SessionWithContext) {
	if err := sess.Close(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close Neo4j session")
	}
}

// Open implements Store.
func (s *Neo4jStore) Open(ctx context.Context, mode AccessMode) (Session, error) {
	accessMode := neo4j.AccessModeRead
	if mode == ReadWrite {
		accessMode = neo4j.AccessModeWrite
	}
	return &neo4jSession{
		sessionState: sessionState{mode: mode},
		store:        s,
		sess:         s.newSession(ctx, accessMode),
	}, nil
}

// Ping implements Store.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *Neo4jStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.driver.Close(ctx)
}

type neo4jSession struct {
	sessionState
	store *Neo4jStore
	sess  neo4j.SessionWithContext
}

// runCollect runs an auto-commit query and collects every record.
func runCollect(ctx context.Context, sess neo4j.SessionWithContext, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := sess.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func recordInt(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if n, ok := val.(int64); ok {
		return n
	}
	return 0
}

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func (n *neo4jSession) Reset(ctx context.Context) error {
	if err := n.check(ctx, true); err != nil {
		return err
	}
	if _, err := runCollect(ctx, n.sess, cypherReset, nil); err != nil {
		return fmt.Errorf("failed to reset graph: %w", err)
	}
	return nil
}

func (n *neo4jSession) LoadOrders(ctx context.Context, orders []Order) error {
	if err := n.check(ctx, true); err != nil {
		return err
	}
	if err := validateOrders(orders); err != nil {
		return err
	}

	batch := n.store.batchSize
	for start := 0; start < len(orders); start += batch {
		end := start + batch
		if end > len(orders) {
			end = len(orders)
		}
		if err := n.loadBatch(ctx, orders[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (n *neo4jSession) loadBatch(ctx context.Context, orders []Order) error {
	ids := make([]string, len(orders))
	rows := make([]map[string]any, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		distinct := orders[i].DistinctItems()
		items := make([]string, len(distinct))
		for j, it := range distinct {
			items[j] = string(it)
		}
		rows[i] = map[string]any{"orderId": orders[i].ID, "items": items}
	}

	_, err := n.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypherExistingOrders, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			return nil, fmt.Errorf("%w: order %q already loaded", ErrDuplicateOrder, recordString(res.Record(), "orderId"))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, cypherLoadOrders, map[string]any{"orders": rows})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	return nil
}

func (n *neo4jSession) LinkOrderedTogether(ctx context.Context) error {
	if err := n.check(ctx, true); err != nil {
		return err
	}
	_, err := n.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range []string{cypherUnlink, cypherLink} {
			res, err := tx.Run(ctx, q, nil)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to link ordered_together: %w", err)
	}
	return nil
}

func (n *neo4jSession) CountOrders(ctx context.Context) (int64, error) {
	if err := n.check(ctx, false); err != nil {
		return 0, err
	}
	records, err := runCollect(ctx, n.sess, cypherCountOrders, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return recordInt(records[0], "n"), nil
}

func (n *neo4jSession) CoOccurrences(ctx context.Context) ([]CoOccurrence, error) {
	if err := n.check(ctx, false); err != nil {
		return nil, err
	}
	result, err := n.sess.Run(ctx, cypherCoOccurrences, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query co-occurrences: %w", err)
	}

	var out []CoOccurrence
	for result.Next(ctx) {
		record := result.Record()
		out = append(out, CoOccurrence{
			Anchor:       ItemID(recordString(record, "anchor")),
			Other:        ItemID(recordString(record, "other")),
			Together:     recordInt(record, "together"),
			AnchorOrders: recordInt(record, "anchorOrders"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating co-occurrences: %w", err)
	}
	return out, nil
}

// Stats runs the four counts in parallel read sessions.
func (n *neo4jSession) Stats(ctx context.Context) (Stats, error) {
	if err := n.check(ctx, false); err != nil {
		return Stats{}, err
	}

	var counts [4]int64
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range neo4jStatsQueries {
		g.Go(func() error {
			sess := n.store.newSession(gctx, neo4j.AccessModeRead)
			defer n.store.closeSession(gctx, sess)

			records, err := runCollect(gctx, sess, q, nil)
			if err != nil {
				return err
			}
			if len(records) > 0 {
				counts[i] = recordInt(records[0], "n")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}

	return Stats{
		Orders:          counts[0],
		Items:           counts[1],
		Ordered:         counts[2],
		OrderedTogether: counts[3],
	}, nil
}

func (n *neo4jSession) Close(ctx context.Context) error {
	if n.closed {
		return nil
	}
	n.closed = true
	return n.sess.Close(ctx)
}
