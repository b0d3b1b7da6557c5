// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package recommend turns historical orders into "frequently bought
// together" recommendations.
//
// # Pipeline
//
// A request runs through three stages:
//
//   - Ingest: the order document is loaded and validated, the graph store
//     is reset, and every order is written with its ORDERED edges
//   - BuildCooccurrence: every pair of distinct items sharing an order is
//     linked with an ORDERED_TOGETHER edge
//   - Recommend: for each anchor item, co-purchased items are scored as
//     100 * together / anchorOrders, filtered and ranked
//
// Ingest and BuildCooccurrence run as one write unit under the engine's
// exclusive lock. Recommend takes the shared lock, so readers never see a
// half-built dataset.
//
// # Scoring
//
// For an anchor item1 ordered in N orders and a neighbour item2 linked by an
// edge of multiplicity T, the approximate percentage is 100*T/N. A candidate
// qualifies when the percentage is strictly above thresholdPercent and N is
// strictly above minItemOrderedCount. Candidates are ordered by percentage
// descending, ties by ascending item identifier (integers numerically), and
// truncated to numRecommendations. Anchors without candidates are omitted.
//
// # Guard
//
// When the store holds minOrderCount orders or fewer, Recommend returns an
// *InsufficientDataError instead of scoring. It matches ErrInsufficientData.
//
// # Usage
//
//	engine, err := recommend.NewEngine(store, loader, &cfg.Recommend, logger)
//	res, err := engine.Handle(ctx, recommend.Request{
//	    Options:       engine.Defaults(),
//	    OrderJSONPath: "/data/orders.json",
//	})
package recommend
