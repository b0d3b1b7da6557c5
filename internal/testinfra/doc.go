// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package testinfra provides integration test infrastructure: a Neo4j server
// managed by testcontainers-go and an HTTP server for remote order documents.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/graph/... ./internal/recommend/...
//
// Tests call SkipIfNoDocker first so they skip cleanly on machines without a
// Docker daemon. The first run pulls the Neo4j image.
package testinfra
