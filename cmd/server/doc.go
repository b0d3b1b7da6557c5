// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package main is the entry point for the Cobasket server.

Cobasket ingests order documents into a co-purchase graph and answers
"frequently bought together" queries over HTTP.

# Startup

 1. Configuration: koanf v2 (defaults, then YAML, then environment)
 2. Logging: zerolog, JSON or console
 3. Graph store: memory, duckdb, badger or neo4j (STORE_BACKEND)
 4. Order source loader with a circuit breaker for remote documents
 5. Recommendation engine
 6. Supervisor tree:

	RootSupervisor ("cobasket")
	├── DataSupervisor ("data-layer")
	│   └── RebuildService (REBUILD_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

# Configuration

	HTTP_PORT=3000
	STORE_BACKEND=memory          # memory, duckdb, badger, neo4j
	NEO4J_URI=bolt://localhost:7687
	NEO4J_USERNAME=neo4j
	NEO4J_PASSWORD=<password>
	SOURCE_BASE_DIR=/data         # confine local order files
	RECOMMEND_MIN_ORDER_COUNT=1000
	REBUILD_ENABLED=true
	REBUILD_LOCATOR=https://shop.example.com/orders.json
	REBUILD_IS_REMOTE=true
	REBUILD_INTERVAL=1h
	LOG_LEVEL=info
	LOG_FORMAT=json

A YAML file is read from CONFIG_PATH, ./config.yaml or
/etc/cobasket/config.yaml when present.

# Signals

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
server.shutdown_timeout, the tree stops, and the graph store is closed last.
*/
package main
