// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package config loads and validates server configuration with koanf v2.

Sources are layered, later ones winning:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, ./config.yaml or /etc/cobasket/config.yaml
 3. Environment variables, mapped through envMappings
    (HTTP_PORT -> server.port, STORE_BACKEND -> store.backend, ...)

Comma-separated values such as CORS_ORIGINS become slices. Validate runs
last and names the offending environment variable in its error.

Sections: server, store (memory, duckdb, badger, neo4j), source
(remote fetch limits and circuit breaker), recommend (request defaults,
bounds and result cache), rebuild (background re-ingest), security (CORS
and rate limiting), logging.
*/
package config
