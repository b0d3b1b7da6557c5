// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package api exposes the recommendation engine over HTTP using the chi router.

Endpoints:

	GET|POST /recommendItems          recommendations, original response shape
	GET|POST /api/v1/recommendations  recommendations, standard envelope
	POST     /api/v1/ingest           reset, load and link from a locator
	GET      /api/v1/status           graph counts, dataset version, last ingest
	GET      /api/v1/health/live      liveness
	GET      /api/v1/health/ready     readiness (pings the graph store)
	GET      /metrics                 Prometheus exposition

Recommendation options come from the JSON body; query parameters fill in
options the body omits, and configured defaults fill in the rest:

	{"numRecommendations": 5, "thresholdPercent": 0, "minOrderCount": 1000,
	 "minItemOrderedCount": 0, "orderJsonPath": "/data/orders.json",
	 "isRemotePath": false}

Errors map to status codes by kind: validation 400, order source 502,
graph store unreachable 503, query failure 500, timeout 504. An order count
at or below minOrderCount is not an error: /recommendItems answers 200 with
{"message": "Order count must be greater N"}.
*/
package api
