// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package middleware provides the chi middleware shared by every route.

  - RequestID: takes X-Request-ID from the client or generates a UUID, echoes
    it on the response, and seeds the logging context with request and
    correlation IDs
  - PrometheusMetrics: records request counts, latency and in-flight requests,
    labelled by the matched route pattern

Both are func(http.Handler) http.Handler and plug into chi's r.Use.
*/
package middleware
