// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package logging provides zerolog-based structured logging.
//
// The global logger is configured once at startup:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("Listening")
//
// Components receive a zerolog.Logger tagged with WithComponent and enrich it
// per request with Enrich, which adds the request_id and correlation_id
// carried by the context:
//
//	logging.Enrich(ctx, e.logger).Info().Int64("orders", n).Msg("Ingest complete")
//
// Ctx does the same starting from the logger stored in the context (or the
// global logger).
//
// # Configuration
//
//	LOG_LEVEL   trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  json or console (default: json)
//	LOG_CALLER  include file:line (default: false)
//
// # slog
//
// SlogHandler adapts zerolog to log/slog for libraries that take a
// *slog.Logger, such as the sutureslog event hook of the supervisor tree.
//
// # Secrets
//
// SanitizeURL masks passwords and token-like query parameters in URLs
// before they are logged. Remote order locators and store URIs pass
// through it.
package logging
