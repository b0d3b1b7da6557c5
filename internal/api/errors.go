// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
	"github.com/tomtom215/cobasket/internal/validation"
)

// requestError reports a malformed request body or query parameter.
type requestError struct {
	field   string
	message string
}

func (e *requestError) Error() string { return e.message }

// failure is an engine error translated for the client.
type failure struct {
	status  int
	code    string
	message string
}

// classify maps an engine error to its HTTP status, code and client message.
// Source, store and query details stay in the logs.
func classify(err error) failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure{http.StatusGatewayTimeout, "TIMEOUT", "The request did not complete within the configured timeout"}
	}

	kind := recommend.KindOf(err)
	switch kind {
	case recommend.KindSourceUnavailable:
		msg := "The order source could not be read or decoded"
		if errors.Is(err, source.ErrCircuitOpen) {
			msg = "The remote order source is failing; retry later"
		}
		return failure{http.StatusBadGateway, string(kind), msg}
	case recommend.KindInvalidOptions:
		msg := "Validation failed"
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			msg = verr.Error()
		}
		return failure{http.StatusBadRequest, ErrCodeValidationFailed, msg}
	case recommend.KindStoreConnectivity:
		return failure{http.StatusServiceUnavailable, string(kind), "The graph store is unreachable"}
	case recommend.KindQueryExecution:
		return failure{http.StatusInternalServerError, string(kind), "A graph store query failed"}
	default:
		return failure{http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred"}
	}
}
