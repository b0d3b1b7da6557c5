// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"errors"
	"fmt"

	"github.com/tomtom215/cobasket/internal/graph"
)

var (
	// ErrSourceUnavailable reports an order locator that could not be read or
	// decoded, including a remote source behind an open circuit breaker.
	ErrSourceUnavailable = errors.New("order source unavailable")

	// ErrStoreConnectivity reports an unreachable graph store.
	ErrStoreConnectivity = errors.New("graph store unreachable")

	// ErrQueryExecution reports a failed store operation during ingest,
	// co-occurrence building or scoring.
	ErrQueryExecution = errors.New("graph query failed")

	// ErrInsufficientData is matched by *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient order data")

	// ErrInvalidOptions wraps the *validation.RequestValidationError for
	// options or a locator the engine refuses to run with.
	ErrInvalidOptions = errors.New("invalid recommendation options")
)

// InsufficientDataError is returned by Recommend when the store does not
// hold more than MinOrderCount orders. It is an expected outcome, not a
// failure.
type InsufficientDataError struct {
	MinOrderCount int64
	OrderCount    int64
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("Order count must be greater %d", e.MinOrderCount)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Kind classifies errors returned by the engine.
type Kind string

const (
	KindNone              Kind = ""
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"
	KindStoreConnectivity Kind = "STORE_CONNECTIVITY_FAILURE"
	KindQueryExecution    Kind = "QUERY_EXECUTION_FAILURE"
	KindInsufficientData  Kind = "INSUFFICIENT_DATA"
	KindInvalidOptions    Kind = "INVALID_OPTIONS"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// KindOf maps err to its Kind. Unrecognized errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrInvalidOptions):
		return KindInvalidOptions
	case errors.Is(err, ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, ErrStoreConnectivity):
		return KindStoreConnectivity
	case errors.Is(err, ErrQueryExecution):
		return KindQueryExecution
	default:
		return KindInternal
	}
}

// checkRequest validates req against the engine's recommendation limit.
func checkRequest(req *Request, maxRecommendations int) error {
	if verr := req.Validate(maxRecommendations); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, verr)
	}
	return nil
}

// storeError classifies a graph store failure. Backends report lost
// connections as graph.ErrUnavailable.
func storeError(op string, err error) error {
	if errors.Is(err, graph.ErrUnavailable) {
		return fmt.Errorf("%w: %s: %w", ErrStoreConnectivity, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrQueryExecution, op, err)
}
