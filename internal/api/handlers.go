// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/logging"
	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
	"github.com/tomtom215/cobasket/internal/validation"
)

// Engine is the recommendation engine as seen by the HTTP layer.
// *recommend.Engine implements it.
type Engine interface {
	Handle(ctx context.Context, req recommend.Request) (recommend.Result, error)
	Ingest(ctx context.Context, loc source.Locator) (recommend.IngestReport, error)
	Status(ctx context.Context) (recommend.Status, error)
	Ping(ctx context.Context) error
	Defaults() recommend.Options
	MaxRecommendations() int
}

// BreakerReporter exposes the remote source circuit breaker state.
// *source.Loader implements it.
type BreakerReporter interface {
	BreakerState() string
}

// Handler serves the HTTP endpoints.
type Handler struct {
	engine         Engine
	breaker        BreakerReporter
	requestTimeout time.Duration
	startTime      time.Time
	logger         zerolog.Logger
}

// NewHandler creates the endpoint handlers. breaker may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(engine Engine, breaker BreakerReporter, requestTimeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:         engine,
		breaker:        breaker,
		requestTimeout: requestTimeout,
		startTime:      time.Now(),
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.requestTimeout)
}

// recommendation runs the parse, validate and handle steps shared by both
// recommendation endpoints. On a client error it returns the failure to
// report instead of a result.
func (h *Handler) recommendation(w http.ResponseWriter, r *http.Request) (recommend.Result, *validation.RequestValidationError, error) {
	req, err := parseRecommendRequest(w, r, h.engine.Defaults())
	if err != nil {
		return recommend.Result{}, nil, err
	}
	if verr := req.Validate(h.engine.MaxRecommendations()); verr != nil {
		return recommend.Result{}, verr, nil
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()
	res, err := h.engine.Handle(ctx, req)
	return res, nil, err
}

// RecommendItems serves GET and POST /recommendItems. Responses keep the
// historical shape: the item map on success, {"message"} when there are not
// enough orders, {"error"} on failure.
func (h *Handler) RecommendItems(w http.ResponseWriter, r *http.Request) {
	res, verr, err := h.recommendation(w, r)
	switch {
	case verr != nil:
		apiErr := verr.ToAPIError()
		h.writeLegacyError(w, r, http.StatusBadRequest, &APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details})
	case err != nil:
		h.legacyFailure(w, r, err)
	default:
		if res.Recommendations == nil {
			res.Recommendations = recommend.Recommendations{}
		}
		writeJSON(w, r, http.StatusOK, res.Recommendations)
	}
}

func (h *Handler) legacyFailure(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *recommend.InsufficientDataError
	if errors.As(err, &insufficient) {
		writeJSON(w, r, http.StatusOK, map[string]string{"message": insufficient.Error()})
		return
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		h.writeLegacyError(w, r, http.StatusBadRequest, &APIError{
			Code:    ErrCodeBadRequest,
			Message: reqErr.message,
			Details: map[string]string{"field": reqErr.field},
		})
		return
	}

	f := h.logFailure(r, err)
	h.writeLegacyError(w, r, f.status, &APIError{Code: f.code, Message: f.message})
}

func (h *Handler) writeLegacyError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	apiErr.RequestID = logging.RequestIDFromContext(r.Context())
	writeJSON(w, r, status, map[string]*APIError{"error": apiErr})
}

// logFailure classifies err and logs it, with its full detail, alongside the
// request IDs.
func (h *Handler) logFailure(r *http.Request, err error) failure {
	f := classify(err)
	logger := logging.Enrich(r.Context(), h.logger)
	var event *zerolog.Event
	if f.status < http.StatusInternalServerError {
		event = logger.Warn()
	} else {
		event = logger.Error()
	}
	event.
		Err(err).
		Int("status", f.status).
		Str("code", f.code).
		Str("path", r.URL.Path).
		Msg("Request failed")
	return f
}

// respondFailure writes err in the standard envelope.
func (h *Handler) respondFailure(rw *ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, reqErr.message, map[string]string{"field": reqErr.field})
		return
	}
	f := h.logFailure(r, err)
	rw.Error(f.status, f.code, f.message)
}

// recommendationsData is the /api/v1/recommendations payload.
type recommendationsData struct {
	Recommendations recommend.Recommendations `json:"recommendations"`
	OrderCount      int64                     `json:"order_count"`
	Message         string                    `json:"message,omitempty"`
	Ingest          *recommend.IngestReport   `json:"ingest,omitempty"`
}

// Recommendations serves GET and POST /api/v1/recommendations in the
// standard envelope. Insufficient data is a success with a message and an
// empty map.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	res, verr, err := h.recommendation(w, r)
	if verr != nil {
		rw.ValidationError(verr)
		return
	}

	var insufficient *recommend.InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		rw.Success(recommendationsData{
			Recommendations: recommend.Recommendations{},
			OrderCount:      insufficient.OrderCount,
			Message:         insufficient.Error(),
		})
	case err != nil:
		h.respondFailure(rw, r, err)
	default:
		rw.SuccessWithMeta(recommendationsData{
			Recommendations: res.Recommendations,
			OrderCount:      res.OrderCount,
			Ingest:          res.Ingest,
		}, &APIMeta{DatasetVersion: res.DatasetVersion, CacheHit: res.CacheHit})
	}
}

// Ingest serves POST /api/v1/ingest: reset, load and link without scoring.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var body ingestBody
	if _, err := readBody(w, r, &body); err != nil {
		h.respondFailure(rw, r, err)
		return
	}
	if verr := body.validate(); verr != nil {
		rw.ValidationError(verr)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()
	report, err := h.engine.Ingest(ctx, source.Locator{Path: body.OrderJSONPath, Remote: body.IsRemotePath})
	if err != nil {
		h.respondFailure(rw, r, err)
		return
	}
	rw.SuccessWithMeta(report, &APIMeta{DatasetVersion: report.DatasetVersion})
}

// Status serves GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := h.withTimeout(r)
	defer cancel()
	status, err := h.engine.Status(ctx)
	if err != nil {
		h.respondFailure(rw, r, err)
		return
	}
	if h.breaker != nil {
		status.SourceBreaker = h.breaker.BreakerState()
	}
	rw.Success(status)
}

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports 200 only when the graph store answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.engine.Ping(ctx); err != nil {
		logging.Enrich(r.Context(), h.logger).Warn().Err(err).Msg("Readiness check failed")
		rw.ServiceUnavailable("The graph store is unreachable")
		return
	}
	rw.Success(map[string]interface{}{"ready": true})
}

// NotFound handles unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "No route for "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed handles known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}
