// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
	"github.com/tomtom215/cobasket/internal/validation"
)

const exampleDoc = `[
	{"orderId": "o1", "lineItems": [{"itemId": 1}, {"itemId": 2}]},
	{"orderId": "o2", "lineItems": [{"itemId": 1}, {"itemId": 2}]},
	{"orderId": "o3", "lineItems": [{"itemId": 1}, {"itemId": 3}]}
]`

// newTestServer wires a real engine over the in-memory store. Local
// locators resolve inside a temp dir holding example.json.
func newTestServer(t *testing.T, mwCfg *ChiMiddlewareConfig) http.Handler {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "example.json"), []byte(exampleDoc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loader := source.NewLoader(&config.SourceConfig{
		HTTPTimeout: 5 * time.Second,
		MaxBytes:    1 << 20,
		BaseDir:     dir,
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  3,
			FailureRatio: 0.6,
		},
	}, zerolog.Nop())

	engine, err := recommend.NewEngine(graph.NewMemoryStore(), loader, &config.RecommendConfig{
		DefaultNumRecommendations: 5,
		DefaultMinOrderCount:      1000,
		MaxRecommendations:        50,
		CacheEnabled:              true,
		CacheTTL:                  time.Minute,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if mwCfg == nil {
		mwCfg = DefaultChiMiddlewareConfig()
		mwCfg.RateLimitDisabled = true
	}
	handler := NewHandler(engine, loader, 5*time.Second, zerolog.Nop())
	return NewRouter(handler, NewChiMiddleware(mwCfg)).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type legacyError struct {
	Error APIError `json:"error"`
}

func TestRecommendItems_Example(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/recommendItems",
		`{"orderJsonPath": "example.json", "minOrderCount": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	got := decode[map[string][]string](t, rec)
	want := map[string][]string{
		"1": {"2", "3"},
		"2": {"1"},
		"3": {"1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recommendations = %v, want %v", got, want)
	}
}

func TestRecommendItems_GetWithBody(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/recommendItems",
		`{"orderJsonPath": "example.json", "minOrderCount": 0, "numRecommendations": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[map[string][]string](t, rec)
	if want := []string{"2"}; !reflect.DeepEqual(got["1"], want) {
		t.Errorf("item 1 = %v, want %v", got["1"], want)
	}
}

func TestRecommendItems_InsufficientData(t *testing.T) {
	h := newTestServer(t, nil)

	// Default minOrderCount is 1000 and the example has 3 orders.
	rec := do(t, h, http.MethodPost, "/recommendItems", `{"orderJsonPath": "example.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[map[string]string](t, rec)
	if got["message"] != "Order count must be greater 1000" {
		t.Errorf("message = %q", got["message"])
	}
}

func TestRecommendItems_QueryFallback(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/recommendItems?orderJsonPath=example.json&minOrderCount=0&thresholdPercent=50", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[map[string][]string](t, rec)
	want := map[string][]string{
		"1": {"2"},
		"2": {"1"},
		"3": {"1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("recommendations = %v, want %v", got, want)
	}
}

func TestRecommendItems_BodyWinsOverQuery(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/recommendItems?minOrderCount=5000",
		`{"orderJsonPath": "example.json", "minOrderCount": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[map[string][]string](t, rec)
	if len(got) != 3 {
		t.Errorf("got %d anchors, want 3", len(got))
	}
}

func TestRecommendItems_ClientErrors(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		status   int
		code     string
		contains string
	}{
		{
			name:     "numRecommendations below minimum",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"numRecommendations": 0}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeValidationFailed,
			contains: "numRecommendations",
		},
		{
			name:     "numRecommendations above maximum",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"numRecommendations": 51}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeValidationFailed,
			contains: "numRecommendations",
		},
		{
			name:     "threshold above 100",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"thresholdPercent": 101}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeValidationFailed,
			contains: "thresholdPercent",
		},
		{
			name:     "negative minOrderCount",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"minOrderCount": -1}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeValidationFailed,
			contains: "minOrderCount",
		},
		{
			name:     "remote path that is not a URL",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"orderJsonPath": "example.json", "isRemotePath": true}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeValidationFailed,
			contains: "orderJsonPath",
		},
		{
			name:     "malformed JSON",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"numRecommendations":`,
			status:   http.StatusBadRequest,
			code:     ErrCodeBadRequest,
			contains: "not valid JSON",
		},
		{
			name:     "wrong JSON type",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"numRecommendations": "five"}`,
			status:   http.StatusBadRequest,
			code:     ErrCodeBadRequest,
			contains: "not valid JSON",
		},
		{
			name:     "unparseable query parameter",
			method:   http.MethodGet,
			target:   "/recommendItems?numRecommendations=many",
			status:   http.StatusBadRequest,
			code:     ErrCodeBadRequest,
			contains: "numRecommendations must be an integer",
		},
		{
			name:     "missing order file",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"orderJsonPath": "missing.json", "minOrderCount": 0}`,
			status:   http.StatusBadGateway,
			code:     string(recommend.KindSourceUnavailable),
			contains: "could not be read",
		},
		{
			name:     "path outside base dir",
			method:   http.MethodPost,
			target:   "/recommendItems",
			body:     `{"orderJsonPath": "../escape.json"}`,
			status:   http.StatusBadGateway,
			code:     string(recommend.KindSourceUnavailable),
			contains: "could not be read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body.String())
			}
			got := decode[legacyError](t, rec)
			if got.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %s does not mention %q", rec.Body.String(), tt.contains)
			}
			if got.Error.RequestID == "" {
				t.Error("error is missing request_id")
			}
		})
	}
}

func TestRecommendItems_BodyTooLarge(t *testing.T) {
	h := newTestServer(t, nil)

	body := `{"orderJsonPath": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/recommendItems", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "exceeds") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

type envelope[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
	Meta    *APIMeta  `json:"meta"`
}

func TestIngestThenRecommendations(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/ingest", `{"orderJsonPath": "example.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}
	report := decode[envelope[recommend.IngestReport]](t, rec)
	if !report.Success {
		t.Fatal("ingest success = false")
	}
	if report.Data.Orders != 3 || report.Data.Items != 3 || report.Data.Ordered != 6 || report.Data.OrderedTogether != 2 {
		t.Errorf("report = %+v", report.Data)
	}
	if report.Meta == nil || report.Meta.DatasetVersion != 1 {
		t.Errorf("meta = %+v, want dataset_version 1", report.Meta)
	}

	// Without a locator the ingested dataset is scored as is.
	rec = do(t, h, http.MethodPost, "/api/v1/recommendations", `{"minOrderCount": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommendations status = %d, body = %s", rec.Code, rec.Body.String())
	}
	first := decode[envelope[recommendationsData]](t, rec)
	if first.Data.OrderCount != 3 {
		t.Errorf("order_count = %d, want 3", first.Data.OrderCount)
	}
	if got := first.Data.Recommendations[graph.ItemID("1")]; !reflect.DeepEqual(got, []graph.ItemID{"2", "3"}) {
		t.Errorf("item 1 = %v", got)
	}
	if first.Meta.CacheHit {
		t.Error("first request reported a cache hit")
	}

	rec = do(t, h, http.MethodPost, "/api/v1/recommendations", `{"minOrderCount": 2}`)
	second := decode[envelope[recommendationsData]](t, rec)
	if !second.Meta.CacheHit {
		t.Error("repeated request missed the cache")
	}
	if second.Meta.DatasetVersion != 1 {
		t.Errorf("dataset_version = %d, want 1", second.Meta.DatasetVersion)
	}
}

func TestRecommendations_InsufficientData(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/recommendations", `{"orderJsonPath": "example.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[envelope[recommendationsData]](t, rec)
	if got.Data.Message != "Order count must be greater 1000" {
		t.Errorf("message = %q", got.Data.Message)
	}
	if got.Data.OrderCount != 3 {
		t.Errorf("order_count = %d, want 3", got.Data.OrderCount)
	}
	if len(got.Data.Recommendations) != 0 {
		t.Errorf("recommendations = %v, want empty", got.Data.Recommendations)
	}
}

func TestRecommendations_ValidationEnvelope(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/recommendations", `{"numRecommendations": 0, "thresholdPercent": -1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[envelope[json.RawMessage]](t, rec)
	if got.Success || got.Error == nil {
		t.Fatalf("envelope = %s", rec.Body.String())
	}
	if got.Error.Code != ErrCodeValidationFailed {
		t.Errorf("code = %q", got.Error.Code)
	}
	for _, field := range []string{"numRecommendations", "thresholdPercent"} {
		if !strings.Contains(rec.Body.String(), field) {
			t.Errorf("body does not mention %s: %s", field, rec.Body.String())
		}
	}
}

func TestIngest_Errors(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing locator", `{}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"empty body", ``, http.StatusBadRequest, ErrCodeValidationFailed},
		{"remote locator not a URL", `{"orderJsonPath": "orders.json", "isRemotePath": true}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"malformed body", `[`, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing file", `{"orderJsonPath": "nope.json"}`, http.StatusBadGateway, string(recommend.KindSourceUnavailable)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/ingest", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body.String())
			}
			got := decode[envelope[json.RawMessage]](t, rec)
			if got.Error == nil || got.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %q", got.Error, tt.code)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	before := decode[envelope[recommend.Status]](t, rec)
	if before.Data.Backend != graph.BackendMemory {
		t.Errorf("backend = %q", before.Data.Backend)
	}
	if before.Data.DatasetVersion != 0 || before.Data.LastIngest != nil {
		t.Errorf("fresh status = %+v", before.Data)
	}
	if before.Data.SourceBreaker != "closed" {
		t.Errorf("source_breaker = %q, want closed", before.Data.SourceBreaker)
	}

	do(t, h, http.MethodPost, "/api/v1/ingest", `{"orderJsonPath": "example.json"}`)
	for i := 0; i < 2; i++ {
		do(t, h, http.MethodPost, "/api/v1/recommendations", `{"minOrderCount": 0}`)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/status", "")
	after := decode[envelope[recommend.Status]](t, rec)
	if after.Data.DatasetVersion != 1 {
		t.Errorf("dataset_version = %d, want 1", after.Data.DatasetVersion)
	}
	want := graph.Stats{Orders: 3, Items: 3, Ordered: 6, OrderedTogether: 2}
	if after.Data.Graph != want {
		t.Errorf("graph = %+v, want %+v", after.Data.Graph, want)
	}
	if after.Data.LastIngest == nil || after.Data.LastIngest.Locator != "file:example.json" {
		t.Errorf("last_ingest = %+v", after.Data.LastIngest)
	}
	wantCache := recommend.CacheStatus{Entries: 1, Hits: 1, Misses: 1}
	if after.Data.Cache == nil || *after.Data.Cache != wantCache {
		t.Errorf("cache = %+v, want %+v", after.Data.Cache, wantCache)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		if got := decode[envelope[map[string]interface{}]](t, rec); !got.Success {
			t.Errorf("%s success = false", path)
		}
	}
}

func TestRoutingErrors(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		method string
		path   string
		status int
		code   string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, ErrCodeNotFound},
		{http.MethodDelete, "/recommendItems", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
		{http.MethodGet, "/api/v1/ingest", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			got := decode[envelope[json.RawMessage]](t, rec)
			if got.Error == nil || got.Error.Code != tt.code {
				t.Errorf("error = %+v, want %q", got.Error, tt.code)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
	got := decode[envelope[json.RawMessage]](t, rec)
	if got.Meta == nil || got.Meta.RequestID != "req-123" {
		t.Errorf("meta = %+v", got.Meta)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	do(t, h, http.MethodGet, "/api/v1/health/live", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("/metrics does not expose api_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	h := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	got := decode[envelope[json.RawMessage]](t, rec)
	if got.Error == nil || got.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", got.Error)
	}

	// Health checks are never limited.
	if rec := do(t, h, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

// stubEngine returns canned errors to exercise the failure mapping.
type stubEngine struct {
	err     error
	pingErr error
}

func (s *stubEngine) Handle(context.Context, recommend.Request) (recommend.Result, error) {
	return recommend.Result{}, s.err
}

func (s *stubEngine) Ingest(context.Context, source.Locator) (recommend.IngestReport, error) {
	return recommend.IngestReport{}, s.err
}

func (s *stubEngine) Status(context.Context) (recommend.Status, error) {
	return recommend.Status{}, s.err
}

func (s *stubEngine) Ping(context.Context) error { return s.pingErr }

func (s *stubEngine) Defaults() recommend.Options {
	return recommend.Options{NumRecommendations: 5, MinOrderCount: 1000}
}

func (s *stubEngine) MaxRecommendations() int { return 0 }

func newStubServer(engine Engine) http.Handler {
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	return NewRouter(NewHandler(engine, nil, time.Second, zerolog.Nop()), NewChiMiddleware(mw)).SetupChi()
}

func TestFailureMapping(t *testing.T) {
	negative := validation.ValidateVar("numRecommendations", -1, "min=1")

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "store unreachable",
			err:     fmt.Errorf("%w: dial tcp: refused", recommend.ErrStoreConnectivity),
			status:  http.StatusServiceUnavailable,
			code:    string(recommend.KindStoreConnectivity),
			message: "The graph store is unreachable",
		},
		{
			name:    "query failure",
			err:     fmt.Errorf("%w: count: syntax", recommend.ErrQueryExecution),
			status:  http.StatusInternalServerError,
			code:    string(recommend.KindQueryExecution),
			message: "A graph store query failed",
		},
		{
			name:    "circuit open",
			err:     fmt.Errorf("%w: %w", recommend.ErrSourceUnavailable, source.ErrCircuitOpen),
			status:  http.StatusBadGateway,
			code:    string(recommend.KindSourceUnavailable),
			message: "The remote order source is failing; retry later",
		},
		{
			name:    "timeout",
			err:     fmt.Errorf("%w: %w", recommend.ErrQueryExecution, context.DeadlineExceeded),
			status:  http.StatusGatewayTimeout,
			code:    "TIMEOUT",
			message: "The request did not complete within the configured timeout",
		},
		{
			name:    "source failure",
			err:     fmt.Errorf("%w: decode orders: unexpected end of JSON input", recommend.ErrSourceUnavailable),
			status:  http.StatusBadGateway,
			code:    string(recommend.KindSourceUnavailable),
			message: "The order source could not be read or decoded",
		},
		{
			name:    "invalid options",
			err:     fmt.Errorf("%w: %w", recommend.ErrInvalidOptions, negative),
			status:  http.StatusBadRequest,
			code:    ErrCodeValidationFailed,
			message: negative.Error(),
		},
		{
			name:    "unclassified",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    ErrCodeInternalError,
			message: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newStubServer(&stubEngine{err: tt.err})

			legacy := do(t, h, http.MethodPost, "/recommendItems", `{}`)
			if legacy.Code != tt.status {
				t.Fatalf("legacy status = %d, want %d", legacy.Code, tt.status)
			}
			le := decode[legacyError](t, legacy)
			if le.Error.Code != tt.code || le.Error.Message != tt.message {
				t.Errorf("legacy error = %+v", le.Error)
			}

			enveloped := do(t, h, http.MethodPost, "/api/v1/recommendations", `{}`)
			if enveloped.Code != tt.status {
				t.Fatalf("envelope status = %d, want %d", enveloped.Code, tt.status)
			}
			env := decode[envelope[json.RawMessage]](t, enveloped)
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("envelope = %s", enveloped.Body.String())
			}

			status := do(t, h, http.MethodGet, "/api/v1/status", "")
			if status.Code != tt.status {
				t.Errorf("status endpoint = %d, want %d", status.Code, tt.status)
			}
		})
	}
}

func TestFailureMapping_HidesStoreDetails(t *testing.T) {
	h := newStubServer(&stubEngine{err: fmt.Errorf("%w: bolt://secret-host:7687", recommend.ErrStoreConnectivity)})

	rec := do(t, h, http.MethodPost, "/recommendItems", `{}`)
	if bytes.Contains(rec.Body.Bytes(), []byte("secret-host")) {
		t.Errorf("response leaks store address: %s", rec.Body.String())
	}
}

func TestFailureMapping_HidesSourceDetails(t *testing.T) {
	h := newTestServer(t, nil)
	// A path that escapes the base dir and one that does not exist; neither
	// the resolved path nor the OS error may reach the client.
	for _, body := range []string{
		`{"orderJsonPath": "../../etc/hostname"}`,
		`{"orderJsonPath": "nested/missing.json"}`,
	} {
		rec := do(t, h, http.MethodPost, "/recommendItems", body)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("%s: status = %d, want 502", body, rec.Code)
		}
		for _, leak := range []string{"hostname", "missing.json", "no such file", os.TempDir()} {
			if strings.Contains(rec.Body.String(), leak) {
				t.Errorf("%s: response leaks %q: %s", body, leak, rec.Body.String())
			}
		}
	}
}

func TestHealthReady_StoreDown(t *testing.T) {
	h := newStubServer(&stubEngine{pingErr: errors.New("connection refused")})

	rec := do(t, h, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	got := decode[envelope[json.RawMessage]](t, rec)
	if got.Error == nil || got.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", got.Error)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}
}
