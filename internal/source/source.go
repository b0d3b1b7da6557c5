// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package source resolves order document locators and decodes them into
// graph orders. Local locators are read from disk (optionally confined to a
// base directory); remote locators are fetched over HTTP through a rate
// limiter and a circuit breaker. Both are capped at a configured size.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/logging"
	"github.com/tomtom215/cobasket/internal/metrics"
)

var (
	// ErrUnavailable reports a locator that could not be read.
	ErrUnavailable = errors.New("order source unavailable")

	// ErrInvalidDocument reports a document that could not be decoded or
	// failed validation.
	ErrInvalidDocument = errors.New("invalid order document")

	// ErrCircuitOpen reports a remote fetch rejected by the circuit breaker.
	ErrCircuitOpen = errors.New("order source circuit open")

	// ErrTooLarge reports a document above source.max_bytes.
	ErrTooLarge = errors.New("order document too large")

	// ErrRateLimited reports a remote fetch that could not get a slot from
	// the fetch rate limiter before its context ended.
	ErrRateLimited = errors.New("order source fetch rate exceeded")

	// ErrOutsideBaseDir rejects local paths that escape source.base_dir.
	ErrOutsideBaseDir = errors.New("path outside source base directory")
)

// Locator names an order document: a filesystem path or an http(s) URL.
type Locator struct {
	Path   string
	Remote bool
}

// String returns the locator as the original tooling wrote it ("file:" for
// local paths).
func (l Locator) String() string {
	if l.Remote {
		return l.Path
	}
	return "file:" + strings.TrimPrefix(strings.TrimPrefix(l.Path, "file://"), "file:")
}

func (l Locator) kind() string {
	if l.Remote {
		return "remote"
	}
	return "local"
}

// Loader reads and decodes order documents. It is safe for concurrent use.
type Loader struct {
	client    *http.Client
	breaker   *fetchBreaker
	limiter   *rate.Limiter // nil when remote fetches are unlimited
	maxBytes  int64
	baseDir   string
	userAgent string
	logger    zerolog.Logger
}

// NewLoader creates a loader from the source configuration.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLoader(cfg *config.SourceConfig, logger zerolog.Logger) *Loader {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.FetchRateRequests > 0 && cfg.FetchRateWindow > 0 {
		every := cfg.FetchRateWindow / time.Duration(cfg.FetchRateRequests)
		limiter = rate.NewLimiter(rate.Every(every), cfg.FetchRateRequests)
	}
	return &Loader{
		client:    &http.Client{Timeout: timeout},
		breaker:   newFetchBreaker(&cfg.Breaker, logger),
		limiter:   limiter,
		maxBytes:  cfg.MaxBytes,
		baseDir:   cfg.BaseDir,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// BreakerState reports the remote circuit breaker state.
func (l *Loader) BreakerState() string {
	return l.breaker.State()
}

// Load reads the document behind loc and decodes it. Every error wraps
// ErrUnavailable or ErrInvalidDocument.
func (l *Loader) Load(ctx context.Context, loc Locator) ([]graph.Order, error) {
	start := time.Now()

	var (
		data []byte
		err  error
	)
	if loc.Remote {
		data, err = l.fetchRemote(ctx, loc.Path)
	} else {
		data, err = l.readLocal(loc.Path)
	}
	metrics.RecordSourceFetch(loc.kind(), int64(len(data)), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, loc, err)
	}

	orders, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	l.logger.Debug().
		Str("locator", logging.SanitizeURL(loc.String())).
		Int("bytes", len(data)).
		Int("orders", len(orders)).
		Dur("took", time.Since(start)).
		Msg("Order document loaded")
	return orders, nil
}

// resolveLocal strips a file: scheme and confines the path to the base
// directory when one is configured. Relative paths resolve against it.
func (l *Loader) resolveLocal(path string) (string, error) {
	path = strings.TrimPrefix(path, "file://")
	path = strings.TrimPrefix(path, "file:")
	if path == "" {
		return "", errors.New("empty path")
	}
	if l.baseDir == "" {
		return filepath.Clean(path), nil
	}

	base, err := filepath.Abs(l.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, path)
	}
	return path, nil
}

func (l *Loader) readLocal(path string) ([]byte, error) {
	resolved, err := l.resolveLocal(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved) //nolint:gosec // path is confined by resolveLocal when base_dir is set
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.readLimited(f)
}

func (l *Loader) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("not an http(s) URL: %q", rawURL)
	}

	// Waiting happens outside the breaker so throttled fetches never count
	// as upstream failures.
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	return l.breaker.execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if l.userAgent != "" {
			req.Header.Set("User-Agent", l.userAgent)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if l.maxBytes > 0 && resp.ContentLength > l.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
		}
		return l.readLimited(resp.Body)
	})
}

// readLimited reads r fully, failing once more than maxBytes arrive.
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	if l.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, l.maxBytes)
	}
	return data, nil
}
