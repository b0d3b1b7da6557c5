// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/source"
)

var _ suture.Service = (*RebuildService)(nil)

type fakeIngester struct {
	mu        sync.Mutex
	calls     []source.Locator
	deadlines []bool
	err       error
	delay     time.Duration
}

func (f *fakeIngester) Ingest(ctx context.Context, loc source.Locator) (recommend.IngestReport, error) {
	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	f.calls = append(f.calls, loc)
	f.deadlines = append(f.deadlines, hasDeadline)
	err, delay := f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return recommend.IngestReport{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return recommend.IngestReport{}, err
	}
	return recommend.IngestReport{Locator: loc.String(), Orders: 3, DatasetVersion: 1}, nil
}

func (f *fakeIngester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func runFor(t *testing.T, svc *RebuildService, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return svc.Serve(ctx)
}

func TestRebuildService_Startup(t *testing.T) {
	tests := []struct {
		name      string
		onStartup bool
		want      int
	}{
		{"runs on startup", true, 1},
		{"skips startup", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeIngester{}
			svc := NewRebuildService(engine, config.RebuildConfig{
				Enabled:   true,
				Locator:   "https://example.com/orders.json",
				IsRemote:  true,
				OnStartup: tt.onStartup,
				Interval:  time.Hour,
			}, zerolog.Nop())

			if err := runFor(t, svc, 100*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if got := engine.callCount(); got != tt.want {
				t.Fatalf("Ingest calls = %d, want %d", got, tt.want)
			}
			if tt.want > 0 {
				want := source.Locator{Path: "https://example.com/orders.json", Remote: true}
				if engine.calls[0] != want {
					t.Errorf("locator = %+v, want %+v", engine.calls[0], want)
				}
				if !engine.deadlines[0] {
					t.Error("rebuild ran without a deadline")
				}
			}
		})
	}
}

func TestRebuildService_Interval(t *testing.T) {
	engine := &fakeIngester{}
	svc := NewRebuildService(engine, config.RebuildConfig{
		Locator:  "orders.json",
		Interval: 30 * time.Millisecond,
	}, zerolog.Nop())

	_ = runFor(t, svc, 110*time.Millisecond)

	if got := engine.callCount(); got < 2 {
		t.Errorf("Ingest calls = %d, want >= 2", got)
	}
	if svc.Runs() != int64(engine.callCount()) {
		t.Errorf("Runs() = %d, want %d", svc.Runs(), engine.callCount())
	}
}

func TestRebuildService_NoIntervalIdles(t *testing.T) {
	engine := &fakeIngester{}
	svc := NewRebuildService(engine, config.RebuildConfig{
		Locator:   "orders.json",
		OnStartup: true,
	}, zerolog.Nop())

	_ = runFor(t, svc, 80*time.Millisecond)

	if got := engine.callCount(); got != 1 {
		t.Errorf("Ingest calls = %d, want 1", got)
	}
}

func TestRebuildService_FailureKeepsRunning(t *testing.T) {
	engine := &fakeIngester{err: fmt.Errorf("%w: missing", recommend.ErrSourceUnavailable)}
	svc := NewRebuildService(engine, config.RebuildConfig{
		Locator:   "orders.json",
		OnStartup: true,
		Interval:  25 * time.Millisecond,
	}, zerolog.Nop())

	err := runFor(t, svc, 90*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if svc.Failures() < 2 {
		t.Errorf("Failures() = %d, want >= 2", svc.Failures())
	}
}

func TestRebuildService_Timeout(t *testing.T) {
	engine := &fakeIngester{delay: time.Second}
	svc := NewRebuildService(engine, config.RebuildConfig{
		Locator:   "orders.json",
		OnStartup: true,
		Timeout:   20 * time.Millisecond,
	}, zerolog.Nop())

	start := time.Now()
	_ = runFor(t, svc, 150*time.Millisecond)

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Serve took %v; rebuild timeout not applied", elapsed)
	}
	if svc.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", svc.Failures())
	}
}

func TestRebuildService_ShutdownDuringRebuild(t *testing.T) {
	engine := &fakeIngester{delay: time.Second}
	svc := NewRebuildService(engine, config.RebuildConfig{
		Locator:   "orders.json",
		OnStartup: true,
		Timeout:   time.Minute,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if svc.Failures() != 0 {
		t.Errorf("Failures() = %d; shutdown counted as a failure", svc.Failures())
	}
}

func TestNewRebuildService_DefaultTimeout(t *testing.T) {
	svc := NewRebuildService(&fakeIngester{}, config.RebuildConfig{}, zerolog.Nop())
	if svc.cfg.Timeout != defaultRebuildTimeout {
		t.Errorf("timeout = %v, want %v", svc.cfg.Timeout, defaultRebuildTimeout)
	}
	if svc.String() != "rebuild-service" {
		t.Errorf("String() = %q", svc.String())
	}
}
