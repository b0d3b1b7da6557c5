// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cobasket/internal/metrics"
)

func TestRequestValidate(t *testing.T) {
	valid := Options{NumRecommendations: 5, ThresholdPercent: 10}

	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{name: "defaults", req: Request{Options: valid}},
		{name: "local path", req: Request{Options: valid, OrderJSONPath: "/data/orders.json"}},
		{name: "remote url", req: Request{Options: valid, OrderJSONPath: "https://example.com/o.json", IsRemotePath: true}},
		{name: "zero recommendations", req: Request{Options: Options{}}, wantField: "numRecommendations"},
		{name: "above max", req: Request{Options: Options{NumRecommendations: 101}}, wantField: "numRecommendations"},
		{name: "threshold above 100", req: Request{Options: Options{NumRecommendations: 1, ThresholdPercent: 100.5}}, wantField: "thresholdPercent"},
		{name: "negative min order count", req: Request{Options: Options{NumRecommendations: 1, MinOrderCount: -1}}, wantField: "minOrderCount"},
		{name: "negative min item count", req: Request{Options: Options{NumRecommendations: 1, MinItemOrderedCount: -1}}, wantField: "minItemOrderedCount"},
		{name: "remote path not a url", req: Request{Options: valid, OrderJSONPath: "/data/orders.json", IsRemotePath: true}, wantField: "orderJsonPath"},
		{name: "path too long", req: Request{Options: valid, OrderJSONPath: strings.Repeat("a", maxLocatorLength+1)}, wantField: "orderJsonPath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(100)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if got := err.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("field = %q, want %q (%v)", got, tt.wantField, err)
			}
		})
	}
}

func TestRequestLocator(t *testing.T) {
	if _, ok := (&Request{}).Locator(); ok {
		t.Error("empty request should not name a locator")
	}
	loc, ok := (&Request{OrderJSONPath: "https://x/o.json", IsRemotePath: true}).Locator()
	if !ok || !loc.Remote || loc.Path != "https://x/o.json" {
		t.Errorf("Locator() = %+v, %v", loc, ok)
	}
}

func TestResultCache(t *testing.T) {
	c := newResultCache(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.lru.SetClock(func() time.Time { return now })

	key := Options{NumRecommendations: 5}
	if _, ok := c.get(key); ok {
		t.Fatal("empty cache hit")
	}

	c.put(key, Result{OrderCount: 42})
	res, ok := c.get(key)
	if !ok || res.OrderCount != 42 {
		t.Fatalf("get() = %+v, %v", res, ok)
	}
	if _, ok := c.get(Options{NumRecommendations: 6}); ok {
		t.Error("hit for a different option tuple")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get(key); ok {
		t.Error("hit after TTL expiry")
	}

	c.put(key, Result{})
	c.clear()
	if c.size() != 0 {
		t.Errorf("size() after clear = %d", c.size())
	}

	var disabled *resultCache
	disabled.put(key, Result{})
	if _, ok := disabled.get(key); ok {
		t.Error("nil cache hit")
	}
}

func TestResultCache_Status(t *testing.T) {
	c := newResultCache(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.lru.SetClock(func() time.Time { return now })

	c.put(Options{NumRecommendations: 1}, Result{})
	now = now.Add(30 * time.Second)
	c.put(Options{NumRecommendations: 2}, Result{})
	c.get(Options{NumRecommendations: 2})
	c.get(Options{NumRecommendations: 3})

	if got := testutil.ToFloat64(metrics.RecommendCacheEntries); got != 2 {
		t.Errorf("recommend_cache_entries = %v, want 2", got)
	}

	// The first entry is past its TTL, the second is not.
	now = now.Add(45 * time.Second)
	st := c.status()
	want := CacheStatus{Entries: 1, Hits: 1, Misses: 1, Pruned: 1}
	if st == nil || *st != want {
		t.Errorf("status() = %+v, want %+v", st, want)
	}
	if got := testutil.ToFloat64(metrics.RecommendCacheEntries); got != 1 {
		t.Errorf("recommend_cache_entries = %v, want 1", got)
	}

	var disabled *resultCache
	if disabled.status() != nil {
		t.Error("disabled cache reported a status")
	}
}

func TestResultCache_Bounded(t *testing.T) {
	c := newResultCache(time.Minute)
	for i := 0; i < maxCacheEntries+10; i++ {
		c.put(Options{NumRecommendations: i + 1}, Result{})
	}
	if c.size() > maxCacheEntries {
		t.Errorf("size() = %d, want <= %d", c.size(), maxCacheEntries)
	}
}
