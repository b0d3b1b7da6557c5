// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestLRU_GetAdd(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 2 {
		t.Errorf("Stats() = %d, %d, %d; want 1, 1, 2", hits, misses, size)
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	c.Get("a")
	c.Add("d", 4)

	tests := []struct {
		key  string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", true},
	}
	for _, tt := range tests {
		if _, ok := c.Get(tt.key); ok != tt.want {
			t.Errorf("Get(%s) present = %v, want %v", tt.key, ok, tt.want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := NewLRU[int, string](10, time.Minute)
	c.SetClock(clock.Now)

	c.Add(1, "one")
	clock.Advance(30 * time.Second)
	c.Add(2, "two")

	clock.Advance(45 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Error("Get(1) hit after expiry")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("Get(2) missed before expiry")
	}

	// Re-adding resets the TTL.
	c.Add(2, "two")
	clock.Advance(50 * time.Second)
	if _, ok := c.Get(2); !ok {
		t.Error("Get(2) missed after TTL reset")
	}

	clock.Advance(2 * time.Minute)
	c.Add(3, "three")
	if removed := c.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_Clear(t *testing.T) {
	c := NewLRU[string, int](0, 0)
	if c.capacity != defaultCapacity || c.ttl != defaultTTL {
		t.Errorf("defaults = %d, %v", c.capacity, c.ttl)
	}

	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a")

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	if hits, _, _ := c.Stats(); hits != 1 {
		t.Errorf("hits after Clear = %d, want 1", hits)
	}
	c.Add("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache unusable after Clear")
	}
}

type structKey struct {
	n   int
	pct float64
}

func TestLRU_StructKeys(t *testing.T) {
	c := NewLRU[structKey, []string](4, time.Minute)
	c.Add(structKey{5, 0}, []string{"x"})

	if _, ok := c.Get(structKey{5, 0.5}); ok {
		t.Error("hit for a different key")
	}
	if v, ok := c.Get(structKey{5, 0}); !ok || len(v) != 1 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](64, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add((g*500+i)%128, i)
				c.Get(i % 128)
				if i%100 == 0 {
					c.CleanupExpired()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
