// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"time"

	"github.com/tomtom215/cobasket/internal/cache"
	"github.com/tomtom215/cobasket/internal/metrics"
)

// maxCacheEntries bounds the result cache. Option tuples are client chosen,
// so the key space is open.
const maxCacheEntries = 1024

// resultCache memoizes results per option tuple for one dataset version.
// The engine clears it whenever the dataset changes. A nil *resultCache is
// a disabled cache.
type resultCache struct {
	lru *cache.LRU[Options, Result]
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{lru: cache.NewLRU[Options, Result](maxCacheEntries, ttl)}
}

func (c *resultCache) get(key Options) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	res, ok := c.lru.Get(key)
	if !ok {
		metrics.RecommendCacheMisses.Inc()
		return Result{}, false
	}
	metrics.RecommendCacheHits.Inc()
	return res, true
}

func (c *resultCache) put(key Options, result Result) {
	if c == nil {
		return
	}
	c.lru.Add(key, result)
	metrics.RecommendCacheEntries.Set(float64(c.lru.Len()))
}

func (c *resultCache) clear() {
	if c == nil {
		return
	}
	c.lru.Clear()
	metrics.RecommendCacheEntries.Set(0)
}

func (c *resultCache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// status drops expired entries and reports the cache counters. It returns
// nil for a disabled cache.
func (c *resultCache) status() *CacheStatus {
	if c == nil {
		return nil
	}
	pruned := c.lru.CleanupExpired()
	hits, misses, size := c.lru.Stats()
	metrics.RecommendCacheEntries.Set(float64(size))
	return &CacheStatus{Entries: size, Hits: hits, Misses: misses, Pruned: pruned}
}
