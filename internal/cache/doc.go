// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

/*
Package cache provides a thread-safe, generic LRU cache with TTL expiry.

Lookups, inserts and evictions are O(1): a hash map indexes nodes of a
doubly-linked recency list. Expired entries are dropped lazily on access or
in bulk with CleanupExpired.

	c := cache.NewLRU[Options, Result](1024, 5*time.Minute)
	c.Add(opts, res)
	if res, ok := c.Get(opts); ok {
	    ...
	}
*/
package cache
