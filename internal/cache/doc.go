// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package cache provides the bounded in-memory cover image cache.
//
// The cache is a thread-safe LRU keyed by image URL. Fetches run outside
// the cache lock so a slow origin never blocks concurrent readers; two
// goroutines missing on the same key may both fetch, and the last write
// wins. Failed fetches are never cached, so a transient origin error does
// not poison the key.
package cache
