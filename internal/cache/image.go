// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package cache

import (
	"context"
	"fmt"
	"sync"
)

// DefaultCapacity is the entry bound used when no capacity is configured.
const DefaultCapacity = 200

// Blob is one cached cover image.
type Blob struct {
	Data        []byte
	ContentType string
}

// FetchFunc retrieves an image that is not in the cache. It must honor
// the context and return a FetchError-compatible error on failure.
type FetchFunc func(ctx context.Context, url string) (Blob, error)

// FetchError wraps a failed origin fetch. Failed fetches are reported to
// the caller and never cached.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch cover %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// imageEntry is a node in the doubly-linked recency list.
type imageEntry struct {
	key   string
	value Blob
	prev  *imageEntry
	next  *imageEntry
}

// ImageCache is a thread-safe LRU cache of cover images keyed by URL.
// It provides O(1) Get, Put, and eviction via a doubly-linked list for
// ordering and a hashmap for lookups.
//
// GetOrFetch releases the lock while the fetch function runs. Duplicate
// concurrent fetches for the same key are possible and benign; the last
// completed fetch is the one retained.
type ImageCache struct {
	mu sync.Mutex

	// capacity is the maximum number of entries
	capacity int

	// items maps URLs to linked list nodes for O(1) lookup
	items map[string]*imageEntry

	// head and tail are sentinel nodes for the doubly-linked list
	// head.next is the most recently used, tail.prev is the least recently used
	head *imageEntry
	tail *imageEntry

	// stats
	hits      int64
	misses    int64
	evictions int64
}

// NewImageCache creates an image cache bounded to capacity entries.
func NewImageCache(capacity int) *ImageCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &ImageCache{
		capacity: capacity,
		items:    make(map[string]*imageEntry, capacity),
		head:     &imageEntry{},
		tail:     &imageEntry{},
	}

	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get retrieves a cached image. Found entries are moved to the front
// (most recently used).
func (c *ImageCache) Get(url string) (Blob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[url]; exists {
		c.moveToFront(entry)
		c.hits++
		return entry.value, true
	}

	c.misses++
	return Blob{}, false
}

// Put adds or replaces an image. If the cache is at capacity, the least
// recently used entry is evicted.
func (c *ImageCache) Put(url string, blob Blob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(url, blob)
}

// GetOrFetch returns the cached image for url, fetching and caching it on
// a miss. The fetch runs without the cache lock held, so concurrent
// callers missing on the same url may each invoke fetch; every successful
// result is stored and the last write wins. A fetch error is returned
// as-is and nothing is cached for the key.
func (c *ImageCache) GetOrFetch(ctx context.Context, url string, fetch FetchFunc) (Blob, error) {
	c.mu.Lock()
	if entry, exists := c.items[url]; exists {
		c.moveToFront(entry)
		c.hits++
		blob := entry.value
		c.mu.Unlock()
		return blob, nil
	}
	c.misses++
	c.mu.Unlock()

	blob, err := fetch(ctx, url)
	if err != nil {
		return Blob{}, err
	}

	c.mu.Lock()
	c.put(url, blob)
	c.mu.Unlock()

	return blob, nil
}

// Remove removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *ImageCache) Remove(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[url]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries in the cache.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the configured entry bound.
func (c *ImageCache) Capacity() int {
	return c.capacity
}

// Clear removes all entries from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*imageEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns hit, miss, and eviction counters plus the current size.
func (c *ImageCache) Stats() (hits, misses, evictions int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *ImageCache) put(url string, blob Blob) {
	if entry, exists := c.items[url]; exists {
		entry.value = blob
		c.moveToFront(entry)
		return
	}

	entry := &imageEntry{key: url, value: blob}
	c.addToFront(entry)
	c.items[url] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// addToFront adds an entry to the front of the list (most recently used).
func (c *ImageCache) addToFront(entry *imageEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

// moveToFront moves an existing entry to the front of the list.
func (c *ImageCache) moveToFront(entry *imageEntry) {
	c.unlink(entry)
	c.addToFront(entry)
}

// removeEntry removes an entry from both the list and the map.
func (c *ImageCache) removeEntry(entry *imageEntry) {
	c.unlink(entry)
	delete(c.items, entry.key)
}

// evictOldest removes the least recently used entry (tail.prev).
func (c *ImageCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.evictions++
}

func (c *ImageCache) unlink(entry *imageEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}
