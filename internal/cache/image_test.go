// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func blobOf(s string) Blob {
	return Blob{Data: []byte(s), ContentType: "image/jpeg"}
}

func TestImageCache_GetPut(t *testing.T) {
	c := NewImageCache(4)

	if _, ok := c.Get("http://img/a.jpg"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Put("http://img/a.jpg", blobOf("a"))
	got, ok := c.Get("http://img/a.jpg")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if string(got.Data) != "a" || got.ContentType != "image/jpeg" {
		t.Errorf("got %+v", got)
	}

	// Replacing a key updates in place without growing.
	c.Put("http://img/a.jpg", blobOf("a2"))
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	got, _ = c.Get("http://img/a.jpg")
	if string(got.Data) != "a2" {
		t.Errorf("expected replacement, got %q", got.Data)
	}
}

func TestImageCache_EvictsOldestAtCapacity(t *testing.T) {
	c := NewImageCache(3)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("u%d", i), blobOf("x"))
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("u0"); ok {
		t.Error("u0 should have been evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(fmt.Sprintf("u%d", i)); !ok {
			t.Errorf("u%d should remain", i)
		}
	}

	_, _, evictions, _ := c.Stats()
	if evictions != 1 {
		t.Errorf("evictions = %d, want 1", evictions)
	}
}

func TestImageCache_GetRefreshesRecency(t *testing.T) {
	c := NewImageCache(2)

	c.Put("a", blobOf("a"))
	c.Put("b", blobOf("b"))

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}

	c.Put("c", blobOf("c"))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should remain after being touched")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should remain")
	}
}

func TestImageCache_GetOrFetch(t *testing.T) {
	c := NewImageCache(4)
	calls := 0
	fetch := func(_ context.Context, url string) (Blob, error) {
		calls++
		return blobOf("body of " + url), nil
	}

	got, err := c.GetOrFetch(context.Background(), "u1", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if string(got.Data) != "body of u1" {
		t.Errorf("got %q", got.Data)
	}

	// Second call is served from cache.
	if _, err := c.GetOrFetch(context.Background(), "u1", fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestImageCache_FailedFetchNotCached(t *testing.T) {
	c := NewImageCache(4)
	boom := errors.New("origin down")
	calls := 0
	fetch := func(_ context.Context, url string) (Blob, error) {
		calls++
		if calls == 1 {
			return Blob{}, &FetchError{URL: url, Err: boom}
		}
		return blobOf("recovered"), nil
	}

	_, err := c.GetOrFetch(context.Background(), "u1", fetch)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("FetchError must unwrap to the cause")
	}
	if c.Len() != 0 {
		t.Fatalf("failed fetch must not be cached, Len = %d", c.Len())
	}

	// The key stays fetchable and succeeds on retry.
	got, err := c.GetOrFetch(context.Background(), "u1", fetch)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if string(got.Data) != "recovered" {
		t.Errorf("got %q", got.Data)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

// The fetch function runs without the cache lock, so it may itself use
// the cache without deadlocking.
func TestImageCache_FetchMayReenter(t *testing.T) {
	c := NewImageCache(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.GetOrFetch(context.Background(), "outer", func(ctx context.Context, _ string) (Blob, error) {
			return c.GetOrFetch(ctx, "inner", func(context.Context, string) (Blob, error) {
				return blobOf("inner"), nil
			})
		})
		if err != nil {
			t.Errorf("GetOrFetch: %v", err)
		}
	}()
	<-done

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestImageCache_ConcurrentDuplicateFetches(t *testing.T) {
	c := NewImageCache(8)

	var calls atomic.Int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := c.GetOrFetch(context.Background(), "same", func(context.Context, string) (Blob, error) {
				calls.Add(1)
				return blobOf("same body"), nil
			})
			if err != nil {
				t.Errorf("GetOrFetch: %v", err)
			}
			if string(got.Data) != "same body" {
				t.Errorf("got %q", got.Data)
			}
		}()
	}
	close(start)
	wg.Wait()

	// Duplicate fetches are allowed but only one entry may remain.
	if calls.Load() < 1 {
		t.Error("fetch never called")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestImageCache_RemoveAndClear(t *testing.T) {
	c := NewImageCache(4)
	c.Put("a", blobOf("a"))
	c.Put("b", blobOf("b"))

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}

	// The list is still consistent after Clear.
	c.Put("c", blobOf("c"))
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestImageCache_DefaultCapacity(t *testing.T) {
	c := NewImageCache(0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}
}

func TestImageCache_Stats(t *testing.T) {
	c := NewImageCache(4)
	c.Put("a", blobOf("a"))

	c.Get("a")
	c.Get("a")
	c.Get("nope")

	hits, misses, evictions, size := c.Stats()
	if hits != 2 || misses != 1 || evictions != 0 || size != 1 {
		t.Errorf("Stats = (%d, %d, %d, %d), want (2, 1, 0, 1)", hits, misses, evictions, size)
	}
}
