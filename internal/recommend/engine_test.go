// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// fixtureSources writes a small but fully connected snapshot: three books
// rated by two heavy readers, one lightly rated book, and a zero rating
// that must be cleaned away.
func fixtureSources(t *testing.T) (books, ratings, users string) {
	t.Helper()
	dir := t.TempDir()

	books = writeFixture(t, dir, "books.csv",
		"ISBN,Book-Title,Book-Author,Publisher,Image-URL-M\n"+
			"b1,The Great Gatsby,F. Scott Fitzgerald,Scribner,http://img/b1.jpg\n"+
			"b2,Nineteen Eighty-Four,George Orwell,Secker,http://img/b2.jpg\n"+
			"b3,Brave New World,Aldous Huxley,Chatto,http://img/b3.jpg\n"+
			"b9,Obscure Chapbook,Anon,Selfpub,http://img/b9.jpg\n")

	ratings = writeFixture(t, dir, "ratings.csv",
		"User-ID,ISBN,Book-Rating\n"+
			"1,b1,8\n"+
			"1,b2,7\n"+
			"1,b3,2\n"+
			"2,b1,9\n"+
			"2,b2,8\n"+
			"2,b3,1\n"+
			"3,b9,10\n"+
			"3,b1,0\n")

	users = writeFixture(t, dir, "users.csv",
		"User-ID,Location,Age\n"+
			"1,\"portland, oregon, usa\",35\n"+
			"2,\"london, england, uk\",\n"+
			"3,\"oslo, norway\",28\n")

	return books, ratings, users
}

func buildFixtureEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	books, ratings, users := fixtureSources(t)
	e, err := Build(context.Background(), books, ratings, users, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

func TestBuild_Stats(t *testing.T) {
	e := buildFixtureEngine(t, smallConfig())
	s := e.Stats()

	if s.Books != 4 {
		t.Errorf("Books = %d, want 4", s.Books)
	}
	// Eight rating rows minus the zero rating.
	if s.Ratings != 7 {
		t.Errorf("Ratings = %d, want 7", s.Ratings)
	}
	if s.Users != 3 {
		t.Errorf("Users = %d, want 3", s.Users)
	}
	if s.RankedBooks != 4 {
		t.Errorf("RankedBooks = %d, want 4", s.RankedBooks)
	}
	if s.UniverseSize != 3 {
		t.Errorf("UniverseSize = %d, want 3", s.UniverseSize)
	}
	if s.BuiltAt.IsZero() {
		t.Error("BuiltAt not set")
	}
}

func TestBuild_DefaultConfig(t *testing.T) {
	books, ratings, _ := fixtureSources(t)
	e, err := Build(context.Background(), books, ratings, "", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build with nil config: %v", err)
	}

	got := e.Config()
	want := DefaultConfig()
	if got.MinUserRatings != want.MinUserRatings || got.MinBookRatings != want.MinBookRatings {
		t.Errorf("Config() = %+v, want defaults %+v", got, want)
	}

	// Tiny fixture, production thresholds: the similarity universe is
	// empty and known titles report below-threshold.
	if e.Stats().UniverseSize != 0 {
		t.Errorf("UniverseSize = %d, want 0", e.Stats().UniverseSize)
	}
	_, err = e.Recommendations("The Great Gatsby", 5)
	var nfe *NotFoundError
	if !errors.As(err, &nfe) || nfe.Reason != ReasonBelowThreshold {
		t.Errorf("expected below_threshold NotFoundError, got %v", err)
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	books, ratings, _ := fixtureSources(t)
	cfg := &Config{MinUserRatings: -1, MinBookRatings: 50}
	if _, err := Build(context.Background(), books, ratings, "", cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestBuild_FailureIsAtomic(t *testing.T) {
	books, _, _ := fixtureSources(t)
	e, err := Build(context.Background(), books, filepath.Join(t.TempDir(), "absent.csv"), "", smallConfig(), zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for missing rating source")
	}
	if e != nil {
		t.Error("failed Build must not return a partial engine")
	}
}

func TestEngine_Recommendations(t *testing.T) {
	e := buildFixtureEngine(t, smallConfig())

	set, err := e.Recommendations("The Great Gatsby", 2)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if set.Book.ISBN != "b1" || set.Book.Author != "F. Scott Fitzgerald" {
		t.Errorf("unexpected resolved book: %+v", set.Book)
	}
	if len(set.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(set.Items))
	}
	if set.Items[0].Title != "Nineteen Eighty-Four" {
		t.Errorf("expected Nineteen Eighty-Four first, got %q", set.Items[0].Title)
	}

	_, err = e.Recommendations("No Such Book", 2)
	var nfe *NotFoundError
	if !errors.As(err, &nfe) || nfe.Reason != ReasonUnknownTitle {
		t.Errorf("expected unknown_title NotFoundError, got %v", err)
	}
}

// Two editions share a title: b5 comes first in file order, b2 first by
// identifier. The similarity row belongs to b2, so the metadata in a
// recommendation set must describe b2, not the file-order edition.
func TestEngine_RecommendationsDuplicateTitleEdition(t *testing.T) {
	dir := t.TempDir()
	books := writeFixture(t, dir, "books.csv",
		"ISBN,Book-Title,Book-Author,Publisher,Image-URL-M\n"+
			"b5,Twinsong,Author Five,P5,http://img/b5.jpg\n"+
			"b1,Anchor,Author One,P1,http://img/b1.jpg\n"+
			"b2,Twinsong,Author Two,P2,http://img/b2.jpg\n")
	ratings := writeFixture(t, dir, "ratings.csv",
		"User-ID,ISBN,Book-Rating\n"+
			"1,b1,8\n"+
			"1,b2,7\n"+
			"1,b5,3\n"+
			"2,b1,9\n"+
			"2,b2,8\n"+
			"2,b5,2\n")

	e, err := Build(context.Background(), books, ratings, "", smallConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	set, err := e.Recommendations("Twinsong", 2)
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if set.Book.ISBN != "b2" || set.Book.Author != "Author Two" {
		t.Errorf("metadata should match the similarity row's edition, got %+v", set.Book)
	}

	// The plain title lookup keeps its file-order policy.
	info, err := e.BookInfo("Twinsong")
	if err != nil {
		t.Fatalf("BookInfo: %v", err)
	}
	if info.ISBN != "b5" {
		t.Errorf("BookInfo should resolve file order first, got %+v", info)
	}
}

func TestEngine_PopularBooksAndSearch(t *testing.T) {
	e := buildFixtureEngine(t, smallConfig())

	top, err := e.PopularBooks(2)
	if err != nil {
		t.Fatalf("PopularBooks: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Weight > top[i-1].Weight {
			t.Errorf("popular books out of order at %d", i)
		}
	}

	if got := e.SearchBooks("gatsby", 5); len(got) != 1 || got[0] != "The Great Gatsby" {
		t.Errorf("SearchBooks = %v", got)
	}

	info, err := e.BookInfo("Brave New World")
	if err != nil {
		t.Fatalf("BookInfo: %v", err)
	}
	if info.ISBN != "b3" {
		t.Errorf("BookInfo ISBN = %q, want b3", info.ISBN)
	}
}

func TestEngine_AvailableBooks(t *testing.T) {
	e := buildFixtureEngine(t, smallConfig())

	count := 0
	for range e.AvailableBooks() {
		count++
	}
	if count != e.Stats().UniverseSize {
		t.Errorf("AvailableBooks yielded %d titles, want %d", count, e.Stats().UniverseSize)
	}
}

func TestEngine_ConcurrentReads(t *testing.T) {
	e := buildFixtureEngine(t, smallConfig())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.PopularBooks(3); err != nil {
				t.Errorf("PopularBooks: %v", err)
			}
			if _, err := e.Recommendations("The Great Gatsby", 2); err != nil {
				t.Errorf("Recommendations: %v", err)
			}
			_ = e.SearchBooks("new", 5)
			for range e.AvailableBooks() {
			}
			_ = e.Stats()
		}()
	}
	wg.Wait()
}

func TestBuild_ContextCancellation(t *testing.T) {
	books, ratings, _ := fixtureSources(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Build(ctx, books, ratings, "", smallConfig(), zerolog.Nop()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
