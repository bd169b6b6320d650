// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package dataset

import "fmt"

// BookRecord is a single cleaned book row. Records are immutable after load.
//
// ISBN is the unique book key. Title is a secondary lookup key and is
// matched case-sensitively; duplicate titles across different ISBNs are
// possible and are never merged.
type BookRecord struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	ImageURL  string `json:"image_url"`
}

// RatingRecord is a single cleaned rating row.
//
// Rating is in [1, 10] after cleaning; zero ratings never survive the
// loader.
type RatingRecord struct {
	UserID int    `json:"user_id"`
	ISBN   string `json:"isbn"`
	Rating int    `json:"rating"`
}

// UserRecord is a single cleaned user row. The age column from the source
// file is discarded on ingestion and has no field here.
type UserRecord struct {
	UserID   int    `json:"user_id"`
	Location string `json:"location"`
}

// Tables holds the cleaned output of one Load pass. All slices preserve
// source file order and must not be mutated.
type Tables struct {
	Books   []BookRecord
	Ratings []RatingRecord

	// Users is empty when no user source was supplied.
	Users []UserRecord

	bookIndex map[string]int
}

// NewTables assembles clean tables from already-cleaned records. Callers
// are responsible for having applied the loader's cleaning policy; this
// exists for programmatic sources and tests. Records must not be mutated
// after the call.
func NewTables(books []BookRecord, ratings []RatingRecord, users []UserRecord) *Tables {
	t := &Tables{
		Books:     books,
		Ratings:   ratings,
		Users:     users,
		bookIndex: make(map[string]int, len(books)),
	}
	for i, b := range books {
		if _, ok := t.bookIndex[b.ISBN]; !ok {
			t.bookIndex[b.ISBN] = i
		}
	}
	return t
}

// BookByISBN returns the book record for the given key.
func (t *Tables) BookByISBN(isbn string) (BookRecord, bool) {
	i, ok := t.bookIndex[isbn]
	if !ok {
		return BookRecord{}, false
	}
	return t.Books[i], true
}

// HasBook reports whether the given key exists in the clean book table.
func (t *Tables) HasBook(isbn string) bool {
	_, ok := t.bookIndex[isbn]
	return ok
}

// DataSourceError indicates a missing, unreadable, or structurally invalid
// input source. It is fatal to engine construction.
type DataSourceError struct {
	// Path is the file that failed.
	Path string

	// Field is the missing or offending column, when applicable.
	Field string

	// Row is the 1-based row number of a malformed record, 0 when the
	// failure is not row-specific.
	Row int

	// Err is the underlying cause.
	Err error
}

func (e *DataSourceError) Error() string {
	switch {
	case e.Field != "" && e.Row > 0:
		return fmt.Sprintf("data source %s: row %d: column %q: %v", e.Path, e.Row, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("data source %s: column %q: %v", e.Path, e.Field, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("data source %s: row %d: %v", e.Path, e.Row, e.Err)
	default:
		return fmt.Sprintf("data source %s: %v", e.Path, e.Err)
	}
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
