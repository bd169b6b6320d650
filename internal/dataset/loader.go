// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
)

// Column names expected in the source snapshots (Book-Crossing layout).
const (
	colISBN      = "ISBN"
	colTitle     = "Book-Title"
	colAuthor    = "Book-Author"
	colPublisher = "Publisher"
	colImageURL  = "Image-URL-M"
	colUserID    = "User-ID"
	colRating    = "Book-Rating"
	colLocation  = "Location"
	colAge       = "Age"
)

// maxRating is the upper bound of the rating scale.
const maxRating = 10

// Load reads and cleans the book and rating sources, plus the optional
// user source (pass an empty path to skip it). The returned tables are
// immutable.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Load(bookSource, ratingSource, userSource string, logger zerolog.Logger) (*Tables, error) {
	logger = logger.With().Str("component", "dataset").Logger()

	books, dupBooks, err := loadBooks(bookSource)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("path", bookSource).
		Int("books", len(books)).
		Int("duplicate_keys_dropped", dupBooks).
		Msg("loaded book records")

	t := &Tables{
		Books:     books,
		bookIndex: make(map[string]int, len(books)),
	}
	for i, b := range books {
		t.bookIndex[b.ISBN] = i
	}

	ratings, stats, err := loadRatings(ratingSource, t.bookIndex)
	if err != nil {
		return nil, err
	}
	t.Ratings = ratings
	logger.Info().
		Str("path", ratingSource).
		Int("ratings", len(ratings)).
		Int("zero_ratings_dropped", stats.zeroDropped).
		Int("duplicate_pairs_dropped", stats.dupDropped).
		Int("orphan_ratings_dropped", stats.orphanDropped).
		Msg("loaded rating records")

	if userSource != "" {
		users, err := loadUsers(userSource)
		if err != nil {
			return nil, err
		}
		t.Users = users
		logger.Info().
			Str("path", userSource).
			Int("users", len(users)).
			Msg("loaded user records, age column discarded")
	}

	return t, nil
}

// ratingStats tracks rows removed by the cleaning policy.
type ratingStats struct {
	zeroDropped   int
	dupDropped    int
	orphanDropped int
}

func loadBooks(path string) ([]BookRecord, int, error) {
	rows, header, err := openCSV(path, []string{colISBN, colTitle, colAuthor, colPublisher, colImageURL})
	if err != nil {
		return nil, 0, err
	}
	defer rows.close()

	books := make([]BookRecord, 0, 1024)
	seen := make(map[string]struct{})
	duplicates := 0

	for {
		rec, rowNum, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, &DataSourceError{Path: path, Row: rowNum, Err: err}
		}

		isbn := strings.TrimSpace(header.field(rec, colISBN))
		if isbn == "" {
			continue
		}
		// The book key is unique; repeated keys are source noise and the
		// first row wins, consistent with the keep-first pair policy.
		if _, dup := seen[isbn]; dup {
			duplicates++
			continue
		}
		seen[isbn] = struct{}{}

		books = append(books, BookRecord{
			ISBN:      isbn,
			Title:     header.field(rec, colTitle),
			Author:    header.field(rec, colAuthor),
			Publisher: header.field(rec, colPublisher),
			ImageURL:  header.field(rec, colImageURL),
		})
	}

	return books, duplicates, nil
}

func loadRatings(path string, bookIndex map[string]int) ([]RatingRecord, ratingStats, error) {
	rows, header, err := openCSV(path, []string{colUserID, colISBN, colRating})
	if err != nil {
		return nil, ratingStats{}, err
	}
	defer rows.close()

	var stats ratingStats
	ratings := make([]RatingRecord, 0, 4096)

	type pair struct {
		user int
		isbn string
	}
	seen := make(map[pair]struct{})

	for {
		rec, rowNum, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, &DataSourceError{Path: path, Row: rowNum, Err: err}
		}

		userID, err := strconv.Atoi(strings.TrimSpace(header.field(rec, colUserID)))
		if err != nil {
			return nil, stats, &DataSourceError{Path: path, Field: colUserID, Row: rowNum, Err: err}
		}

		rating, err := strconv.Atoi(strings.TrimSpace(header.field(rec, colRating)))
		if err != nil {
			return nil, stats, &DataSourceError{Path: path, Field: colRating, Row: rowNum, Err: err}
		}
		if rating < 0 || rating > maxRating {
			return nil, stats, &DataSourceError{
				Path: path, Field: colRating, Row: rowNum,
				Err: fmt.Errorf("rating %d outside [0, %d]", rating, maxRating),
			}
		}

		// Zero is an implicit non-rating, excluded from all modeling.
		if rating == 0 {
			stats.zeroDropped++
			continue
		}

		isbn := strings.TrimSpace(header.field(rec, colISBN))

		p := pair{user: userID, isbn: isbn}
		if _, dup := seen[p]; dup {
			stats.dupDropped++
			continue
		}
		seen[p] = struct{}{}

		// Orphan ratings reference books absent from the book table and
		// are silently discarded per the cleaning policy.
		if _, ok := bookIndex[isbn]; !ok {
			stats.orphanDropped++
			continue
		}

		ratings = append(ratings, RatingRecord{UserID: userID, ISBN: isbn, Rating: rating})
	}

	return ratings, stats, nil
}

func loadUsers(path string) ([]UserRecord, error) {
	rows, header, err := openCSV(path, []string{colUserID, colLocation})
	if err != nil {
		return nil, err
	}
	defer rows.close()

	users := make([]UserRecord, 0, 1024)

	for {
		rec, rowNum, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataSourceError{Path: path, Row: rowNum, Err: err}
		}

		userID, err := strconv.Atoi(strings.TrimSpace(header.field(rec, colUserID)))
		if err != nil {
			return nil, &DataSourceError{Path: path, Field: colUserID, Row: rowNum, Err: err}
		}

		// The age column is present in the source but dropped here; it is
		// too sparse to be useful and must never reach a model.
		users = append(users, UserRecord{
			UserID:   userID,
			Location: header.field(rec, colLocation),
		})
	}

	return users, nil
}

// headerMap resolves column names to field positions for one CSV file.
type headerMap struct {
	index map[string]int
}

// field returns the named column of a record, repaired to valid UTF-8.
// Records shorter than the header (ragged rows) yield an empty string.
func (h headerMap) field(rec []string, name string) string {
	i, ok := h.index[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return toUTF8(rec[i])
}

// csvRows is a thin iteration wrapper so the per-table loaders share the
// open/header/row-numbering plumbing.
type csvRows struct {
	f      *os.File
	r      *csv.Reader
	rowNum int
}

func (c *csvRows) next() ([]string, int, error) {
	rec, err := c.r.Read()
	c.rowNum++
	if err != nil {
		return nil, c.rowNum, err
	}
	return rec, c.rowNum, nil
}

func (c *csvRows) close() {
	_ = c.f.Close()
}

// openCSV opens a source file, reads its header row, and verifies the
// required columns are present.
func openCSV(path string, required []string) (*csvRows, headerMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, headerMap{}, &DataSourceError{Path: path, Err: err}
	}

	r := csv.NewReader(f)
	// Source snapshots carry embedded quotes and ragged rows; tolerate both
	// and validate per-field instead.
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, io.EOF) {
			return nil, headerMap{}, &DataSourceError{Path: path, Err: errors.New("empty file, missing header row")}
		}
		return nil, headerMap{}, &DataSourceError{Path: path, Err: err}
	}

	hm := headerMap{index: make(map[string]int, len(header))}
	for i, name := range header {
		hm.index[strings.TrimSpace(stripBOM(toUTF8(name)))] = i
	}

	for _, name := range required {
		if _, ok := hm.index[name]; !ok {
			_ = f.Close()
			return nil, headerMap{}, &DataSourceError{Path: path, Field: name, Err: errors.New("required column missing")}
		}
	}

	return &csvRows{f: f, r: r, rowNum: 1}, hm, nil
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

// toUTF8 repairs mixed-encoding fields. The snapshots are nominally UTF-8
// but contain stray Latin-1 bytes; invalid sequences are re-decoded as
// ISO 8859-1, which maps every byte, so this cannot fail.
func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "�")
	}
	return out
}
