// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/bibliographus/internal/dataset"
)

// Recommendation is one item-to-item similarity result.
type Recommendation struct {
	ISBN       string  `json:"isbn"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// CollaborativeModel holds the filtered book x user rating matrix and the
// derived book x book cosine-similarity matrix. It is immutable after
// build and safe for concurrent reads.
//
// The matrix is restricted to active users (>= MinUserRatings ratings) and,
// among their ratings, popular books (>= MinBookRatings ratings). Missing
// entries are 0, not "no opinion". A user who never rated a book is
// indistinguishable from a zero rating, which cannot occur post-filtering
// but still biases sparse rows toward zero. That is a known accuracy
// tradeoff carried over for output compatibility; do not replace it with
// mean imputation.
type CollaborativeModel struct {
	// isbns and titles are the filtered universe, ordered by identifier.
	isbns  []string
	titles []string

	// sim is the symmetric cosine-similarity matrix over that ordering.
	sim [][]float64

	// votes holds each row's global vote count for tie-breaking.
	votes []int

	titleToRow  map[string]int
	knownTitles map[string]struct{}

	// searchSet is the deduplicated title list used by SearchBooks and
	// AvailableBooks, in row order.
	searchSet []searchEntry
}

type searchEntry struct {
	title string
	lower string
	isbn  string
}

func buildCollaborative(ctx context.Context, tables *dataset.Tables, cfg *Config) (*CollaborativeModel, error) {
	userCounts := make(map[int]int)
	globalVotes := make(map[string]int)
	for _, r := range tables.Ratings {
		userCounts[r.UserID]++
		globalVotes[r.ISBN]++
	}

	active := make(map[int]struct{})
	for userID, n := range userCounts {
		if n >= cfg.MinUserRatings {
			active[userID] = struct{}{}
		}
	}

	// Book counts among active users only.
	bookCounts := make(map[string]int)
	for _, r := range tables.Ratings {
		if _, ok := active[r.UserID]; ok {
			bookCounts[r.ISBN]++
		}
	}

	isbns := make([]string, 0, len(bookCounts))
	for isbn, n := range bookCounts {
		if n >= cfg.MinBookRatings {
			isbns = append(isbns, isbn)
		}
	}
	sort.Strings(isbns)

	userIDs := make([]int, 0, len(active))
	for id := range active {
		userIDs = append(userIDs, id)
	}
	sort.Ints(userIDs)

	rowOf := make(map[string]int, len(isbns))
	for i, isbn := range isbns {
		rowOf[isbn] = i
	}
	colOf := make(map[int]int, len(userIDs))
	for j, id := range userIDs {
		colOf[id] = j
	}

	// Pivot: books as rows, active users as columns, missing entries 0.
	rows := make([][]float64, len(isbns))
	for i := range rows {
		rows[i] = make([]float64, len(userIDs))
	}
	for _, r := range tables.Ratings {
		i, okRow := rowOf[r.ISBN]
		j, okCol := colOf[r.UserID]
		if okRow && okCol {
			rows[i][j] = float64(r.Rating)
		}
	}

	sim, err := cosineMatrix(ctx, rows)
	if err != nil {
		return nil, err
	}

	m := &CollaborativeModel{
		isbns:       isbns,
		titles:      make([]string, len(isbns)),
		sim:         sim,
		votes:       make([]int, len(isbns)),
		titleToRow:  make(map[string]int, len(isbns)),
		knownTitles: make(map[string]struct{}, len(tables.Books)),
	}

	for i, isbn := range isbns {
		book, _ := tables.BookByISBN(isbn)
		m.titles[i] = book.Title
		m.votes[i] = globalVotes[isbn]
		if _, ok := m.titleToRow[book.Title]; !ok {
			// Duplicate titles inside the universe: the lowest identifier
			// wins. Undefined which one should, but deterministic.
			m.titleToRow[book.Title] = i
			m.searchSet = append(m.searchSet, searchEntry{
				title: book.Title,
				lower: strings.ToLower(book.Title),
				isbn:  isbn,
			})
		}
	}
	for _, b := range tables.Books {
		m.knownTitles[b.Title] = struct{}{}
	}

	return m, nil
}

// cosineMatrix computes pairwise cosine similarity between row vectors.
// The result is symmetric with a unit diagonal.
func cosineMatrix(ctx context.Context, rows [][]float64) ([][]float64, error) {
	n := len(rows)
	norms := make([]float64, n)
	for i, row := range rows {
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		norms[i] = math.Sqrt(sum)
	}

	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
		sim[i][i] = 1
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for j := i + 1; j < n; j++ {
			var dot float64
			for k, v := range rows[i] {
				dot += v * rows[j][k]
			}
			var s float64
			if norms[i] > 0 && norms[j] > 0 {
				s = dot / (norms[i] * norms[j])
			}
			sim[i][j] = s
			sim[j][i] = s
		}
	}

	return sim, nil
}

// Recommend returns the n books most similar to the given title, excluding
// the book itself. Ties break by higher global vote count, then identifier.
func (c *CollaborativeModel) Recommend(title string, n int) ([]Recommendation, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}

	row, ok := c.titleToRow[title]
	if !ok {
		reason := ReasonUnknownTitle
		if _, known := c.knownTitles[title]; known {
			reason = ReasonBelowThreshold
		}
		return nil, &NotFoundError{Title: title, Reason: reason}
	}

	candidates := make([]int, 0, len(c.isbns)-1)
	for j := range c.isbns {
		if j != row {
			candidates = append(candidates, j)
		}
	}

	scores := c.sim[row]
	sort.Slice(candidates, func(a, b int) bool {
		i, j := candidates[a], candidates[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		if c.votes[i] != c.votes[j] {
			return c.votes[i] > c.votes[j]
		}
		return c.isbns[i] < c.isbns[j]
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]Recommendation, n)
	for i := 0; i < n; i++ {
		j := candidates[i]
		out[i] = Recommendation{
			ISBN:       c.isbns[j],
			Title:      c.titles[j],
			Similarity: scores[j],
		}
	}
	return out, nil
}

// SearchBooks returns up to limit titles from the filtered universe that
// contain the query, case-insensitively. Results are ordered by relevance:
// prefix matches first, then ascending substring position, then
// identifier. An empty query returns an empty result, never an error.
func (c *CollaborativeModel) SearchBooks(query string, limit int) []string {
	if query == "" || limit <= 0 {
		return []string{}
	}
	q := strings.ToLower(query)

	type match struct {
		pos  int
		isbn string
		name string
	}
	matches := make([]match, 0, 16)
	for _, e := range c.searchSet {
		pos := strings.Index(e.lower, q)
		if pos < 0 {
			continue
		}
		matches = append(matches, match{pos: pos, isbn: e.isbn, name: e.title})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].pos != matches[j].pos {
			return matches[i].pos < matches[j].pos
		}
		return matches[i].isbn < matches[j].isbn
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = matches[i].name
	}
	return out
}

// AvailableBooks returns the filtered universe as a restartable sequence
// of titles, deduplicated, in matrix row order. Presentation layers can
// range over it for autocomplete without holding a private copy.
func (c *CollaborativeModel) AvailableBooks() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e := range c.searchSet {
			if !yield(e.title) {
				return
			}
		}
	}
}

// InUniverse reports whether a title is in the filtered similarity
// universe.
func (c *CollaborativeModel) InUniverse(title string) bool {
	_, ok := c.titleToRow[title]
	return ok
}

// ISBNForTitle returns the identifier of the similarity row a title
// resolves to. Duplicate titles resolve to the lowest identifier, the
// same row Recommend operates on.
func (c *CollaborativeModel) ISBNForTitle(title string) (string, bool) {
	row, ok := c.titleToRow[title]
	if !ok {
		return "", false
	}
	return c.isbns[row], true
}

// UniverseSize returns the number of books in the similarity matrix.
func (c *CollaborativeModel) UniverseSize() int {
	return len(c.isbns)
}
