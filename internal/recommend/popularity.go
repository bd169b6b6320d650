// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/bibliographus/internal/dataset"
)

// PopularityEntry is one book's derived popularity row.
type PopularityEntry struct {
	ISBN   string  `json:"isbn"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Votes  int     `json:"votes"`    // v: number of ratings
	Mean   float64 `json:"mean"`     // R: mean rating
	Weight float64 `json:"weighted"` // W: Bayesian-damped score
}

// PopularityModel ranks books by weighted rating. It is immutable after
// build and safe for concurrent reads.
//
// For each book with v ratings and mean R:
//
//	W = (v / (v + m)) * R + (m / (v + m)) * C
//
// where m is the 90th percentile of vote counts across rated books and C
// is the mean of R across rated books, both frozen at build time. The
// damping pulls thin-voted books toward the global mean so a single 10/10
// rating cannot outrank a book with thousands of votes.
type PopularityModel struct {
	ranked []PopularityEntry

	// m and c are the frozen formula constants.
	m float64
	c float64

	books      []dataset.BookRecord
	titleIndex map[string]int
}

func buildPopularity(ctx context.Context, tables *dataset.Tables, floor int) (*PopularityModel, error) {
	type agg struct {
		votes int
		sum   int
	}
	byISBN := make(map[string]*agg)

	for i, r := range tables.Ratings {
		if i%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a := byISBN[r.ISBN]
		if a == nil {
			a = &agg{}
			byISBN[r.ISBN] = a
		}
		a.votes++
		a.sum += r.Rating
	}

	// Formula constants from all books with at least one rating.
	counts := make([]float64, 0, len(byISBN))
	var meanSum float64
	for _, a := range byISBN {
		counts = append(counts, float64(a.votes))
		meanSum += float64(a.sum) / float64(a.votes)
	}
	sort.Float64s(counts)

	var m, c float64
	if len(byISBN) > 0 {
		m = percentile(counts, 0.90)
		c = meanSum / float64(len(byISBN))
	}

	ranked := make([]PopularityEntry, 0, len(byISBN))
	for isbn, a := range byISBN {
		if a.votes < floor {
			continue
		}
		book, _ := tables.BookByISBN(isbn)
		v := float64(a.votes)
		r := float64(a.sum) / v
		ranked = append(ranked, PopularityEntry{
			ISBN:   isbn,
			Title:  book.Title,
			Author: book.Author,
			Votes:  a.votes,
			Mean:   r,
			Weight: (v/(v+m))*r + (m/(v+m))*c,
		})
	}

	// Ties break by higher vote count, then identifier, for determinism.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		if ranked[i].Votes != ranked[j].Votes {
			return ranked[i].Votes > ranked[j].Votes
		}
		return ranked[i].ISBN < ranked[j].ISBN
	})

	titleIndex := make(map[string]int, len(tables.Books))
	for i, b := range tables.Books {
		// First match in load order wins for duplicate titles.
		if _, ok := titleIndex[b.Title]; !ok {
			titleIndex[b.Title] = i
		}
	}

	return &PopularityModel{
		ranked:     ranked,
		m:          m,
		c:          c,
		books:      tables.Books,
		titleIndex: titleIndex,
	}, nil
}

// TopN returns the n highest-weighted books, or all of them if fewer
// exist. Ordering is stable across invocations.
func (p *PopularityModel) TopN(n int) ([]PopularityEntry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}
	if n > len(p.ranked) {
		n = len(p.ranked)
	}
	out := make([]PopularityEntry, n)
	copy(out, p.ranked[:n])
	return out, nil
}

// BookInfo returns the stored record for the exact title. For duplicate
// titles the first match in load order is returned.
func (p *PopularityModel) BookInfo(title string) (dataset.BookRecord, error) {
	i, ok := p.titleIndex[title]
	if !ok {
		return dataset.BookRecord{}, &NotFoundError{Title: title, Reason: ReasonUnknownTitle}
	}
	return p.books[i], nil
}

// RankedCount returns the number of books in the ranking.
func (p *PopularityModel) RankedCount() int {
	return len(p.ranked)
}

// percentile computes the q-quantile of sorted values with linear
// interpolation between ranks.
func percentile(sorted []float64, q float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	h := q * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
