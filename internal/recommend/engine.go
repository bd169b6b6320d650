// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/bibliographus/internal/dataset"
)

// Engine is the façade over the popularity and collaborative models. It
// exclusively owns both; they are built together from one loader pass and
// never shared mutably.
//
// Construction is the only expensive operation and can take tens of
// seconds on a full snapshot. Build once at process start, hold the
// reference, and read it from as many goroutines as needed.
type Engine struct {
	cfg    *Config
	logger zerolog.Logger

	tables        *dataset.Tables
	popularity    *PopularityModel
	collaborative *CollaborativeModel

	builtAt       time.Time
	buildDuration time.Duration
}

// RecommendationSet is the result of a Recommendations call: the resolved
// book's metadata plus its similarity neighbors.
type RecommendationSet struct {
	Book  dataset.BookRecord `json:"book"`
	Items []Recommendation   `json:"items"`
}

// BuildStats summarizes the state of a built engine.
type BuildStats struct {
	Books         int           `json:"books"`
	Ratings       int           `json:"ratings"`
	Users         int           `json:"users"`
	RankedBooks   int           `json:"ranked_books"`
	UniverseSize  int           `json:"universe_size"`
	BuildDuration time.Duration `json:"build_duration"`
	BuiltAt       time.Time     `json:"built_at"`
}

// Build loads the snapshots and constructs both sub-models. The two
// builds are independent given clean data and run concurrently, joining
// before the engine is returned. Failure is atomic: no partially built
// engine is ever returned.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Build(ctx context.Context, bookSource, ratingSource, userSource string, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger = logger.With().Str("component", "recommend").Logger()
	start := time.Now()

	tables, err := dataset.Load(bookSource, ratingSource, userSource, logger)
	if err != nil {
		return nil, err
	}

	var (
		pop    *PopularityModel
		collab *CollaborativeModel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		var err error
		pop, err = buildPopularity(gctx, tables, cfg.PopularityFloor)
		if err != nil {
			return fmt.Errorf("build popularity model: %w", err)
		}
		logger.Info().
			Int("ranked_books", pop.RankedCount()).
			Dur("elapsed", time.Since(t)).
			Msg("popularity model built")
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		var err error
		collab, err = buildCollaborative(gctx, tables, cfg)
		if err != nil {
			return fmt.Errorf("build collaborative model: %w", err)
		}
		logger.Info().
			Int("universe_size", collab.UniverseSize()).
			Dur("elapsed", time.Since(t)).
			Msg("collaborative model built")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		logger:        logger,
		tables:        tables,
		popularity:    pop,
		collaborative: collab,
		builtAt:       time.Now(),
		buildDuration: time.Since(start),
	}

	logger.Info().
		Int("books", len(tables.Books)).
		Int("ratings", len(tables.Ratings)).
		Dur("elapsed", e.buildDuration).
		Msg("recommendation engine ready")

	return e, nil
}

// PopularBooks returns the n highest-weighted books.
func (e *Engine) PopularBooks(n int) ([]PopularityEntry, error) {
	return e.popularity.TopN(n)
}

// Recommendations resolves a title and returns its metadata together with
// the n most similar books. Fails with a NotFoundError (matching
// ErrNotFound) when the title resolves in neither model; the error's
// reason code distinguishes unknown titles from known-but-filtered ones.
func (e *Engine) Recommendations(title string, n int) (*RecommendationSet, error) {
	items, err := e.collaborative.Recommend(title, n)
	if err != nil {
		return nil, err
	}

	// Resolve metadata through the similarity row's identifier so that
	// duplicate titles describe the edition the neighbors were computed
	// from.
	if isbn, ok := e.collaborative.ISBNForTitle(title); ok {
		if book, found := e.tables.BookByISBN(isbn); found {
			return &RecommendationSet{Book: book, Items: items}, nil
		}
	}

	book, err := e.popularity.BookInfo(title)
	if err != nil {
		return nil, err
	}

	return &RecommendationSet{Book: book, Items: items}, nil
}

// SearchBooks returns up to limit titles matching the query.
func (e *Engine) SearchBooks(query string, limit int) []string {
	return e.collaborative.SearchBooks(query, limit)
}

// BookInfo returns the stored record for the exact title.
func (e *Engine) BookInfo(title string) (dataset.BookRecord, error) {
	return e.popularity.BookInfo(title)
}

// AvailableBooks returns the similarity universe as a restartable title
// sequence.
func (e *Engine) AvailableBooks() iter.Seq[string] {
	return e.collaborative.AvailableBooks()
}

// Config returns a copy of the build configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Stats returns summary counts for the built engine.
func (e *Engine) Stats() BuildStats {
	return BuildStats{
		Books:         len(e.tables.Books),
		Ratings:       len(e.tables.Ratings),
		Users:         len(e.tables.Users),
		RankedBooks:   e.popularity.RankedCount(),
		UniverseSize:  e.collaborative.UniverseSize(),
		BuildDuration: e.buildDuration,
		BuiltAt:       e.builtAt,
	}
}
