// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bibliographus/internal/cache"
	"github.com/tomtom215/bibliographus/internal/metrics"
	"github.com/tomtom215/bibliographus/internal/models"
	"github.com/tomtom215/bibliographus/internal/recommend"
)

// Handler serves the recommendation and cover endpoints. The engine is
// immutable after build, so handlers read it without synchronization.
type Handler struct {
	engine *recommend.Engine
	covers *cache.ImageCache
	fetch  cache.FetchFunc
	logger zerolog.Logger
	start  time.Time
}

// NewHandler creates the API handler set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine *recommend.Engine, covers *cache.ImageCache, fetch cache.FetchFunc, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		covers: covers,
		fetch:  fetch,
		logger: logger.With().Str("component", "api").Logger(),
		start:  time.Now(),
	}
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady reports whether the engine is built and serving.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Recommendation engine not built", nil)
		return
	}
	respondSuccess(w, map[string]string{"status": "ready"}, time.Now())
}

// Health reports liveness, uptime, and engine summary counts.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	stats := h.engine.Stats()

	respondSuccess(w, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.start).Seconds()),
		"engine": map[string]interface{}{
			"books":          stats.Books,
			"ratings":        stats.Ratings,
			"ranked_books":   stats.RankedBooks,
			"universe_size":  stats.UniverseSize,
			"built_at":       stats.BuiltAt,
			"build_duration": stats.BuildDuration.String(),
		},
	}, start)
}

// Stats returns the engine build statistics.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, h.engine.Stats(), time.Now())
}

// popularRequest bounds the popular-books query parameters.
type popularRequest struct {
	Limit int `validate:"min=1,max=100"`
}

// Popular returns the highest-weighted books.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := popularRequest{Limit: getIntParam(r, "limit", 50)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	entries, err := h.engine.PopularBooks(req.Limit)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"total":   len(entries),
		"results": entries,
	}, start)
}

// recommendRequest bounds the recommendation query parameters.
type recommendRequest struct {
	Title string `validate:"required"`
	Limit int    `validate:"min=1,max=50"`
}

// Recommendations returns books similar to the given title.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := recommendRequest{
		Title: strings.TrimSpace(r.URL.Query().Get("title")),
		Limit: getIntParam(r, "limit", 5),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	set, err := h.engine.Recommendations(req.Title, req.Limit)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	respondSuccess(w, set, start)
}

// searchRequest bounds the title search query parameters.
type searchRequest struct {
	Query string `validate:"max=256"`
	Limit int    `validate:"min=1,max=100"`
}

// Search returns titles matching the query substring.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := searchRequest{
		Query: r.URL.Query().Get("q"),
		Limit: getIntParam(r, "limit", 20),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	results := h.engine.SearchBooks(req.Query, req.Limit)
	respondSuccess(w, map[string]interface{}{
		"total":   len(results),
		"results": results,
	}, start)
}

// Books returns every title available for recommendations, for client
// autocomplete.
func (h *Handler) Books(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()

	titles := make([]string, 0, h.engine.Stats().UniverseSize)
	for title := range h.engine.AvailableBooks() {
		titles = append(titles, title)
	}

	respondSuccess(w, map[string]interface{}{
		"total":   len(titles),
		"results": titles,
	}, start)
}

// BookInfo returns the stored record for an exact title.
func (h *Handler) BookInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title is required", nil)
		return
	}

	book, err := h.engine.BookInfo(title)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	respondSuccess(w, book, start)
}

// Cover proxies a book's cover image through the bounded cache. Responses
// carry an X-Cache header so clients and tests can observe hit/miss.
func (h *Handler) Cover(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title is required", nil)
		return
	}

	book, err := h.engine.BookInfo(title)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	if book.ImageURL == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No cover image for this book", nil)
		return
	}

	fetched := false
	blob, err := h.covers.GetOrFetch(r.Context(), book.ImageURL, func(ctx context.Context, url string) (cache.Blob, error) {
		fetched = true
		return h.fetch(ctx, url)
	})
	metrics.RecordCoverLookup(!fetched, h.covers.Len())
	if err != nil {
		metrics.CoverFetchFailures.Inc()
		h.logger.Warn().Str("title", sanitizeLogValue(title)).Err(err).Msg("cover fetch failed")
		respondError(w, http.StatusBadGateway, "FETCH_ERROR", "Failed to fetch cover image", err)
		return
	}

	if fetched {
		w.Header().Set("X-Cache", "miss")
	} else {
		w.Header().Set("X-Cache", "hit")
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Error().Err(err).Msg("failed to write cover response")
	}
}

// respondEngineError maps engine errors to API error responses.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	var nfe *recommend.NotFoundError
	switch {
	case errors.As(err, &nfe):
		respondJSON(w, http.StatusNotFound, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    "NOT_FOUND",
				Message: nfe.Error(),
				Details: map[string]interface{}{
					"title":  nfe.Title,
					"reason": string(nfe.Reason),
				},
			},
		})
	case errors.Is(err, recommend.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, recommend.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected engine failure", err)
	}
}
