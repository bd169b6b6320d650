// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/bibliographus/internal/cache"
	"github.com/tomtom215/bibliographus/internal/models"
	"github.com/tomtom215/bibliographus/internal/recommend"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// buildTestEngine builds a small engine with thresholds the fixture can
// clear: two active readers rating three books.
func buildTestEngine(t *testing.T) *recommend.Engine {
	t.Helper()
	dir := t.TempDir()

	books := writeFixture(t, dir, "books.csv",
		"ISBN,Book-Title,Book-Author,Publisher,Image-URL-M\n"+
			"b1,The Great Gatsby,F. Scott Fitzgerald,Scribner,http://img/b1.jpg\n"+
			"b2,Nineteen Eighty-Four,George Orwell,Secker,http://img/b2.jpg\n"+
			"b3,Brave New World,Aldous Huxley,Chatto,\n")

	ratings := writeFixture(t, dir, "ratings.csv",
		"User-ID,ISBN,Book-Rating\n"+
			"1,b1,8\n1,b2,7\n1,b3,2\n"+
			"2,b1,9\n2,b2,8\n2,b3,1\n")

	cfg := &recommend.Config{MinUserRatings: 2, MinBookRatings: 2}
	e, err := recommend.Build(context.Background(), books, ratings, "", cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

// stubFetch is a cache.FetchFunc that serves canned blobs.
func stubFetch(blob cache.Blob, err error) cache.FetchFunc {
	return func(context.Context, string) (cache.Blob, error) {
		return blob, err
	}
}

func newTestHandler(t *testing.T, fetch cache.FetchFunc) *Handler {
	t.Helper()
	if fetch == nil {
		fetch = stubFetch(cache.Blob{Data: []byte("img"), ContentType: "image/jpeg"}, nil)
	}
	return NewHandler(buildTestEngine(t), cache.NewImageCache(8), fetch, zerolog.Nop())
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return &resp
}

func TestHandler_Popular(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Popular(rec, httptest.NewRequest(http.MethodGet, "/api/v1/popular?limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" {
		t.Errorf("Status = %q", resp.Status)
	}
	data := resp.Data.(map[string]interface{})
	if data["total"].(float64) != 2 {
		t.Errorf("total = %v", data["total"])
	}
}

func TestHandler_Popular_InvalidLimit(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Popular(rec, httptest.NewRequest(http.MethodGet, "/api/v1/popular?limit=9999", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Error = %+v", resp.Error)
	}
}

func TestHandler_Recommendations(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Recommendations(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/recommendations?title=The+Great+Gatsby&limit=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	book := data["book"].(map[string]interface{})
	if book["isbn"] != "b1" {
		t.Errorf("book = %v", book)
	}
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	first := items[0].(map[string]interface{})
	if first["title"] != "Nineteen Eighty-Four" {
		t.Errorf("first item = %v", first)
	}
}

func TestHandler_Recommendations_UnknownTitle(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Recommendations(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/recommendations?title=No+Such+Book", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("Error = %+v", resp.Error)
	}
	if resp.Error.Details["reason"] != "unknown_title" {
		t.Errorf("reason = %v", resp.Error.Details["reason"])
	}
}

func TestHandler_Recommendations_MissingTitle(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Recommendations(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandler_Search(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=gatsby", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	results := data["results"].([]interface{})
	if len(results) != 1 || results[0] != "The Great Gatsby" {
		t.Errorf("results = %v", results)
	}
}

func TestHandler_Search_EmptyQuery(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["total"].(float64) != 0 {
		t.Errorf("total = %v", data["total"])
	}
}

func TestHandler_Books(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Books(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["total"].(float64) != 3 {
		t.Errorf("total = %v", data["total"])
	}
}

func TestHandler_BookInfo_NotFound(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.BookInfo(rec, httptest.NewRequest(http.MethodGet, "/api/v1/books/info?title=Missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandler_Cover_HitAndMiss(t *testing.T) {
	h := newTestHandler(t, nil)

	first := httptest.NewRecorder()
	h.Cover(first, httptest.NewRequest(http.MethodGet, "/api/v1/covers?title=The+Great+Gatsby", nil))

	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}
	if got := first.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if first.Body.String() != "img" {
		t.Errorf("body = %q", first.Body.String())
	}

	second := httptest.NewRecorder()
	h.Cover(second, httptest.NewRequest(http.MethodGet, "/api/v1/covers?title=The+Great+Gatsby", nil))
	if got := second.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}
}

func TestHandler_Cover_NoImageURL(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Cover(rec, httptest.NewRequest(http.MethodGet, "/api/v1/covers?title=Brave+New+World", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandler_Cover_FetchError(t *testing.T) {
	failing := stubFetch(cache.Blob{}, &cache.FetchError{URL: "http://img/b1.jpg", Err: errors.New("origin down")})
	h := newTestHandler(t, failing)

	rec := httptest.NewRecorder()
	h.Cover(rec, httptest.NewRequest(http.MethodGet, "/api/v1/covers?title=The+Great+Gatsby", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "FETCH_ERROR" {
		t.Errorf("Error = %+v", resp.Error)
	}
}

func TestHandler_Health(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["status"] != "healthy" {
		t.Errorf("status = %v", data["status"])
	}
	engine := data["engine"].(map[string]interface{})
	if engine["universe_size"].(float64) != 3 {
		t.Errorf("universe_size = %v", engine["universe_size"])
	}
}

func TestHandler_HealthLiveAndReady(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}
}
