// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package fetch retrieves cover images from their origin servers.
//
// The fetcher wraps a plain HTTP GET with the protections an untrusted,
// occasionally flaky origin needs: a request timeout, a client-side rate
// limit, a response size cap, and a circuit breaker so a dead origin is
// failed fast instead of hammered.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/bibliographus/internal/cache"
)

// Defaults applied when the corresponding Config field is zero.
const (
	defaultTimeout           = 10 * time.Second
	defaultMaxBodyBytes      = 5 << 20 // 5 MiB, covers are small JPEGs
	defaultRequestsPerSecond = 10
	defaultBurst             = 5
)

// ErrNotImage is returned when the origin responds with a non-image
// content type. HTML error pages served with status 200 are the common
// case.
var ErrNotImage = errors.New("response is not an image")

// ErrTooLarge is returned when the response body exceeds the configured
// size cap.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Config controls the cover fetcher.
type Config struct {
	// Timeout bounds each origin request end to end.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// MaxBodyBytes caps the accepted response body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes" json:"max_body_bytes"`

	// RequestsPerSecond and Burst shape outbound traffic to the origin.
	RequestsPerSecond float64 `koanf:"requests_per_second" json:"requests_per_second"`
	Burst             int     `koanf:"burst" json:"burst"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	return c
}

// CoverFetcher downloads cover images. Safe for concurrent use; its
// Fetch method satisfies cache.FetchFunc.
type CoverFetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	cb           *gobreaker.CircuitBreaker[cache.Blob]
	maxBodyBytes int64
	logger       zerolog.Logger
}

var _ cache.FetchFunc = (*CoverFetcher)(nil).Fetch

// NewCoverFetcher creates a fetcher with the given limits. The circuit
// breaker opens after a 60% failure rate over at least 10 requests and
// retries the origin after 30 seconds.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCoverFetcher(cfg Config, logger zerolog.Logger) *CoverFetcher {
	cfg = cfg.withDefaults()
	logger = logger.With().Str("component", "fetch").Logger()

	cb := gobreaker.NewCircuitBreaker[cache.Blob](gobreaker.Settings{
		Name:        "cover-origin",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &CoverFetcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:           cb,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger,
	}
}

// Fetch downloads one cover image. Errors are wrapped in a
// *cache.FetchError so callers can recover the URL and the cause.
func (f *CoverFetcher) Fetch(ctx context.Context, url string) (cache.Blob, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return cache.Blob{}, &cache.FetchError{URL: url, Err: err}
	}

	blob, err := f.cb.Execute(func() (cache.Blob, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.logger.Warn().Str("url", url).Err(err).Msg("cover fetch rejected by circuit breaker")
		}
		return cache.Blob{}, &cache.FetchError{URL: url, Err: err}
	}
	return blob, nil
}

func (f *CoverFetcher) get(ctx context.Context, url string) (cache.Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return cache.Blob{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return cache.Blob{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return cache.Blob{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return cache.Blob{}, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}

	// Read one byte past the cap to distinguish at-limit from over-limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return cache.Blob{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return cache.Blob{}, fmt.Errorf("%w: over %d bytes", ErrTooLarge, f.maxBodyBytes)
	}

	return cache.Blob{Data: body, ContentType: contentType}, nil
}
