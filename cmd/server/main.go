// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Command server builds the recommendation engine from the configured CSV
// snapshots and serves the HTTP API.
//
// Startup is deliberately blocking: the engine must be fully built before
// the first request is accepted, because the models are immutable and the
// API carries no "still loading" state.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/bibliographus/internal/api"
	"github.com/tomtom215/bibliographus/internal/cache"
	"github.com/tomtom215/bibliographus/internal/config"
	"github.com/tomtom215/bibliographus/internal/fetch"
	"github.com/tomtom215/bibliographus/internal/logging"
	"github.com/tomtom215/bibliographus/internal/metrics"
	"github.com/tomtom215/bibliographus/internal/recommend"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("books_path", cfg.Data.BooksPath).
		Str("ratings_path", cfg.Data.RatingsPath).
		Int("min_user_ratings", cfg.Recommend.MinUserRatings).
		Int("min_book_ratings", cfg.Recommend.MinBookRatings).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the build too if a shutdown signal arrives early.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	buildStart := time.Now()
	engine, err := recommend.Build(ctx, cfg.Data.BooksPath, cfg.Data.RatingsPath, cfg.Data.UsersPath,
		&cfg.Recommend, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build recommendation engine")
	}
	stats := engine.Stats()
	metrics.RecordEngineBuild(time.Since(buildStart), stats.RankedBooks, stats.UniverseSize)

	covers := cache.NewImageCache(cfg.Cache.Capacity)
	fetcher := fetch.NewCoverFetcher(cfg.Fetch, logging.Logger())

	handler := api.NewHandler(engine, covers, fetcher.Fetch, logging.Logger())
	router := api.NewRouter(handler, api.RouterConfigFromServer(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
	))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}

	logging.Info().Msg("Application stopped gracefully")
}
