// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package api provides HTTP routing using the Chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/bibliographus/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires the handler set to the middleware stack.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for the given handlers and middleware config.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// RouterConfigFromServer derives middleware config from server settings.
func RouterConfigFromServer(corsOrigins []string, rateLimitReqs int, rateLimitWindow time.Duration) *ChiMiddlewareConfig {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = corsOrigins
	cfg.RateLimitRequests = rateLimitReqs
	cfg.RateLimitWindow = rateLimitWindow
	return cfg
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// Health endpoints get a permissive limiter so monitors can poll
	// frequently without tripping the API limit.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Core API endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/popular", router.handler.Popular)
		r.Get("/recommendations", router.handler.Recommendations)
		r.Get("/search", router.handler.Search)
		r.Get("/books", router.handler.Books)
		r.Get("/books/info", router.handler.BookInfo)
		r.Get("/covers", router.handler.Cover)
		r.Get("/stats", router.handler.Stats)
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
