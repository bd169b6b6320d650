// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package models defines the shared API response envelope.
//
// Every JSON endpoint wraps its payload in APIResponse so clients get a
// uniform shape:
//
//	{
//	  "status": "success",
//	  "data": {"book": {...}, "items": [...]},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z", "query_time_ms": 4}
//	}
//
// Error responses carry a structured APIError instead of data:
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "Unknown book title"},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
package models

import "time"

// APIResponse is the envelope for every JSON endpoint.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// QueryTimeMS is the server-side handling time in milliseconds. Cached
// reports Cover responses served from the image cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - NOT_FOUND: Resource doesn't exist
//   - FETCH_ERROR: Cover origin fetch failed
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
