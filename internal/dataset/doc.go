// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package dataset loads and cleans the raw book, rating, and user CSV
// snapshots into immutable in-memory tables.
//
// The loader applies a fixed cleaning policy before any model sees the data:
//
//   - Rating rows with a value of 0 are dropped. A zero is an implicit
//     non-rating in the source data, not an opinion.
//   - Duplicate (user, book) rating pairs are dropped, keeping the first
//     occurrence in file order.
//   - Ratings whose book key has no matching book record are dropped
//     silently; the count is logged, not treated as an error.
//   - The user age column is recognized and discarded on ingestion due to
//     high missingness. It never reaches a model.
//
// Missing files, unreadable files, and missing required columns fail with
// *DataSourceError carrying the file path and offending column so the
// caller can report the problem without re-deriving it.
//
// The returned tables are never mutated after Load returns and are safe
// for concurrent reads.
package dataset
