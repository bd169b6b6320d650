// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package recommend implements the book recommendation engine.
//
// The engine composes two independent models built from one dataset pass:
//
//   - A popularity model ranking every rated book by a Bayesian-damped
//     weighted rating that blends the book's own mean with the global mean,
//     weighted by vote count.
//   - A collaborative model holding a book x user rating matrix restricted
//     to active users and popular books, with a precomputed symmetric
//     cosine-similarity matrix for item-to-item lookups.
//
// Build is the only expensive operation: it loads the snapshots once and
// constructs both sub-models concurrently. Everything the engine returns
// afterwards reads immutable state, so an *Engine is safe for concurrent
// use by any number of callers without locking.
//
// There are no incremental updates. A fresh snapshot means a fresh Build.
package recommend
