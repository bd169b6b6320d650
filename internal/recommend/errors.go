// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller-side matching with errors.Is.
var (
	// ErrNotFound indicates a title or query resolved to nothing in the
	// relevant model. Always recoverable; never logged as an error.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates bad caller input, such as a
	// non-positive result count. The caller may retry with corrected input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundReason distinguishes why a title lookup failed. Both cases match
// ErrNotFound, but callers may want to tell a book the dataset has never
// seen apart from one that exists but fell below the model's thresholds.
type NotFoundReason string

const (
	// ReasonUnknownTitle means no book with this title exists in the
	// clean dataset at all.
	ReasonUnknownTitle NotFoundReason = "unknown_title"

	// ReasonBelowThreshold means the book exists but is outside the
	// filtered similarity universe, so it has no neighbors.
	ReasonBelowThreshold NotFoundReason = "below_threshold"
)

// NotFoundError carries the offending title and a reason code.
type NotFoundError struct {
	Title  string
	Reason NotFoundReason
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("book %q not found (%s)", e.Title, e.Reason)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
