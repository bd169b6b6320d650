// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package recommend

import "fmt"

// Config contains the model-build thresholds. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// MinUserRatings is the minimum number of ratings a user must have to
	// count as active and contribute a column to the similarity matrix.
	MinUserRatings int `json:"min_user_ratings" koanf:"min_user_ratings"`

	// MinBookRatings is the minimum number of ratings, among active
	// users, a book must have to enter the similarity universe.
	MinBookRatings int `json:"min_book_ratings" koanf:"min_book_ratings"`

	// PopularityFloor excludes books with fewer votes from the popularity
	// ranking. Zero disables the floor. The full Book-Crossing snapshot
	// is typically run with 250.
	PopularityFloor int `json:"popularity_floor" koanf:"popularity_floor"`
}

// DefaultConfig returns the stated default thresholds.
func DefaultConfig() *Config {
	return &Config{
		MinUserRatings:  200,
		MinBookRatings:  50,
		PopularityFloor: 0,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.MinUserRatings < 1 {
		return fmt.Errorf("min_user_ratings must be >= 1, got %d", c.MinUserRatings)
	}
	if c.MinBookRatings < 1 {
		return fmt.Errorf("min_book_ratings must be >= 1, got %d", c.MinBookRatings)
	}
	if c.PopularityFloor < 0 {
		return fmt.Errorf("popularity_floor must be >= 0, got %d", c.PopularityFloor)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
