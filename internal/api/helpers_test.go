// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

package api

import (
	"net/http/httptest"
	"testing"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"with\nnewline", `with\x0anewline`},
		{"tab\there", `tab\x09here`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateETag_Deterministic(t *testing.T) {
	a := generateETag([]byte("payload"))
	b := generateETag([]byte("payload"))
	c := generateETag([]byte("other"))

	if a != b {
		t.Error("same payload must produce same ETag")
	}
	if a == c {
		t.Error("different payloads should produce different ETags")
	}
}

func TestGetIntParam(t *testing.T) {
	tests := []struct {
		url  string
		def  int
		want int
	}{
		{"/x?limit=7", 10, 7},
		{"/x", 10, 10},
		{"/x?limit=abc", 10, 10},
		{"/x?limit=-3", 10, -3},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := getIntParam(r, "limit", tt.def); got != tt.want {
			t.Errorf("getIntParam(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}
