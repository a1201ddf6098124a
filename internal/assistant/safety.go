package assistant

import (
	"log/slog"
	"strings"
)

var bannedTerms = []string{"kill", "murder", "harm", "die", "bomb", "weapon", "stab", "suicide"}

// BannedTerms returns a copy of the terms that make a query unsafe.
func BannedTerms() []string {
	out := make([]string, len(bannedTerms))
	copy(out, bannedTerms)
	return out
}

// IsSafe reports whether query is free of banned terms. Terms match as plain
// substrings of the lower-cased query, so "bomb pop" and "diet" are both
// rejected.
func IsSafe(query string) bool {
	if term, found := containsAny(strings.ToLower(query), bannedTerms); found {
		slog.Warn("Unsafe query detected", "term", term)
		return false
	}
	return true
}
