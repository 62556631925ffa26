// Package normalize implements the phrase normalization contract shared by
// ingest and lookup: lowercase, trim, collapse internal whitespace, strip
// trailing punctuation, and apply NFC so code-point comparison is stable.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxPhraseLength is the longest phrase the index will ever store. Longer
// ingest input is rejected; longer lookup input is truncated.
const MaxPhraseLength = 128

// Phrase normalizes raw text per the phrase contract. The second return
// value is false when the result is empty after normalization.
func Phrase(raw string) (string, bool) {
	s := norm.NFC.String(raw)
	s = strings.ToLower(s)
	s = collapseWhitespace(s)
	s = strings.TrimRightFunc(s, isTrailingPunct)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// Lookup normalizes a prefix for querying. Unlike Phrase it never rejects
// empty input (the empty prefix is a valid query meaning "global top-K") and
// truncates rather than rejecting over-long input.
func Lookup(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ToLower(s)
	s = collapseWhitespace(s)
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if len([]rune(s)) > MaxPhraseLength {
		r := []rune(s)
		s = string(r[:MaxPhraseLength])
	}
	return s
}

// collapseWhitespace replaces any run of whitespace with a single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteRune(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isTrailingPunct(r rune) bool {
	return unicode.IsPunct(r) && r != '\''
}

// Valid reports whether a normalized phrase satisfies the ingest-time length
// and emptiness invariants.
func Valid(normalized string) bool {
	if normalized == "" {
		return false
	}
	return len([]rune(normalized)) <= MaxPhraseLength
}
