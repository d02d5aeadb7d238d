// CLAUDE:SUMMARY Text canonicalization (case fold, accent strip, punctuation to space, whitespace collapse) and tokenization shared by ids, sides and keywords.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparable form of text: Unicode case-folded, accents
// removed, every rune outside [a-z0-9] turned into a separator, separators
// collapsed to single spaces and trimmed.
//
// Normalize is total and idempotent. Empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Casers and transform chains carry state, so each call builds its own.
	folded := cases.Fold().String(text)
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(stripAccents, folded)
	if err != nil {
		stripped = folded
	}

	var b strings.Builder
	b.Grow(len(stripped))
	gap := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

// Tokenize normalizes text and splits it into its non-empty tokens.
func Tokenize(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}

// Equal reports whether a and b normalize to the same string.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
