// CLAUDE:SUMMARY Catalog entry type, keyword list derivation (split + normalize + dedupe) and lenient weight parsing.
package catalog

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// DefaultKeywordDelimiter separates phrases in the keywords column.
const DefaultKeywordDelimiter = ";"

// DefaultWeight is substituted for missing or unparsable weights.
const DefaultWeight = 1.0

// Entry is one expected principle/article for a case and side.
type Entry struct {
	CaseID             string   `json:"case_id"`
	CaseTitle          string   `json:"case_title"`
	CaseDescription    string   `json:"case_description"`
	Side               string   `json:"side"`
	Principle          string   `json:"principle"`
	Article            string   `json:"article"`
	Weight             float64  `json:"weight"`
	Keywords           string   `json:"keywords"`
	NormalizedKeywords []string `json:"normalized_keywords"`
}

// NewEntry builds an Entry and derives its normalized keywords using the
// default delimiter.
func NewEntry(caseID, side, principle, article string, weight float64, keywords string) Entry {
	e := Entry{
		CaseID:    caseID,
		Side:      side,
		Principle: principle,
		Article:   article,
		Weight:    weight,
		Keywords:  keywords,
	}
	e.NormalizedKeywords = KeywordList(keywords, principle, article)
	return e
}

// SplitKeywords splits raw on delim, trims and normalizes every part and
// drops parts that end up empty.
func SplitKeywords(raw, delim string) []string {
	if delim == "" {
		delim = DefaultKeywordDelimiter
	}
	var out []string
	for _, part := range strings.Split(raw, delim) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n := textnorm.Normalize(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// KeywordList returns the match-time keyword set of an entry: the normalized
// keywords, then the normalized principle, then the normalized article,
// de-duplicated in first-seen order.
func KeywordList(keywords, principle, article string) []string {
	return keywordListDelim(keywords, principle, article, DefaultKeywordDelimiter)
}

func keywordListDelim(keywords, principle, article, delim string) []string {
	all := SplitKeywords(keywords, delim)
	// Principle and article are single phrases even if they contain the delimiter.
	for _, label := range []string{principle, article} {
		if n := textnorm.Normalize(label); n != "" {
			all = append(all, n)
		}
	}

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, kw := range all {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// ParseWeight converts a raw weight cell to a number. Empty, unparsable,
// negative or non-finite values yield DefaultWeight.
func ParseWeight(raw string) float64 {
	w, _ := parseWeight(raw)
	return w
}

// parseWeight reports false when the default had to be substituted.
func parseWeight(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultWeight, false
	}
	// Accept a decimal comma ("1,5") as written in pt-BR spreadsheets.
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	w, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return DefaultWeight, false
	}
	return w, true
}
