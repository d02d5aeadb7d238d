// CLAUDE:SUMMARY Keyword presence test over free text: exact substring, fuzzy single-token and sliding-window phrase similarity (Ratcliff/Obershelp).
package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// DefaultThreshold is the similarity cutoff used when none is given.
const DefaultThreshold = 0.80

// Method names how a keyword was found in a text.
type Method string

const (
	MethodExact  Method = "exact"
	MethodToken  Method = "token"
	MethodPhrase Method = "phrase"
)

// Hit describes the first keyword found in a text.
type Hit struct {
	Keyword    string  `json:"keyword"`
	Method     Method  `json:"method"`
	Span       string  `json:"span"`
	Similarity float64 `json:"similarity"`
}

// Text is a user text prepared once for repeated keyword tests.
type Text struct {
	normalized string
	tokens     []string
	tokenRunes [][]string
}

// NewText normalizes and tokenizes userText.
func NewText(userText string) *Text {
	t := &Text{normalized: textnorm.Normalize(userText)}
	if t.normalized != "" {
		t.tokens = strings.Split(t.normalized, " ")
	}
	t.tokenRunes = make([][]string, len(t.tokens))
	for i, tok := range t.tokens {
		t.tokenRunes[i] = splitRunes(tok)
	}
	return t
}

// Normalized returns the normalized form of the text.
func (t *Text) Normalized() string { return t.normalized }

// Tokens returns the tokens of the normalized text.
func (t *Text) Tokens() []string { return t.tokens }

// Matches reports whether any keyword is present in the text.
func (t *Text) Matches(keywords []string, threshold float64) bool {
	_, ok := t.Find(keywords, threshold)
	return ok
}

// Find returns the first keyword present in the text, trying for each
// keyword in order: exact containment, then fuzzy comparison against each
// single token (so "cf196" finds "cf 196"), then, for multi-word keywords,
// fuzzy comparison against every window of as many consecutive tokens.
func (t *Text) Find(keywords []string, threshold float64) (Hit, bool) {
	if t.normalized == "" {
		return Hit{}, false
	}
	for _, raw := range keywords {
		kw := textnorm.Normalize(raw)
		if kw == "" {
			continue
		}
		if strings.Contains(t.normalized, kw) {
			return Hit{Keyword: kw, Method: MethodExact, Span: kw, Similarity: 1}, true
		}

		m := difflib.NewMatcher(nil, splitRunes(kw))
		for i, tok := range t.tokenRunes {
			m.SetSeq1(tok)
			if r, ok := closeEnough(m, threshold); ok {
				return Hit{Keyword: kw, Method: MethodToken, Span: t.tokens[i], Similarity: r}, true
			}
		}

		kwTokens := strings.Count(kw, " ") + 1
		if kwTokens == 1 {
			continue
		}
		for i := 0; i+kwTokens <= len(t.tokens); i++ {
			window := strings.Join(t.tokens[i:i+kwTokens], " ")
			m.SetSeq1(splitRunes(window))
			if r, ok := closeEnough(m, threshold); ok {
				return Hit{Keyword: kw, Method: MethodPhrase, Span: window, Similarity: r}, true
			}
		}
	}
	return Hit{}, false
}

// Matches reports whether any of keywords is present in userText, exactly or
// with a similarity of at least threshold.
func Matches(userText string, keywords []string, threshold float64) bool {
	return NewText(userText).Matches(keywords, threshold)
}

// FirstMatch is Matches reporting which keyword hit and how.
func FirstMatch(userText string, keywords []string, threshold float64) (Hit, bool) {
	return NewText(userText).Find(keywords, threshold)
}

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]:
// twice the number of matching runes over the total rune count. Two empty
// strings have ratio 0.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

// closeEnough applies the cheap upper bounds before the full ratio.
func closeEnough(m *difflib.SequenceMatcher, threshold float64) (float64, bool) {
	if m.RealQuickRatio() < threshold || m.QuickRatio() < threshold {
		return 0, false
	}
	r := m.Ratio()
	return r, r >= threshold
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
