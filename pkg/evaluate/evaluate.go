// CLAUDE:SUMMARY Scores a written argument against the catalog entries of a case and side: matched, recommended and counterargument partitions.
package evaluate

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
	"github.com/hazyhaar/lexcheck/pkg/match"
	"github.com/hazyhaar/lexcheck/pkg/textnorm"
)

// sampleSize is the number of keywords echoed back for a matched entry.
const sampleSize = 2

// MatchedEntry is a catalog entry of the chosen side found in the text.
type MatchedEntry struct {
	Principle            string    `json:"principle"`
	Article              string    `json:"article"`
	Weight               float64   `json:"weight"`
	MatchedKeywordSample string    `json:"matched_keyword_sample"`
	Hit                  match.Hit `json:"hit"`
}

// Suggestion is a catalog entry listed with its full keyword set: an entry
// the user missed, or one the opposing side could raise.
type Suggestion struct {
	Principle string   `json:"principle"`
	Article   string   `json:"article"`
	Weight    float64  `json:"weight"`
	Side      string   `json:"side,omitempty"`
	Keywords  []string `json:"keywords"`
}

// Result is the outcome of one evaluation. It is a value: nothing refers
// back to it after Evaluate returns.
type Result struct {
	CaseID           string         `json:"case_id"`
	Side             string         `json:"side"`
	Threshold        float64        `json:"threshold"`
	Score            float64        `json:"score"`
	MaxScore         float64        `json:"max_score"`
	Matched          []MatchedEntry `json:"matched"`
	Recommended      []Suggestion   `json:"recommended"`
	Counterarguments []Suggestion   `json:"counterarguments"`
}

// Coverage is Score over MaxScore, or 0 when the side has no weight at all.
func (r Result) Coverage() float64 {
	if r.MaxScore == 0 {
		return 0
	}
	return r.Score / r.MaxScore
}

type options struct {
	threshold float64
}

// Option customizes an evaluation.
type Option func(*options)

// WithThreshold sets the fuzzy similarity cutoff. Values outside [0, 1] are
// ignored and the default applies.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
			return
		}
		o.threshold = threshold
	}
}

// Evaluate scores userText for the given case and side against entries.
//
// Entries of the case are those whose case id equals caseID once both are
// stringified and normalized (so the integer 2 selects "2", while "01" and 1
// stay distinct). Case, accents and punctuation in case ids are ignored:
// "Case-1" and "case 1" select the same entries.
//
// Entries whose normalized side equals side are matched against the text;
// their weights sum into Score when matched, and they are listed in
// Recommended otherwise. Every other entry of the case is listed
// in Counterarguments regardless of the text.
func Evaluate(caseID any, side, userText string, entries []catalog.Entry, opts ...Option) Result {
	o := options{threshold: match.DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	wantCase := textnorm.Normalize(cast.ToString(caseID))
	wantSide := textnorm.Normalize(side)

	res := Result{
		CaseID:           cast.ToString(caseID),
		Side:             side,
		Threshold:        o.threshold,
		Matched:          []MatchedEntry{},
		Recommended:      []Suggestion{},
		Counterarguments: []Suggestion{},
	}

	var sideRows, otherRows []int
	for i := range entries {
		if textnorm.Normalize(entries[i].CaseID) != wantCase {
			continue
		}
		if textnorm.Normalize(entries[i].Side) == wantSide {
			sideRows = append(sideRows, i)
		} else {
			otherRows = append(otherRows, i)
		}
	}

	// One match decision per side row, local to this call.
	text := match.NewText(userText)
	hits := make([]*match.Hit, len(sideRows))
	for j, i := range sideRows {
		if hit, ok := text.Find(entries[i].NormalizedKeywords, o.threshold); ok {
			hits[j] = &hit
		}
	}

	for j, i := range sideRows {
		e := entries[i]
		res.MaxScore += e.Weight
		if hits[j] == nil {
			res.Recommended = append(res.Recommended, suggest(e))
			continue
		}
		res.Score += e.Weight
		res.Matched = append(res.Matched, MatchedEntry{
			Principle:            e.Principle,
			Article:              e.Article,
			Weight:               e.Weight,
			MatchedKeywordSample: sample(e.NormalizedKeywords),
			Hit:                  *hits[j],
		})
	}

	for _, i := range otherRows {
		s := suggest(entries[i])
		s.Side = entries[i].Side
		res.Counterarguments = append(res.Counterarguments, s)
	}
	return res
}

func suggest(e catalog.Entry) Suggestion {
	kws := make([]string, len(e.NormalizedKeywords))
	copy(kws, e.NormalizedKeywords)
	return Suggestion{
		Principle: e.Principle,
		Article:   e.Article,
		Weight:    e.Weight,
		Keywords:  kws,
	}
}

func sample(keywords []string) string {
	if len(keywords) > sampleSize {
		keywords = keywords[:sampleSize]
	}
	return strings.Join(keywords, ";")
}
