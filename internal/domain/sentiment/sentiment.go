// Package sentiment tags free text with a coarse positive/negative/neutral
// label using fixed keyword sets. It is deterministic: the same text always
// yields the same label and score.
package sentiment

import (
	"strings"
	"unicode"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

var positiveWords = map[string]struct{}{
	"good":      {},
	"great":     {},
	"love":      {},
	"helpful":   {},
	"useful":    {},
	"amazing":   {},
	"excellent": {},
	"positive":  {},
	"recommend": {},
	"win":       {},
	"best":      {},
}

var negativeWords = map[string]struct{}{
	"bad":       {},
	"hate":      {},
	"awful":     {},
	"worst":     {},
	"bug":       {},
	"spam":      {},
	"scam":      {},
	"negative":  {},
	"problem":   {},
	"issue":     {},
	"slow":      {},
	"confusing": {},
}

// Analyzer scores text against the keyword sets. Margin controls how far the
// positive and negative counts must diverge before the label flips away from
// neutral; the threshold is symmetric in both directions.
type Analyzer struct {
	margin int
}

// AnalyzerOptions configure an Analyzer.
type AnalyzerOptions struct {
	// Margin is the minimum count difference required for a non-neutral
	// label. Values below 1 fall back to 1.
	Margin int
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	margin := opts.Margin
	if margin < 1 {
		margin = 1
	}
	return &Analyzer{margin: margin}
}

// Analysis is the outcome of scoring a piece of text.
type Analysis struct {
	Label model.Sentiment
	// Score is (pos - neg) / max(1, pos + neg), in [-1, 1].
	Score float64
}

// Analyze tokenizes text, counts keyword hits, and applies the margin rule.
// Empty text is neutral with a zero score.
func (a *Analyzer) Analyze(text string) Analysis {
	if strings.TrimSpace(text) == "" {
		return Analysis{Label: model.SentimentNeutral}
	}

	var pos, neg int
	for _, tok := range tokenize(text) {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	total := pos + neg
	if total < 1 {
		total = 1
	}
	analysis := Analysis{
		Label: model.SentimentNeutral,
		Score: float64(pos-neg) / float64(total),
	}

	switch {
	case pos-neg >= a.margin:
		analysis.Label = model.SentimentPositive
	case neg-pos >= a.margin:
		analysis.Label = model.SentimentNegative
	}
	return analysis
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
