package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

func TestAnalyzer_DefaultMargin(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{})

	tests := []struct {
		name  string
		text  string
		label model.Sentiment
		score float64
	}{
		{
			name:  "empty text is neutral",
			text:  "",
			label: model.SentimentNeutral,
			score: 0,
		},
		{
			name:  "whitespace only is neutral",
			text:  "   \t\n",
			label: model.SentimentNeutral,
			score: 0,
		},
		{
			name:  "no keyword hits is neutral",
			text:  "the platform hosted a hackathon last month",
			label: model.SentimentNeutral,
			score: 0,
		},
		{
			name:  "positive keyword wins",
			text:  "Great experience, would recommend",
			label: model.SentimentPositive,
			score: 1,
		},
		{
			name:  "negative keyword wins",
			text:  "total scam, avoid",
			label: model.SentimentNegative,
			score: -1,
		},
		{
			name:  "exact tie stays neutral",
			text:  "great platform but the judging was a scam",
			label: model.SentimentNeutral,
			score: 0,
		},
		{
			name:  "mixed text leans negative",
			text:  "good idea, but the upload bug and the scoring problem ruined it",
			label: model.SentimentNegative,
			score: -1.0 / 3.0,
		},
		{
			name:  "case insensitive",
			text:  "AWFUL support",
			label: model.SentimentNegative,
			score: -1,
		},
		{
			name:  "punctuation does not block matches",
			text:  "excellent! (really excellent)",
			label: model.SentimentPositive,
			score: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.Analyze(tt.text)
			assert.Equal(t, tt.label, got.Label)
			assert.InDelta(t, tt.score, got.Score, 1e-9)
		})
	}
}

func TestAnalyzer_WiderMargin(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{Margin: 2})

	// One net negative hit is not enough at margin 2.
	got := analyzer.Analyze("the rules were confusing")
	assert.Equal(t, model.SentimentNeutral, got.Label)
	assert.InDelta(t, -1.0, got.Score, 1e-9)

	got = analyzer.Analyze("confusing rules and a broken, slow portal")
	assert.Equal(t, model.SentimentNegative, got.Label)
}

func TestAnalyzer_SubwordDoesNotMatch(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{})

	// "winners" must not count as "win".
	got := analyzer.Analyze("the winners were announced")
	assert.Equal(t, model.SentimentNeutral, got.Label)
}

func TestNewAnalyzer_ClampsMargin(t *testing.T) {
	analyzer := NewAnalyzer(AnalyzerOptions{Margin: -3})
	got := analyzer.Analyze("good")
	assert.Equal(t, model.SentimentPositive, got.Label)
}
