package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

func rawRecords(t *testing.T, records ...map[string]any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		b, err := json.Marshal(rec)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestNormalizer_CandidateFieldOrder(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	records := rawRecords(t,
		map[string]any{
			"snippet": "snippet body",
			"content": "content body",
			"title":   "Primary title",
			"link":    "https://example.com/post",
		},
	)

	results := n.Normalize("snap-1", records)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "snap-1", res.SnapshotID)
	require.NotNil(t, res.Text)
	assert.Equal(t, "snippet body", *res.Text, "snippet outranks content")
	require.NotNil(t, res.Title)
	assert.Equal(t, "Primary title", *res.Title)
	require.NotNil(t, res.URL)
	assert.Equal(t, "https://example.com/post", *res.URL)
}

func TestNormalizer_TitleFallsBackToQuery(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	records := rawRecords(t,
		map[string]any{
			"q":           "Devpost review",
			"description": "some description",
		},
	)

	results := n.Normalize("snap-1", records)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Title)
	assert.Equal(t, "Devpost review", *results[0].Title)
}

func TestNormalizer_SkipsEmptyAndMalformed(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	records := rawRecords(t,
		map[string]any{"url": "https://example.com"},             // no text, no title
		map[string]any{"text": "   ", "title": ""},               // whitespace only
		map[string]any{"title": "kept", "text": "a useful post"}, // survives
	)
	records = append(records, json.RawMessage(`{"broken`))

	results := n.Normalize("snap-1", records)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", *results[0].Title)
}

func TestNormalizer_SentimentAndScore(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	records := rawRecords(t,
		map[string]any{"title": "Scam alert", "text": "this hackathon is a scam"},
		map[string]any{"title": "Loved it", "text": "great prizes, great mentors"},
		map[string]any{"title": "Announcement", "text": "submissions open friday"},
	)

	results := n.Normalize("snap-1", records)
	require.Len(t, results, 3)

	assert.Equal(t, model.SentimentNegative, results[0].Sentiment)
	require.NotNil(t, results[0].Score)
	assert.Negative(t, *results[0].Score)

	assert.Equal(t, model.SentimentPositive, results[1].Sentiment)
	require.NotNil(t, results[1].Score)
	assert.Positive(t, *results[1].Score)

	assert.Equal(t, model.SentimentNeutral, results[2].Sentiment)
	require.NotNil(t, results[2].Score)
	assert.Zero(t, *results[2].Score)
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want model.SourceClass
	}{
		{"reddit", "https://www.reddit.com/r/hackathons/comments/abc", model.SourceReddit},
		{"old reddit subdomain", "https://old.reddit.com/r/webdev", model.SourceReddit},
		{"devpost", "https://devpost.com/software/widget", model.SourceDevpost},
		{"devpost subdomain", "https://help.devpost.com/articles/1", model.SourceDevpost},
		{"other", "https://news.ycombinator.com/item?id=1", model.SourceOther},
		{"lookalike is other", "https://devpost.com.evil.example/login", model.SourceOther},
		{"empty", "", model.SourceOther},
		{"no host", "not a url", model.SourceOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySource(tt.url))
		})
	}
}
