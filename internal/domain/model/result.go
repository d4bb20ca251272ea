package model

import (
	"fmt"
	"strings"
	"time"
)

// SourceClass buckets a result by the registrable domain of its URL.
type SourceClass string

// Sentiment is the lexical polarity assigned to a result.
type Sentiment string

const (
	// SourceReddit marks results hosted on reddit.com.
	SourceReddit SourceClass = "reddit"
	// SourceDevpost marks results hosted on devpost.com.
	SourceDevpost SourceClass = "devpost"
	// SourceOther marks everything else, including results without a URL.
	SourceOther SourceClass = "other"

	// SentimentPositive indicates positive polarity.
	SentimentPositive Sentiment = "positive"
	// SentimentNegative indicates negative polarity.
	SentimentNegative Sentiment = "negative"
	// SentimentNeutral indicates no clear polarity.
	SentimentNeutral Sentiment = "neutral"
)

// Valid returns true if the SourceClass is valid.
func (c SourceClass) Valid() bool {
	return c == SourceReddit || c == SourceDevpost || c == SourceOther
}

// Valid returns true if the Sentiment is valid.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNegative || s == SentimentNeutral
}

// UnmarshalText implements encoding.TextUnmarshaler for Sentiment.
func (s *Sentiment) UnmarshalText(text []byte) error {
	v := Sentiment(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid Sentiment: %q", v)
	}
	*s = v
	return nil
}

// Result is one normalized record pulled out of a provider snapshot.
// Rows are insert only and removed solely via the owning job's cascade.
type Result struct {
	ID          string      `json:"id"              db:"id"`
	JobID       string      `json:"job_id"          db:"job_id"`
	SnapshotID  string      `json:"snapshot_id"     db:"snapshot_id"`
	SourceClass SourceClass `json:"source_class"    db:"source_class"`
	URL         *string     `json:"url,omitempty"   db:"url"`
	Title       *string     `json:"title,omitempty" db:"title"`
	Text        *string     `json:"text,omitempty"  db:"text"`
	Sentiment   Sentiment   `json:"sentiment"       db:"sentiment"`
	Score       *float64    `json:"score,omitempty" db:"score"`
	CreatedAt   time.Time   `json:"created_at"      db:"created_at"`
}

// SentimentSummary is the rolled-up polarity count over a time window.
type SentimentSummary struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of results covered by the summary.
func (s SentimentSummary) Total() int {
	return s.Positive + s.Negative + s.Neutral
}
