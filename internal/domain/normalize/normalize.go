// Package normalize turns raw scraped records into Result rows: it extracts
// text/title/url from a prioritized list of candidate fields, classifies the
// source domain, and tags each record with a sentiment label.
package normalize

import (
	"encoding/json"
	"net/url"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/domain/sentiment"
)

// Candidate field lists, first non-empty wins. Different SERP layouts put the
// body under different keys, so each list covers the shapes seen in practice.
var (
	textFields  = []string{"text", "snippet", "description", "body", "content"}
	titleFields = []string{"title", "headline", "page_title", "post_title", "q"}
	urlFields   = []string{"url", "link", "permalink"}
)

type fieldExtractor struct {
	exprs []string
}

func mustExtractor(fields []string) fieldExtractor {
	for _, f := range fields {
		if _, err := jmespath.Compile(f); err != nil {
			panic(err)
		}
	}
	return fieldExtractor{exprs: fields}
}

// pick evaluates each candidate expression against the record and returns the
// first non-empty string result.
func (e fieldExtractor) pick(record any) string {
	for _, expr := range e.exprs {
		val, err := jmespath.Search(expr, record)
		if err != nil {
			continue
		}
		if s, ok := val.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

var (
	textExtractor  = mustExtractor(textFields)
	titleExtractor = mustExtractor(titleFields)
	urlExtractor   = mustExtractor(urlFields)
)

// Normalizer converts raw provider records into Result rows.
type Normalizer struct {
	analyzer *sentiment.Analyzer
}

// NormalizerOptions configure a Normalizer.
type NormalizerOptions struct {
	Analyzer *sentiment.Analyzer
}

// NewNormalizer constructs a Normalizer. A nil analyzer falls back to the
// default margin.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer(sentiment.AnalyzerOptions{})
	}
	return &Normalizer{analyzer: analyzer}
}

// Normalize maps each raw record to a Result. Records that fail to decode, or
// where both text and title are empty, are skipped.
func (n *Normalizer) Normalize(snapshotID string, records []json.RawMessage) []*model.Result {
	results := make([]*model.Result, 0, len(records))
	for _, raw := range records {
		var record any
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}

		text := textExtractor.pick(record)
		title := titleExtractor.pick(record)
		if text == "" && title == "" {
			continue
		}
		rawURL := urlExtractor.pick(record)

		analysis := n.analyzer.Analyze(strings.TrimSpace(title + " " + text))
		score := analysis.Score

		res := &model.Result{
			SnapshotID:  snapshotID,
			SourceClass: ClassifySource(rawURL),
			Sentiment:   analysis.Label,
			Score:       &score,
		}
		if text != "" {
			res.Text = &text
		}
		if title != "" {
			res.Title = &title
		}
		if rawURL != "" {
			res.URL = &rawURL
		}
		results = append(results, res)
	}
	return results
}

// ClassifySource buckets a URL by its registrable domain. Unparseable or
// empty URLs classify as "other".
func ClassifySource(rawURL string) model.SourceClass {
	if rawURL == "" {
		return model.SourceOther
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.SourceOther
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(parsed.Hostname()))
	if err != nil {
		return model.SourceOther
	}

	switch domain {
	case "reddit.com":
		return model.SourceReddit
	case "devpost.com":
		return model.SourceDevpost
	default:
		return model.SourceOther
	}
}
