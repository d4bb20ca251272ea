// Package testutil provides testing utilities and helpers for the dispatcher job system.
package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Type:  model.JobTypeScrapeTrigger,
			Input: json.RawMessage(`{"dataset_id": "gd_test", "inputs": [{"q": "\"acme\""}]}`),
		},
	}
}

// WithType sets the job type.
func (b *JobRequestBuilder) WithType(jobType model.JobType) *JobRequestBuilder {
	b.req.Type = jobType
	return b
}

// WithRunID associates the job with a sync run.
func (b *JobRequestBuilder) WithRunID(runID string) *JobRequestBuilder {
	b.req.RunID = &runID
	return b
}

// WithInput sets the job input payload.
func (b *JobRequestBuilder) WithInput(input json.RawMessage) *JobRequestBuilder {
	b.req.Input = input
	return b
}

// WithInputString sets the job input payload from a string.
func (b *JobRequestBuilder) WithInputString(input string) *JobRequestBuilder {
	b.req.Input = json.RawMessage(input)
	return b
}

// WithScrapeInput sets the job input to a marshaled ScrapeInput.
func (b *JobRequestBuilder) WithScrapeInput(in model.ScrapeInput) *JobRequestBuilder {
	raw, err := json.Marshal(in)
	if err != nil {
		panic(fmt.Sprintf("marshal scrape input: %v", err))
	}
	b.req.Input = raw
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// Common test job request presets

// ScrapeTriggerRequest creates a scrape trigger request for the given brand queries.
func ScrapeTriggerRequest(datasetID string, queries ...string) *model.CreateJobRequest {
	inputs := make([]model.ScrapeSearch, 0, len(queries))
	for _, q := range queries {
		inputs = append(inputs, model.ScrapeSearch{Query: q})
	}
	return NewJobRequest().
		WithScrapeInput(model.ScrapeInput{DatasetID: datasetID, Inputs: inputs}).
		Build()
}

// SyncDelta builds a delta sync request for the given window.
func SyncDelta(window string, insert, remove []string) model.SyncTargetsRequest {
	return model.SyncTargetsRequest{
		Window: window,
		Insert: insert,
		Remove: remove,
	}
}

