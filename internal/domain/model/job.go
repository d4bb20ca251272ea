// Package model defines the core data types shared across the dispatcher.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobType represents the kind of work a job row describes.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeScrapeTrigger submits a dataset trigger request to the scrape provider.
	JobTypeScrapeTrigger JobType = "scrape_trigger"

	// JobStatusQueued indicates a job is waiting to be claimed by a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusSuccess indicates a job finished and its output is recorded.
	JobStatusSuccess JobStatus = "success"
	// JobStatusError indicates a job failed terminally; last_error holds the reason.
	JobStatusError JobStatus = "error"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// ErrNoJobsAvailable is returned when no queued jobs are available for claiming.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeScrapeTrigger
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusSuccess ||
		s == JobStatusError
}

// Terminal returns true once a job can no longer change status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// Job represents one unit of dispatch work. Status moves forward only:
// queued -> running -> success|error. Output and LastError are mutually
// exclusive; FetchedAt marks that snapshot results were retrieved.
type Job struct {
	ID             string          `json:"id"                         db:"id"`
	RunID          *string         `json:"run_id,omitempty"           db:"run_id"`
	Type           JobType         `json:"type"                       db:"type"`
	Status         JobStatus       `json:"status"                     db:"status"`
	Input          json.RawMessage `json:"input"                      db:"input"`
	Output         json.RawMessage `json:"output,omitempty"           db:"output"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	FetchedAt      *time.Time      `json:"fetched_at,omitempty"       db:"fetched_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// ScrapeInput is the payload a scrape_trigger job carries.
type ScrapeInput struct {
	DatasetID string         `json:"dataset_id"`
	Inputs    []ScrapeSearch `json:"inputs"`
}

// ScrapeSearch is one search the provider dataset should execute.
type ScrapeSearch struct {
	Query string `json:"q"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks the payload preconditions for dispatching. A payload that
// fails here is marked as a terminal job error without any provider call.
func (in *ScrapeInput) Validate() error {
	if in.DatasetID == "" || len(in.Inputs) == 0 {
		return errors.New("Invalid input: need dataset_id and non-empty inputs[]")
	}
	return nil
}

// ScrapeOutput is what a successful scrape_trigger job records.
type ScrapeOutput struct {
	SnapshotID string          `json:"snapshot_id"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// CreateJobRequest represents a request to enqueue a new job.
type CreateJobRequest struct {
	Type  JobType         `json:"type"`
	RunID *string         `json:"run_id,omitempty"`
	Input json.RawMessage `json:"input"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if len(r.Input) == 0 {
		return errors.New("input is required")
	}
	if r.RunID != nil {
		if _, err := uuid.Parse(*r.RunID); err != nil {
			return errors.New("run_id must be a valid UUID")
		}
	}
	return nil
}

// JobStats represents counts of jobs per status.
type JobStats struct {
	Queued  int `json:"queued"`
	Running int `json:"running"`
	Success int `json:"success"`
	Error   int `json:"error"`
}

// JobStatusResponse represents the status information for a specific job.
type JobStatusResponse struct {
	Status      JobStatus  `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
}
