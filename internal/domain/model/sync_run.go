package model

import "time"

// SyncRun records one cohort synchronization. Jobs reference their run
// weakly; deleting a run detaches its jobs instead of removing them.
type SyncRun struct {
	ID        string    `json:"id"         db:"id"`
	Window    string    `json:"window"     db:"window"`
	Mode      string    `json:"mode"       db:"mode"`
	Inserted  int       `json:"inserted"   db:"inserted"`
	Removed   int       `json:"removed"    db:"removed"`
	Note      *string   `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InboxRun is a sync run with its jobs and their results attached,
// as served by the inbox endpoint.
type InboxRun struct {
	SyncRun
	Jobs []InboxJob `json:"jobs"`
}

// InboxJob is a job with its normalized results attached.
type InboxJob struct {
	Job
	Results []Result `json:"results"`
}

// InboxResponse is the full inbox payload.
type InboxResponse struct {
	Runs    []InboxRun       `json:"runs"`
	Summary SentimentSummary `json:"summary_24h"`
}
