package model

import (
	"errors"
	"strings"
	"time"
)

// Target is a cohort member whose brand mentions the dispatcher watches.
// At most one active row may exist per distinct id; deactivated rows are
// kept for history.
type Target struct {
	ID         string    `json:"id"          db:"id"`
	DistinctID string    `json:"distinct_id" db:"distinct_id"`
	Window     string    `json:"window"      db:"window"`
	Active     bool      `json:"active"      db:"active"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"  db:"updated_at"`
}

// SyncTargetsRequest is the delta form of target synchronization.
type SyncTargetsRequest struct {
	Window string   `json:"window"`
	Insert []string `json:"insert,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// Validate validates the SyncTargetsRequest fields.
func (r *SyncTargetsRequest) Validate() error {
	if len(r.Insert) == 0 && len(r.Remove) == 0 {
		return errors.New("insert or remove is required")
	}
	return validateDistinctIDs(append(append([]string{}, r.Insert...), r.Remove...))
}

// BulkSyncRequest replaces the active cohort with the given set.
type BulkSyncRequest struct {
	Window  string   `json:"window"`
	Mode    string   `json:"mode"`
	Targets []string `json:"targets"`
}

// Validate validates the BulkSyncRequest fields.
func (r *BulkSyncRequest) Validate() error {
	if r.Mode != "" && r.Mode != "replace" {
		return errors.New("mode must be \"replace\"")
	}
	return validateDistinctIDs(r.Targets)
}

func validateDistinctIDs(ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.New("distinct ids must be non-empty")
		}
	}
	return nil
}

// SyncOutcome summarizes one applied synchronization.
type SyncOutcome struct {
	RunID    string `json:"run_id"`
	JobID    string `json:"job_id,omitempty"`
	Inserted int    `json:"inserted"`
	Removed  int    `json:"removed"`
}
