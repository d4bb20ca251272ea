package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobIDRequired is returned when a job id is missing on a result insert.
	ErrJobIDRequired = errors.New("job_id is required")
	// ErrSnapshotIDRequired is returned when a snapshot lookup gets an empty id.
	ErrSnapshotIDRequired = errors.New("snapshot_id is required")
)
