// Package core holds the ports (hexagonal-architecture interfaces) between
// the service layer and the data/provider adapters.
package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	// CreateWithStatus inserts a job directly in the given status. Used when a
	// misconfigured sync must surface as a terminal error job instead of a
	// dispatchable one.
	CreateWithStatus(ctx context.Context, params CreateJobWithStatusParams) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// ClaimNext atomically moves the oldest queued job of the type to running
	// and leases it. Returns model.ErrNoJobsAvailable when nothing is queued.
	ClaimNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Complete(ctx context.Context, id string, output json.RawMessage) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
	// ListUnfetched returns success jobs whose snapshot results have not been
	// retrieved yet, oldest first, up to limit.
	ListUnfetched(ctx context.Context, limit int) ([]*model.Job, error)
	GetBySnapshotID(ctx context.Context, snapshotID string) (*model.Job, error)
	MarkFetched(ctx context.Context, id string) (bool, error)
	ListByRunIDs(ctx context.Context, runIDs []string) ([]*model.Job, error)
}

// JobRepositoryTx defines optional transactional job creation support.
type JobRepositoryTx interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateJobRequest) (*model.Job, error)
	CreateWithStatusInTx(ctx context.Context, tx *sql.Tx, params CreateJobWithStatusParams) (*model.Job, error)
}

// CreateJobWithStatusParams groups parameters for CreateWithStatus.
type CreateJobWithStatusParams struct {
	Req       *model.CreateJobRequest
	Status    model.JobStatus
	LastError *string
}

// TargetRepository defines the interface for target cohort data operations.
type TargetRepository interface {
	// Sync applies a delta (activate inserts, deactivate removes) in one
	// transaction and returns the counts actually changed.
	Sync(ctx context.Context, tx *sql.Tx, req *model.SyncTargetsRequest) (inserted, removed int, err error)
	// Replace swaps the active cohort for the incoming set in one transaction:
	// rows absent from incoming are deactivated, rows missing are inserted.
	Replace(ctx context.Context, tx *sql.Tx, window string, distinctIDs []string) (inserted, removed int, err error)
	ListActive(ctx context.Context, window string) ([]*model.Target, error)
	CountActive(ctx context.Context) (int, error)
}

// SyncRunRepository defines the interface for sync run bookkeeping.
type SyncRunRepository interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, run *model.SyncRun) (*model.SyncRun, error)
	ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

// InsertResultsParams groups parameters for ResultRepository.InsertBatch.
type InsertResultsParams struct {
	JobID      string
	SnapshotID string
	Results    []*model.Result
	// DedupeByURL skips rows whose (job_id, url) already exists.
	DedupeByURL bool
}

// ResultRepository defines the interface for normalized result data.
type ResultRepository interface {
	InsertBatch(ctx context.Context, params InsertResultsParams) (int, error)
	ListByJobIDs(ctx context.Context, jobIDs []string) ([]*model.Result, error)
	// SummarizeSince counts results per sentiment created at or after the cutoff.
	SummarizeSince(ctx context.Context, cutoff time.Time) (*model.SentimentSummary, error)
}

// TriggerRequest is what the dispatcher sends to the scrape provider.
type TriggerRequest struct {
	DatasetID string
	Inputs    []model.ScrapeSearch
}

// TriggerReceipt is the provider's acknowledgment of a trigger.
type TriggerReceipt struct {
	SnapshotID string
	Raw        json.RawMessage
}

// ErrSnapshotNotReady is returned by FetchSnapshot while the provider is
// still collecting; callers should retry on a later tick.
type ErrSnapshotNotReady struct {
	SnapshotID string
}

func (e *ErrSnapshotNotReady) Error() string {
	return "snapshot not ready: " + e.SnapshotID
}

// ScrapeProvider is the pluggable outbound port: submit a dataset trigger,
// get a correlation id back, fetch collected records by that id later.
type ScrapeProvider interface {
	Trigger(ctx context.Context, req TriggerRequest) (*TriggerReceipt, error)
	FetchSnapshot(ctx context.Context, snapshotID string) ([]json.RawMessage, error)
}

// SummaryCache caches the inbox sentiment rollup.
type SummaryCache interface {
	GetSummary(ctx context.Context, key string) (*model.SentimentSummary, bool, error)
	SetSummary(ctx context.Context, key string, summary *model.SentimentSummary, ttl time.Duration) error
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count small.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for job table hygiene.
type ReaperRepository interface {
	// RequeueExpired returns running jobs with expired leases to queued.
	// This is the only transition back to queued and exists for crash recovery.
	RequeueExpired(ctx context.Context) (int64, error)

	// DeleteOldJobs deletes terminal jobs older than MaxAge in batches of
	// BatchSize to keep lock times short. Results go with them via cascade.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}
