package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data/pgxutil"
	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// Sync run modes recorded in sync_runs.mode.
const (
	SyncModeDelta   = "delta"
	SyncModeReplace = "replace"
)

// searchResultLimit caps results requested per SERP query.
const searchResultLimit = 20

// brandSearchQueries is the broad brand-sentiment query list dispatched after
// every cohort sync. The site: queries keep Reddit and the product forums in
// scope through a single SERP dataset.
var brandSearchQueries = []string{
	"Devpost review",
	"Devpost experience",
	"Devpost pros and cons",
	"is Devpost legit",
	"Devpost scam",
	"Devpost complaints",
	"Devpost prizes winners feedback",
	"Devpost hackathon rules disqualified",
	`site:devpost.com discussions`,
	`site:devpost.com "winners" OR "prize" OR "prizes"`,
	`site:devpost.com "rules" OR "disqualified" OR "complaint"`,
	"site:reddit.com Devpost",
	`"Devpost" site:reddit.com/r/hackathons`,
}

// TxRunner executes fn within a database transaction.
type TxRunner func(ctx context.Context, fn func(*sql.Tx) error) error

// TargetServiceOptions groups dependencies for TargetService.
type TargetServiceOptions struct {
	DB       *sql.DB                // Required unless TxRunner is injected
	Targets  core.TargetRepository  // Required: target cohort repository
	SyncRuns core.SyncRunRepository // Required: sync run bookkeeping
	Jobs     core.JobRepositoryTx   // Required: transactional job creation

	// DatasetID is the provider SERP dataset. When empty, syncs still apply
	// and are recorded, but the scrape job lands directly in error status.
	DatasetID string

	Logger *slog.Logger

	// TxRunner overrides the default transaction wrapper (tests).
	TxRunner TxRunner
}

// TargetService applies cohort synchronizations. Each accepted sync mutates
// the target registry, records a sync run, and enqueues one aggregate scrape
// job — all inside a single transaction so a failed sync leaves nothing
// behind.
type TargetService struct {
	targets   core.TargetRepository
	syncRuns  core.SyncRunRepository
	jobs      core.JobRepositoryTx
	datasetID string
	logger    *slog.Logger
	runTx     TxRunner
}

// NewTargetService constructs a new TargetService.
func NewTargetService(opts TargetServiceOptions) (*TargetService, error) {
	if opts.Targets == nil {
		return nil, errors.New("TargetRepository is required")
	}
	if opts.SyncRuns == nil {
		return nil, errors.New("SyncRunRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepositoryTx is required")
	}

	runTx := opts.TxRunner
	if runTx == nil {
		if opts.DB == nil {
			return nil, errors.New("DB is required when no TxRunner is provided")
		}
		db := opts.DB
		runTx = func(ctx context.Context, fn func(*sql.Tx) error) error {
			return pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: fn})
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "target_service")
	}

	return &TargetService{
		targets:   opts.Targets,
		syncRuns:  opts.SyncRuns,
		jobs:      opts.Jobs,
		datasetID: opts.DatasetID,
		logger:    logger,
		runTx:     runTx,
	}, nil
}

// MustNewTargetService constructs a new TargetService and panics on error.
func MustNewTargetService(opts TargetServiceOptions) *TargetService {
	svc, err := NewTargetService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create TargetService: %v", err))
	}
	return svc
}

// SyncTargets applies a delta sync (explicit insert/remove lists).
func (s *TargetService) SyncTargets(
	ctx context.Context,
	req *model.SyncTargetsRequest,
) (*model.SyncOutcome, error) {
	if req == nil {
		return nil, errors.New("sync request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var outcome *model.SyncOutcome
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		inserted, removed, syncErr := s.targets.Sync(ctx, tx, req)
		if syncErr != nil {
			return fmt.Errorf("sync targets: %w", syncErr)
		}

		var txErr error
		outcome, txErr = s.recordRunAndEnqueue(ctx, tx, runParams{
			Window:   req.Window,
			Mode:     SyncModeDelta,
			Inserted: inserted,
			Removed:  removed,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logOutcome(ctx, SyncModeDelta, req.Window, outcome)
	return outcome, nil
}

// BulkSync replaces the active cohort with the incoming set.
func (s *TargetService) BulkSync(
	ctx context.Context,
	req *model.BulkSyncRequest,
) (*model.SyncOutcome, error) {
	if req == nil {
		return nil, errors.New("bulk sync request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var outcome *model.SyncOutcome
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		inserted, removed, replaceErr := s.targets.Replace(ctx, tx, req.Window, req.Targets)
		if replaceErr != nil {
			return fmt.Errorf("replace targets: %w", replaceErr)
		}

		var txErr error
		outcome, txErr = s.recordRunAndEnqueue(ctx, tx, runParams{
			Window:   req.Window,
			Mode:     SyncModeReplace,
			Inserted: inserted,
			Removed:  removed,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logOutcome(ctx, SyncModeReplace, req.Window, outcome)
	return outcome, nil
}

// ListActive returns the active cohort, optionally filtered by window.
func (s *TargetService) ListActive(ctx context.Context, window string) ([]*model.Target, error) {
	return s.targets.ListActive(ctx, window)
}

type runParams struct {
	Window   string
	Mode     string
	Inserted int
	Removed  int
}

// recordRunAndEnqueue writes the sync_run row and the aggregate scrape job
// within the caller's transaction.
func (s *TargetService) recordRunAndEnqueue(
	ctx context.Context,
	tx *sql.Tx,
	p runParams,
) (*model.SyncOutcome, error) {
	run, err := s.syncRuns.CreateInTx(ctx, tx, &model.SyncRun{
		Window:   p.Window,
		Mode:     p.Mode,
		Inserted: p.Inserted,
		Removed:  p.Removed,
	})
	if err != nil {
		return nil, fmt.Errorf("record sync run: %w", err)
	}

	job, err := s.enqueueScrapeJob(ctx, tx, run.ID)
	if err != nil {
		return nil, err
	}

	return &model.SyncOutcome{
		RunID:    run.ID,
		JobID:    job.ID,
		Inserted: p.Inserted,
		Removed:  p.Removed,
	}, nil
}

// enqueueScrapeJob creates the one aggregate SERP job for a sync run. Without
// a configured dataset the job is still recorded, but directly in error
// status, so the miss shows up in the inbox instead of vanishing.
func (s *TargetService) enqueueScrapeJob(
	ctx context.Context,
	tx *sql.Tx,
	runID string,
) (*model.Job, error) {
	input, err := json.Marshal(model.ScrapeInput{
		DatasetID: s.datasetID,
		Inputs:    BuildSearchInputs(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape input: %w", err)
	}

	req := &model.CreateJobRequest{
		Type:  model.JobTypeScrapeTrigger,
		RunID: &runID,
		Input: input,
	}

	if s.datasetID == "" {
		lastError := "Missing BRIGHTDATA_DATASET_SEARCH"
		job, createErr := s.jobs.CreateWithStatusInTx(ctx, tx, core.CreateJobWithStatusParams{
			Req:       req,
			Status:    model.JobStatusError,
			LastError: &lastError,
		})
		if createErr != nil {
			return nil, fmt.Errorf("record unconfigured scrape job: %w", createErr)
		}
		return job, nil
	}

	job, createErr := s.jobs.CreateInTx(ctx, tx, req)
	if createErr != nil {
		return nil, fmt.Errorf("enqueue scrape job: %w", createErr)
	}
	return job, nil
}

// BuildSearchInputs returns the SERP searches for one aggregate scrape job.
func BuildSearchInputs() []model.ScrapeSearch {
	inputs := make([]model.ScrapeSearch, 0, len(brandSearchQueries))
	for _, q := range brandSearchQueries {
		inputs = append(inputs, model.ScrapeSearch{Query: q, Limit: searchResultLimit})
	}
	return inputs
}

func (s *TargetService) logOutcome(
	ctx context.Context,
	mode, window string,
	outcome *model.SyncOutcome,
) {
	if s.logger == nil || outcome == nil {
		return
	}
	s.logger.InfoContext(ctx, "targets synced",
		"mode", mode,
		"window", window,
		"run_id", outcome.RunID,
		"job_id", outcome.JobID,
		"inserted", outcome.Inserted,
		"removed", outcome.Removed,
	)
}
