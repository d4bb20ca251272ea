// Package fetcher provides the background loop that downloads finished
// provider snapshots and ingests their records as results.
package fetcher

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/growthlabs/dispatcher/config"
	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/observability/metrics"
	"github.com/growthlabs/dispatcher/internal/observability/statsd"
	"github.com/growthlabs/dispatcher/internal/service"
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.FetcherConfig
	Logger *slog.Logger

	// Outbound provider; required.
	Provider core.ScrapeProvider
	// Ingest stores normalized snapshot records; required.
	Ingest *service.IngestService

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo core.JobRepository
	Metrics  statsd.Sink
}

// Runner periodically scans for success jobs whose snapshots have not been
// retrieved and downloads them with bounded concurrency. Jobs whose snapshots
// are still collecting are left for a later pass.
type Runner struct {
	jobs     core.JobRepository
	provider core.ScrapeProvider
	ingest   *service.IngestService
	logger   *slog.Logger
	metrics  statsd.Sink

	interval    time.Duration
	batchSize   int
	concurrency int64
}

// NewRunner creates a new fetcher runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.JobsRepo == nil {
		return nil, errors.New("either DB or JobsRepo must be provided")
	}
	if opts.Provider == nil {
		return nil, errors.New("scrape provider is required")
	}
	if opts.Ingest == nil {
		return nil, errors.New("ingest service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := opts.Config.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	batchSize := opts.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := opts.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := opts.JobsRepo
	if jobs == nil {
		jobs = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
	}

	return &Runner{
		jobs:        jobs,
		provider:    opts.Provider,
		ingest:      opts.Ingest,
		logger:      logger,
		metrics:     opts.Metrics,
		interval:    interval,
		batchSize:   batchSize,
		concurrency: int64(concurrency),
	}, nil
}

// Run starts the fetch loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting snapshot fetcher",
		"interval", r.interval, "batch_size", r.batchSize, "concurrency", r.concurrency)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "snapshot fetcher stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "fetch pass failed", "error", err)
				// Continue running despite errors
			}
		}
	}
}

// RunOnce performs a single fetch pass and returns the number of jobs whose
// snapshots were ingested. The admin fetch endpoint calls this directly.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	jobs, err := r.jobs.ListUnfetched(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unfetched jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	sem := semaphore.NewWeighted(r.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	fetched := make(chan struct{}, len(jobs))

	for _, job := range jobs {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			ok, fetchErr := r.fetchJobSnapshot(gctx, job)
			if ok {
				fetched <- struct{}{}
			}
			return fetchErr
		})
	}

	err = g.Wait()
	close(fetched)
	return len(fetched), err
}

// fetchJobSnapshot downloads one job's snapshot and ingests it. Not-ready
// snapshots and per-job provider failures are logged and skipped so one bad
// snapshot cannot stall the batch; only context cancellation aborts the pass.
func (r *Runner) fetchJobSnapshot(ctx context.Context, job *model.Job) (bool, error) {
	start := time.Now()

	var output model.ScrapeOutput
	if err := json.Unmarshal(job.Output, &output); err != nil || output.SnapshotID == "" {
		// Should not happen given the list query filters on snapshot_id.
		r.logger.WarnContext(ctx, "job output missing snapshot id", "job_id", job.ID)
		return false, nil
	}

	records, err := r.provider.FetchSnapshot(ctx, output.SnapshotID)
	if err != nil {
		var notReady *core.ErrSnapshotNotReady
		switch {
		case errors.As(err, &notReady):
			metrics.EmitSnapshotFetch(r.metrics, metrics.ResultNoop, 0, time.Since(start))
			r.logger.DebugContext(ctx, "snapshot not ready",
				"job_id", job.ID, "snapshot_id", output.SnapshotID)
			return false, nil
		case ctx.Err() != nil:
			return false, ctx.Err()
		default:
			metrics.EmitSnapshotFetch(r.metrics, metrics.ResultError, 0, time.Since(start))
			r.logger.ErrorContext(ctx, "snapshot fetch failed",
				"job_id", job.ID, "snapshot_id", output.SnapshotID, "error", err)
			return false, nil
		}
	}

	written, err := r.ingest.IngestSnapshot(ctx, job.ID, output.SnapshotID, records)
	if err != nil {
		metrics.EmitSnapshotFetch(r.metrics, metrics.ResultError, 0, time.Since(start))
		r.logger.ErrorContext(ctx, "snapshot ingest failed",
			"job_id", job.ID, "snapshot_id", output.SnapshotID, "error", err)
		return false, nil
	}

	if _, err := r.jobs.MarkFetched(ctx, job.ID); err != nil {
		return false, fmt.Errorf("mark job %s fetched: %w", job.ID, err)
	}

	metrics.EmitSnapshotFetch(r.metrics, metrics.ResultSuccess, written, time.Since(start))
	r.logger.InfoContext(ctx, "snapshot fetched",
		"job_id", job.ID, "snapshot_id", output.SnapshotID, "results", written)
	return true, nil
}
