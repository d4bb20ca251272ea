// Package dispatchrunner provides the worker pool that claims queued jobs and
// submits them to the scrape provider.
package dispatchrunner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/observability/metrics"
	"github.com/growthlabs/dispatcher/internal/observability/statsd"
	"github.com/growthlabs/dispatcher/internal/service"
)

// HandlerFunc processes a claimed job. A returned error fails the job
// terminally; provider-level retries happen inside the handler.
type HandlerFunc func(ctx context.Context, job *model.Job) error

// RunnerOptions configures the dispatch runner adapter.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Job processing settings
	Lease        time.Duration // per-job lease duration; defaults to 2m
	Concurrency  int           // number of worker goroutines; defaults to 1
	PollInterval time.Duration // fallback claim interval when no notification arrives; defaults to 2s

	// Outbound provider; required.
	Provider core.ScrapeProvider

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo core.JobRepository
	JobSvc   *service.JobService
	Metrics  statsd.Sink
}

// Runner claims jobs and executes them using registered handlers.
type Runner struct {
	jobs     *service.JobService
	provider core.ScrapeProvider
	logger   *slog.Logger
	lease    time.Duration
	poll     time.Duration
	workers  int
	handlers map[model.JobType]HandlerFunc
	metrics  statsd.Sink
}

// NewRunner wires repositories/services and constructs a dispatch runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.JobsRepo == nil && opts.JobSvc == nil {
		return nil, errors.New("either DB, JobsRepo or JobSvc must be provided")
	}
	if opts.Provider == nil {
		return nil, errors.New("scrape provider is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}

	jobSvc := opts.JobSvc
	if jobSvc == nil {
		repo := opts.JobsRepo
		if repo == nil {
			repo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
		}
		jobSvc = service.MustNewJobService(service.JobServiceOptions{
			Repo:         repo,
			DefaultLease: lease,
			Logger:       logger,
		})
	}

	r := &Runner{
		jobs:     jobSvc,
		provider: opts.Provider,
		logger:   logger,
		lease:    lease,
		poll:     poll,
		workers:  workers,
		handlers: make(map[model.JobType]HandlerFunc),
		metrics:  opts.Metrics,
	}
	// Register built-in handlers
	r.handlers[model.JobTypeScrapeTrigger] = r.handleScrapeTrigger
	return r, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting dispatch runner",
		"workers", r.workers, "lease", r.lease, "poll_interval", r.poll)

	// Derive a cancellable context that we can signal on first fatal error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsub, ch := r.jobs.Subscribe(model.JobTypeScrapeTrigger)
	defer unsub()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx, ch); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for ctx.Err() == nil {
		job, err := r.jobs.ClaimNext(ctx, model.JobTypeScrapeTrigger, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForWork(ctx, notify, ticker.C) {
				return nil
			}
		default:
			// Transient store errors delay the next claim; only context
			// cancellation stops the loop.
			r.logger.ErrorContext(ctx, "claim next job failed", "error", err)
			if !r.waitForWork(ctx, notify, ticker.C) {
				return nil
			}
		}
	}
	return ctx.Err()
}

// waitForWork blocks until a notification lands, the poll ticker fires, or
// the context ends. The ticker covers missed notifications.
func (r *Runner) waitForWork(ctx context.Context, notify <-chan struct{}, tick <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-notify:
		return true
	case <-tick:
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.Job) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			JobType:    string(job.Type),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	h, ok := r.handlers[job.Type]
	if !ok {
		err := fmt.Errorf("no handler for job type %s", job.Type)
		r.fail(ctx, job.ID, err.Error())
		emit("failed", metrics.ResultError, err)
		return
	}
	if err := h(ctx, job); err != nil {
		r.fail(ctx, job.ID, err.Error())
		emit("failed", metrics.ResultError, err)
		return
	}
	emit("completed", metrics.ResultSuccess, nil)
}

func (r *Runner) fail(ctx context.Context, id, msg string) {
	if _, err := r.jobs.Fail(ctx, id, msg); err != nil {
		r.logger.ErrorContext(ctx, "fail job error", "job_id", id, "error", err)
	}
}

// handleScrapeTrigger validates the payload, submits the trigger to the
// provider, and records the returned snapshot id as the job output. Invalid
// payloads fail without touching the network.
func (r *Runner) handleScrapeTrigger(ctx context.Context, job *model.Job) error {
	var input model.ScrapeInput
	if err := json.Unmarshal(job.Input, &input); err != nil {
		return fmt.Errorf("decode scrape input: %w", err)
	}
	if err := input.Validate(); err != nil {
		return err
	}

	receipt, err := r.provider.Trigger(ctx, core.TriggerRequest{
		DatasetID: input.DatasetID,
		Inputs:    input.Inputs,
	})
	if err != nil {
		return fmt.Errorf("provider trigger: %w", err)
	}

	output, err := json.Marshal(model.ScrapeOutput{
		SnapshotID: receipt.SnapshotID,
		Raw:        receipt.Raw,
	})
	if err != nil {
		return fmt.Errorf("encode scrape output: %w", err)
	}

	completed, err := r.jobs.Complete(ctx, job.ID, output)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !completed {
		r.logger.WarnContext(ctx, "job no longer running at completion", "job_id", job.ID)
	}

	r.logger.InfoContext(ctx, "scrape trigger dispatched",
		"job_id", job.ID, "snapshot_id", receipt.SnapshotID, "inputs", len(input.Inputs))
	return nil
}
