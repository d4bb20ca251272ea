package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200

	summaryWindow   = 24 * time.Hour
	summaryCacheKey = "inbox:summary:24h"
)

// InboxServiceOptions groups dependencies for InboxService.
type InboxServiceOptions struct {
	SyncRuns core.SyncRunRepository // Required: sync run bookkeeping
	Jobs     core.JobRepository     // Required: job lookups by run
	Results  core.ResultRepository  // Required: result lookups and rollup

	// Cache holds the sentiment rollup; nil disables caching.
	Cache      core.SummaryCache
	SummaryTTL time.Duration

	Logger       *slog.Logger
	TimeProvider data.TimeProvider
}

// InboxService assembles the read model for the inbox endpoint: recent sync
// runs with their jobs and normalized results, plus a cached 24h sentiment
// rollup.
type InboxService struct {
	syncRuns core.SyncRunRepository
	jobs     core.JobRepository
	results  core.ResultRepository

	cache      core.SummaryCache
	summaryTTL time.Duration

	logger       *slog.Logger
	timeProvider data.TimeProvider
}

// NewInboxService constructs a new InboxService.
func NewInboxService(opts InboxServiceOptions) (*InboxService, error) {
	if opts.SyncRuns == nil {
		return nil, errors.New("SyncRunRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Results == nil {
		return nil, errors.New("ResultRepository is required")
	}

	ttl := opts.SummaryTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "inbox_service")
	}

	return &InboxService{
		syncRuns:     opts.SyncRuns,
		jobs:         opts.Jobs,
		results:      opts.Results,
		cache:        opts.Cache,
		summaryTTL:   ttl,
		logger:       logger,
		timeProvider: tp,
	}, nil
}

// MustNewInboxService constructs a new InboxService and panics on error.
func MustNewInboxService(opts InboxServiceOptions) *InboxService {
	svc, err := NewInboxService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create InboxService: %v", err))
	}
	return svc
}

// GetInbox returns the newest sync runs with nested jobs and results, plus
// the 24h sentiment rollup. limit <= 0 falls back to the default and values
// above the cap are clamped.
func (s *InboxService) GetInbox(ctx context.Context, limit int) (*model.InboxResponse, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}

	runs, err := s.syncRuns.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}

	inboxRuns, err := s.attachJobsAndResults(ctx, runs)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx)
	if err != nil {
		return nil, err
	}

	return &model.InboxResponse{
		Runs:    inboxRuns,
		Summary: *summary,
	}, nil
}

func (s *InboxService) attachJobsAndResults(
	ctx context.Context,
	runs []*model.SyncRun,
) ([]model.InboxRun, error) {
	inboxRuns := make([]model.InboxRun, 0, len(runs))
	if len(runs) == 0 {
		return inboxRuns, nil
	}

	runIDs := make([]string, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}

	jobs, err := s.jobs.ListByRunIDs(ctx, runIDs)
	if err != nil {
		return nil, fmt.Errorf("list jobs by runs: %w", err)
	}

	jobIDs := make([]string, 0, len(jobs))
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
	}

	var results []*model.Result
	if len(jobIDs) > 0 {
		results, err = s.results.ListByJobIDs(ctx, jobIDs)
		if err != nil {
			return nil, fmt.Errorf("list results by jobs: %w", err)
		}
	}

	resultsByJob := make(map[string][]model.Result, len(jobIDs))
	for _, result := range results {
		resultsByJob[result.JobID] = append(resultsByJob[result.JobID], *result)
	}

	jobsByRun := make(map[string][]model.InboxJob, len(runIDs))
	for _, job := range jobs {
		if job.RunID == nil {
			continue
		}
		jobResults := resultsByJob[job.ID]
		if jobResults == nil {
			jobResults = []model.Result{}
		}
		jobsByRun[*job.RunID] = append(jobsByRun[*job.RunID], model.InboxJob{
			Job:     *job,
			Results: jobResults,
		})
	}

	for _, run := range runs {
		runJobs := jobsByRun[run.ID]
		if runJobs == nil {
			runJobs = []model.InboxJob{}
		}
		inboxRuns = append(inboxRuns, model.InboxRun{
			SyncRun: *run,
			Jobs:    runJobs,
		})
	}
	return inboxRuns, nil
}

// summarize returns the 24h sentiment rollup, served from cache when fresh.
// Cache failures degrade to a recompute instead of failing the request.
func (s *InboxService) summarize(ctx context.Context) (*model.SentimentSummary, error) {
	if s.cache != nil {
		cached, found, err := s.cache.GetSummary(ctx, summaryCacheKey)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "summary cache read failed", "error", err)
			}
		} else if found {
			return cached, nil
		}
	}

	cutoff := s.timeProvider.Now().UTC().Add(-summaryWindow)
	summary, err := s.results.SummarizeSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("summarize results: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, summaryCacheKey, summary, s.summaryTTL); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "summary cache write failed", "error", err)
			}
		}
	}
	return summary, nil
}
