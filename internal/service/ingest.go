package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/normalize"
	apperrors "github.com/growthlabs/dispatcher/internal/errors"
)

// IngestServiceOptions groups dependencies for IngestService.
type IngestServiceOptions struct {
	Results    core.ResultRepository // Required: result repository
	Normalizer *normalize.Normalizer // Optional: defaults to the standard normalizer
	// Jobs resolves provider webhook pushes to their owning job. Optional;
	// only IngestPushed needs it.
	Jobs core.JobRepository
	// DedupeByURL skips rows whose (job_id, url) already exists. Policy is
	// configured once at startup.
	DedupeByURL bool
	Logger      *slog.Logger
}

// IngestService turns raw snapshot records into stored, sentiment-tagged
// results.
type IngestService struct {
	results    core.ResultRepository
	normalizer *normalize.Normalizer
	jobs       core.JobRepository
	dedupe     bool
	logger     *slog.Logger
}

// NewIngestService constructs an IngestService.
func NewIngestService(opts IngestServiceOptions) (*IngestService, error) {
	if opts.Results == nil {
		return nil, errors.New("ResultRepository is required")
	}

	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer(normalize.NormalizerOptions{})
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "ingest_service")
	}

	return &IngestService{
		results:    opts.Results,
		normalizer: normalizer,
		jobs:       opts.Jobs,
		dedupe:     opts.DedupeByURL,
		logger:     logger,
	}, nil
}

// MustNewIngestService constructs a new IngestService and panics on error.
func MustNewIngestService(opts IngestServiceOptions) *IngestService {
	svc, err := NewIngestService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create IngestService: %v", err))
	}
	return svc
}

// IngestSnapshot normalizes the raw records and stores them against the job.
// It returns the number of rows written, which can be lower than the record
// count when records are skipped or deduplicated.
func (s *IngestService) IngestSnapshot(
	ctx context.Context,
	jobID, snapshotID string,
	records []json.RawMessage,
) (int, error) {
	results := s.normalizer.Normalize(snapshotID, records)
	if len(results) == 0 {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "no usable records in snapshot",
				"job_id", jobID, "snapshot_id", snapshotID, "raw_records", len(records))
		}
		return 0, nil
	}

	written, err := s.results.InsertBatch(ctx, core.InsertResultsParams{
		JobID:       jobID,
		SnapshotID:  snapshotID,
		Results:     results,
		DedupeByURL: s.dedupe,
	})
	if err != nil {
		return 0, fmt.Errorf("insert results: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "snapshot ingested",
			"job_id", jobID,
			"snapshot_id", snapshotID,
			"raw_records", len(records),
			"normalized", len(results),
			"written", written)
	}
	return written, nil
}

// IngestPushed handles a provider webhook push: resolve the owning job by
// snapshot id, ingest the pushed records, and mark the job fetched. A
// snapshot id no job claims yields a not-found error and no writes.
func (s *IngestService) IngestPushed(
	ctx context.Context,
	snapshotID string,
	records []json.RawMessage,
) (int, error) {
	if s.jobs == nil {
		return 0, errors.New("JobRepository is required for webhook ingestion")
	}
	if snapshotID == "" {
		return 0, apperrors.Validation("snapshot_id is required")
	}

	job, err := s.jobs.GetBySnapshotID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return 0, apperrors.NotFoundf("no job for snapshot %s", snapshotID)
		}
		return 0, fmt.Errorf("resolve snapshot owner: %w", err)
	}

	written, err := s.IngestSnapshot(ctx, job.ID, snapshotID, records)
	if err != nil {
		return 0, err
	}

	if _, err := s.jobs.MarkFetched(ctx, job.ID); err != nil {
		return written, fmt.Errorf("mark job %s fetched: %w", job.ID, err)
	}
	return written, nil
}
