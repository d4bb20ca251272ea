// Package devseed populates a development database with a small, idempotent
// data set so the inbox has content before any real cohort sync or provider
// credentials exist.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/service"
)

// seedSnapshotID marks the synthetic snapshot backing the seeded results.
const seedSnapshotID = "s_dev_seed"

// seedTargets is the development cohort applied on first boot.
var seedTargets = []string{
	"dev-user-001",
	"dev-user-002",
	"dev-user-003",
}

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB      *sql.DB
	targets *service.TargetService

	targetRepo *data.TargetRepo
	jobRepo    *data.JobRepo
	resultRepo *data.ResultRepo
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB, datasetID string) Services {
	targetRepo := data.NewTargetRepo(db, data.RepoConfig{})
	syncRunRepo := data.NewSyncRunRepo(db, data.RepoConfig{})
	jobRepo := data.NewJobRepo(db, data.RepoConfig{})
	resultRepo := data.NewResultRepo(db, data.RepoConfig{})

	targetService := service.MustNewTargetService(service.TargetServiceOptions{
		DB:        db,
		Targets:   targetRepo,
		SyncRuns:  syncRunRepo,
		Jobs:      jobRepo,
		DatasetID: datasetID,
	})

	return Services{
		DB:         db,
		targets:    targetService,
		targetRepo: targetRepo,
		jobRepo:    jobRepo,
		resultRepo: resultRepo,
	}
}

// Run seeds the development database. A database that already has active
// targets is left untouched, so repeated dev restarts stay clean.
func Run(ctx context.Context, db *sql.DB, datasetID string, logger *slog.Logger) error {
	return NewServices(db, datasetID).Run(ctx, logger)
}

// Run applies the seed through the same sync path production requests use.
func (s Services) Run(ctx context.Context, logger *slog.Logger) error {
	active, err := s.targetRepo.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("count active targets: %w", err)
	}
	if active > 0 {
		if logger != nil {
			logger.InfoContext(ctx, "dev seed skipped", "active_targets", active)
		}
		return nil
	}

	outcome, err := s.targets.BulkSync(ctx, &model.BulkSyncRequest{
		Window:  "30d",
		Mode:    "replace",
		Targets: seedTargets,
	})
	if err != nil {
		return fmt.Errorf("seed cohort: %w", err)
	}

	if err := s.seedSnapshot(ctx, outcome.RunID); err != nil {
		return err
	}

	if logger != nil {
		logger.InfoContext(ctx, "dev seed applied",
			"run_id", outcome.RunID,
			"targets", len(seedTargets))
	}
	return nil
}

// seedSnapshot records one already-fetched scrape job with normalized results
// attached to the seeded run, so the inbox renders a full run without any
// provider round trip.
func (s Services) seedSnapshot(ctx context.Context, runID string) error {
	input, err := json.Marshal(model.ScrapeInput{
		DatasetID: "gd_dev_seed",
		Inputs:    service.BuildSearchInputs(),
	})
	if err != nil {
		return fmt.Errorf("marshal seed input: %w", err)
	}

	job, err := s.jobRepo.CreateWithStatus(ctx, core.CreateJobWithStatusParams{
		Req: &model.CreateJobRequest{
			Type:  model.JobTypeScrapeTrigger,
			RunID: &runID,
			Input: input,
		},
		Status: model.JobStatusSuccess,
	})
	if err != nil {
		return fmt.Errorf("seed snapshot job: %w", err)
	}

	output, err := json.Marshal(model.ScrapeOutput{SnapshotID: seedSnapshotID})
	if err != nil {
		return fmt.Errorf("marshal seed output: %w", err)
	}
	if _, err = s.DB.ExecContext(ctx,
		`UPDATE jobs SET output = $1, updated_at = now() WHERE id = $2`,
		output, job.ID); err != nil {
		return fmt.Errorf("attach seed output: %w", err)
	}

	if _, err = s.resultRepo.InsertBatch(ctx, core.InsertResultsParams{
		JobID:       job.ID,
		SnapshotID:  seedSnapshotID,
		Results:     seedResults(job.ID),
		DedupeByURL: true,
	}); err != nil {
		return fmt.Errorf("seed results: %w", err)
	}

	if _, err = s.jobRepo.MarkFetched(ctx, job.ID); err != nil {
		return fmt.Errorf("mark seed job fetched: %w", err)
	}
	return nil
}

func seedResults(jobID string) []*model.Result {
	return []*model.Result{
		{
			JobID:       jobID,
			SnapshotID:  seedSnapshotID,
			SourceClass: model.SourceReddit,
			URL:         stringPtr("https://www.reddit.com/r/hackathons/comments/dev1"),
			Title:       stringPtr("Won my first hackathon on Devpost"),
			Text:        stringPtr("Great experience overall, the judging felt fair and the prizes arrived quickly."),
			Sentiment:   model.SentimentPositive,
			Score:       floatPtr(3),
		},
		{
			JobID:       jobID,
			SnapshotID:  seedSnapshotID,
			SourceClass: model.SourceDevpost,
			URL:         stringPtr("https://devpost.com/software/dev-sample"),
			Title:       stringPtr("Sample submission discussion"),
			Text:        stringPtr("Submission portal went down an hour before the deadline, terrible timing."),
			Sentiment:   model.SentimentNegative,
			Score:       floatPtr(-2),
		},
		{
			JobID:       jobID,
			SnapshotID:  seedSnapshotID,
			SourceClass: model.SourceOther,
			URL:         stringPtr("https://example.com/blog/hackathon-roundup"),
			Title:       stringPtr("Hackathon platforms in 2025"),
			Text:        stringPtr("A roundup of the platforms teams used this season."),
			Sentiment:   model.SentimentNeutral,
		},
	}
}

func stringPtr(s string) *string  { return &s }
func floatPtr(f float64) *float64 { return &f }
