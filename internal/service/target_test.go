package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/mocks"
)

type targetTestDeps struct {
	targets  *mocks.MockTargetRepository
	syncRuns *mocks.MockSyncRunRepository
	jobs     *mocks.MockJobRepositoryTx
}

// passthroughTx hands the callback a nil *sql.Tx so unit tests can run the
// orchestration without a database.
func passthroughTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return fn(nil)
}

func newTestTargetService(t *testing.T, datasetID string) (*TargetService, targetTestDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	deps := targetTestDeps{
		targets:  mocks.NewMockTargetRepository(ctrl),
		syncRuns: mocks.NewMockSyncRunRepository(ctrl),
		jobs:     mocks.NewMockJobRepositoryTx(ctrl),
	}

	svc, err := NewTargetService(TargetServiceOptions{
		Targets:   deps.targets,
		SyncRuns:  deps.syncRuns,
		Jobs:      deps.jobs,
		DatasetID: datasetID,
		TxRunner:  passthroughTx,
	})
	require.NoError(t, err)
	return svc, deps
}

func TestNewTargetService_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)

	tests := []struct {
		name string
		opts TargetServiceOptions
	}{
		{name: "missing targets", opts: TargetServiceOptions{
			SyncRuns: mocks.NewMockSyncRunRepository(ctrl),
			Jobs:     mocks.NewMockJobRepositoryTx(ctrl),
			TxRunner: passthroughTx,
		}},
		{name: "missing sync runs", opts: TargetServiceOptions{
			Targets:  mocks.NewMockTargetRepository(ctrl),
			Jobs:     mocks.NewMockJobRepositoryTx(ctrl),
			TxRunner: passthroughTx,
		}},
		{name: "missing jobs", opts: TargetServiceOptions{
			Targets:  mocks.NewMockTargetRepository(ctrl),
			SyncRuns: mocks.NewMockSyncRunRepository(ctrl),
			TxRunner: passthroughTx,
		}},
		{name: "missing db and tx runner", opts: TargetServiceOptions{
			Targets:  mocks.NewMockTargetRepository(ctrl),
			SyncRuns: mocks.NewMockSyncRunRepository(ctrl),
			Jobs:     mocks.NewMockJobRepositoryTx(ctrl),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTargetService(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestBulkSync_ReplacesAndEnqueuesOneJob(t *testing.T) {
	svc, deps := newTestTargetService(t, "gd_dataset_serp")

	req := &model.BulkSyncRequest{
		Window:  "2025-08-01..2025-08-28",
		Mode:    "replace",
		Targets: []string{"b", "c"},
	}

	deps.targets.EXPECT().
		Replace(gomock.Any(), gomock.Any(), req.Window, []string{"b", "c"}).
		Return(1, 1, nil)
	deps.syncRuns.EXPECT().
		CreateInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, run *model.SyncRun) (*model.SyncRun, error) {
			assert.Equal(t, req.Window, run.Window)
			assert.Equal(t, SyncModeReplace, run.Mode)
			assert.Equal(t, 1, run.Inserted)
			assert.Equal(t, 1, run.Removed)
			created := *run
			created.ID = "run-1"
			return &created, nil
		})
	deps.jobs.EXPECT().
		CreateInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, jobReq *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, model.JobTypeScrapeTrigger, jobReq.Type)
			require.NotNil(t, jobReq.RunID)
			assert.Equal(t, "run-1", *jobReq.RunID)

			var input model.ScrapeInput
			require.NoError(t, json.Unmarshal(jobReq.Input, &input))
			assert.Equal(t, "gd_dataset_serp", input.DatasetID)
			require.Len(t, input.Inputs, 13)
			assert.Equal(t, "Devpost review", input.Inputs[0].Query)
			assert.Equal(t, 20, input.Inputs[0].Limit)

			return &model.Job{ID: "job-1", Type: jobReq.Type, Status: model.JobStatusQueued}, nil
		})

	outcome, err := svc.BulkSync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, &model.SyncOutcome{
		RunID:    "run-1",
		JobID:    "job-1",
		Inserted: 1,
		Removed:  1,
	}, outcome)
}

func TestBulkSync_MissingDatasetRecordsErrorJob(t *testing.T) {
	svc, deps := newTestTargetService(t, "")

	req := &model.BulkSyncRequest{Window: "w1", Targets: []string{"a"}}

	deps.targets.EXPECT().
		Replace(gomock.Any(), gomock.Any(), "w1", []string{"a"}).
		Return(1, 0, nil)
	deps.syncRuns.EXPECT().
		CreateInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&model.SyncRun{ID: "run-1", Window: "w1", Mode: SyncModeReplace, Inserted: 1}, nil)
	deps.jobs.EXPECT().
		CreateWithStatusInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, params core.CreateJobWithStatusParams) (*model.Job, error) {
			assert.Equal(t, model.JobStatusError, params.Status)
			require.NotNil(t, params.LastError)
			assert.Equal(t, "Missing BRIGHTDATA_DATASET_SEARCH", *params.LastError)
			return &model.Job{ID: "job-err", Status: model.JobStatusError}, nil
		})

	outcome, err := svc.BulkSync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-err", outcome.JobID)
}

func TestBulkSync_RejectsInvalidMode(t *testing.T) {
	svc, _ := newTestTargetService(t, "gd_dataset_serp")

	_, err := svc.BulkSync(context.Background(), &model.BulkSyncRequest{
		Window:  "w1",
		Mode:    "merge",
		Targets: []string{"a"},
	})
	require.Error(t, err)
}

func TestSyncTargets_AppliesDelta(t *testing.T) {
	svc, deps := newTestTargetService(t, "gd_dataset_serp")

	req := &model.SyncTargetsRequest{
		Window: "w2",
		Insert: []string{"c"},
		Remove: []string{"a"},
	}

	deps.targets.EXPECT().
		Sync(gomock.Any(), gomock.Any(), req).
		Return(1, 1, nil)
	deps.syncRuns.EXPECT().
		CreateInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sql.Tx, run *model.SyncRun) (*model.SyncRun, error) {
			assert.Equal(t, SyncModeDelta, run.Mode)
			created := *run
			created.ID = "run-2"
			return &created, nil
		})
	deps.jobs.EXPECT().
		CreateInTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&model.Job{ID: "job-2"}, nil)

	outcome, err := svc.SyncTargets(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "run-2", outcome.RunID)
	assert.Equal(t, "job-2", outcome.JobID)
}

func TestSyncTargets_RejectsEmptyDelta(t *testing.T) {
	svc, _ := newTestTargetService(t, "gd_dataset_serp")

	_, err := svc.SyncTargets(context.Background(), &model.SyncTargetsRequest{Window: "w1"})
	require.Error(t, err)
}

func TestSyncTargets_RepoErrorAbortsRun(t *testing.T) {
	svc, deps := newTestTargetService(t, "gd_dataset_serp")

	deps.targets.EXPECT().
		Sync(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0, 0, errors.New("deadlock detected"))
	// No sync run and no job when the cohort write fails.

	_, err := svc.SyncTargets(context.Background(), &model.SyncTargetsRequest{
		Window: "w1",
		Insert: []string{"a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync targets")
}

func TestBuildSearchInputs_CoversRedditAndDevpost(t *testing.T) {
	inputs := BuildSearchInputs()
	require.Len(t, inputs, 13)

	var reddit, devpost int
	for _, in := range inputs {
		assert.Equal(t, 20, in.Limit)
		if strings.Contains(in.Query, "reddit.com") {
			reddit++
		}
		if strings.Contains(in.Query, "devpost.com") {
			devpost++
		}
	}
	assert.NotZero(t, reddit)
	assert.NotZero(t, devpost)
}
