package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/testutil"
)

func setupReaperRepo(t *testing.T) (*JobRepo, *testutil.TestTimeProvider) {
	t.Helper()
	db := testutil.SetupAutoDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	tp := testutil.NewTestTimeProvider(testutil.TestTime())
	return NewJobRepo(db, RepoConfig{TimeProvider: tp}), tp
}

func TestJobRepo_RequeueExpired(t *testing.T) {
	repo, tp := setupReaperRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, scrapeRequest(t, "gd_test"))
	require.NoError(t, err)
	_, err = repo.ClaimNext(ctx, model.JobTypeScrapeTrigger, 60)
	require.NoError(t, err)

	// Lease still valid: nothing to requeue.
	requeued, err := repo.RequeueExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, requeued)

	tp.AddTime(2 * time.Minute)

	requeued, err = repo.RequeueExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, requeued)

	job, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Nil(t, job.LeaseExpiresAt)

	// The requeued job is claimable again.
	claimed, err := repo.ClaimNext(ctx, model.JobTypeScrapeTrigger, 60)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claimed.ID)
}

func TestJobRepo_DeleteOldJobs(t *testing.T) {
	repo, tp := setupReaperRepo(t)
	ctx := context.Background()

	lastError := "boom"
	old, err := repo.CreateWithStatus(ctx, core.CreateJobWithStatusParams{
		Req:       scrapeRequest(t, "gd_test"),
		Status:    model.JobStatusError,
		LastError: &lastError,
	})
	require.NoError(t, err)

	tp.AddTime(200 * time.Hour)

	// A fresh terminal job inside the retention window must survive.
	fresh, err := repo.CreateWithStatus(ctx, core.CreateJobWithStatusParams{
		Req:       scrapeRequest(t, "gd_test"),
		Status:    model.JobStatusError,
		LastError: &lastError,
	})
	require.NoError(t, err)

	deleted, err := repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
		Status:    model.JobStatusError,
		MaxAge:    168 * time.Hour,
		BatchSize: 100,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.GetByID(ctx, old.ID)
	require.ErrorIs(t, err, ErrJobNotFound)

	_, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestJobRepo_DeleteOldJobs_RejectsNonTerminal(t *testing.T) {
	repo, _ := setupReaperRepo(t)

	_, err := repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
		Status:    model.JobStatusRunning,
		MaxAge:    time.Hour,
		BatchSize: 10,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}
