package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthlabs/dispatcher/internal/domain/model"
	"github.com/growthlabs/dispatcher/internal/testutil"
)

func setupTargetRepo(t *testing.T) (*TargetRepo, *sql.DB) {
	t.Helper()
	db := testutil.SetupAutoDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	return NewTargetRepo(db, RepoConfig{}), db
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestTargetRepo_Sync_Delta(t *testing.T) {
	repo, db := setupTargetRepo(t)
	ctx := context.Background()

	inTx(t, db, func(tx *sql.Tx) {
		req := testutil.SyncDelta("7d", []string{"u1", "u2"}, nil)
		inserted, removed, err := repo.Sync(ctx, tx, &req)
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)
		assert.Zero(t, removed)
	})

	// Re-activating an already-active member is a no-op.
	inTx(t, db, func(tx *sql.Tx) {
		inserted, removed, err := repo.Sync(ctx, tx, &model.SyncTargetsRequest{
			Window: "7d",
			Insert: []string{"u1"},
			Remove: []string{"u2", "ghost"},
		})
		require.NoError(t, err)
		assert.Zero(t, inserted)
		assert.Equal(t, 1, removed, "only the active member counts as removed")
	})

	active, err := repo.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "u1", active[0].DistinctID)
	assert.Equal(t, "7d", active[0].Window)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTargetRepo_Sync_RequiresTx(t *testing.T) {
	repo, _ := setupTargetRepo(t)

	_, _, err := repo.Sync(context.Background(), nil, &model.SyncTargetsRequest{Insert: []string{"u1"}})
	require.Error(t, err)
}

func TestTargetRepo_Replace(t *testing.T) {
	repo, db := setupTargetRepo(t)
	ctx := context.Background()

	inTx(t, db, func(tx *sql.Tx) {
		_, _, err := repo.Sync(ctx, tx, &model.SyncTargetsRequest{
			Window: "30d",
			Insert: []string{"a", "b"},
		})
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		inserted, removed, err := repo.Replace(ctx, tx, "30d", []string{"b", "c"})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted, "only c is new")
		assert.Equal(t, 1, removed, "only a leaves the cohort")
	})

	active, err := repo.ListActive(ctx, "30d")
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, target := range active {
		ids = append(ids, target.DistinctID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestTargetRepo_Replace_EmptySetDeactivatesAll(t *testing.T) {
	repo, db := setupTargetRepo(t)
	ctx := context.Background()

	inTx(t, db, func(tx *sql.Tx) {
		_, _, err := repo.Sync(ctx, tx, &model.SyncTargetsRequest{Insert: []string{"a", "b"}})
		require.NoError(t, err)
	})

	inTx(t, db, func(tx *sql.Tx) {
		inserted, removed, err := repo.Replace(ctx, tx, "", nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
		assert.Equal(t, 2, removed)
	})

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// History rows stay behind, deactivated.
	var total int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM targets`).Scan(&total))
	assert.Equal(t, 2, total)
}

func TestSyncRunRepo_CreateAndListRecent(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	repo := NewSyncRunRepo(db, RepoConfig{})
	ctx := context.Background()

	// Separate transactions so created_at orders the two runs.
	var first, second *model.SyncRun
	inTx(t, db, func(tx *sql.Tx) {
		var err error
		first, err = repo.CreateInTx(ctx, tx, &model.SyncRun{Window: "7d", Mode: "delta", Inserted: 2})
		require.NoError(t, err)
	})
	inTx(t, db, func(tx *sql.Tx) {
		var err error
		second, err = repo.CreateInTx(ctx, tx, &model.SyncRun{Window: "30d", Mode: "replace", Removed: 1})
		require.NoError(t, err)
	})

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, "replace", runs[0].Mode)
	assert.Equal(t, 2, runs[1].Inserted)

	runs, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
