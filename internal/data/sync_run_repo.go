package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// SyncRunRepo provides database operations for sync run bookkeeping.
type SyncRunRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewSyncRunRepo creates a new SyncRunRepo instance.
func NewSyncRunRepo(db *sql.DB, cfg RepoConfig) *SyncRunRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &SyncRunRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const syncRunColumns = `
  id,
  "window",
  mode,
  inserted,
  removed,
  note,
  created_at
`

// CreateInTx records a sync run within an existing SQL transaction.
func (r *SyncRunRepo) CreateInTx(
	ctx context.Context,
	tx *sql.Tx,
	run *model.SyncRun,
) (*model.SyncRun, error) {
	if tx == nil {
		return nil, errors.New("transaction is required")
	}
	if run == nil {
		return nil, errors.New("sync run is required")
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO sync_runs ("window", mode, inserted, removed, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+syncRunColumns+`
	`, run.Window, run.Mode, run.Inserted, run.Removed, run.Note)

	created, err := scanSyncRun(row)
	if err != nil {
		return nil, fmt.Errorf("insert sync run: %w", err)
	}
	return created, nil
}

// ListRecent returns the newest sync runs, up to limit.
func (r *SyncRunRepo) ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	if limit < 1 {
		limit = 1
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+syncRunColumns+`
		FROM sync_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*model.SyncRun
	for rows.Next() {
		run, scanErr := scanSyncRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan sync run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return runs, nil
}

type syncRunScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(scanner syncRunScanner) (*model.SyncRun, error) {
	run := &model.SyncRun{}
	var note sql.NullString
	if err := scanner.Scan(
		&run.ID,
		&run.Window,
		&run.Mode,
		&run.Inserted,
		&run.Removed,
		&note,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}
	run.Note = cloneNullableString(note)
	return run, nil
}
