package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// TargetRepo provides database operations for the watched cohort.
// Uniqueness of active members is enforced by a partial unique index on
// targets(distinct_id) WHERE active, so racing syncs cannot double-activate.
type TargetRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewTargetRepo creates a new TargetRepo instance.
func NewTargetRepo(db *sql.DB, cfg RepoConfig) *TargetRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &TargetRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const targetColumns = `
  id,
  distinct_id,
  "window",
  active,
  created_at,
  updated_at
`

const insertMissingTargetsSQL = `
	INSERT INTO targets (distinct_id, "window", active)
	SELECT d, $2, TRUE
	FROM unnest($1::text[]) AS d
	WHERE NOT EXISTS (
		SELECT 1 FROM targets t WHERE t.distinct_id = d AND t.active
	)
`

// Sync applies a delta within the given transaction: activate the insert
// list, deactivate the remove list. Already-active inserts and
// already-inactive removes are no-ops and do not count.
func (r *TargetRepo) Sync(
	ctx context.Context,
	tx *sql.Tx,
	req *model.SyncTargetsRequest,
) (inserted, removed int, err error) {
	if tx == nil {
		return 0, 0, fmt.Errorf("transaction is required")
	}
	currentTime := r.timeProvider.Now().UTC()

	if len(req.Remove) > 0 {
		res, execErr := tx.ExecContext(ctx, `
			UPDATE targets
			SET active = FALSE, updated_at = $2
			WHERE active AND distinct_id = ANY($1::text[])
		`, req.Remove, currentTime)
		if execErr != nil {
			return 0, 0, fmt.Errorf("deactivate targets: %w", execErr)
		}
		ra, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("deactivate rows affected: %w", raErr)
		}
		removed = int(ra)
	}

	if len(req.Insert) > 0 {
		res, execErr := tx.ExecContext(ctx, insertMissingTargetsSQL, req.Insert, req.Window)
		if execErr != nil {
			return 0, 0, fmt.Errorf("activate targets: %w", execErr)
		}
		ra, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("activate rows affected: %w", raErr)
		}
		inserted = int(ra)
	}

	return inserted, removed, nil
}

// Replace swaps the active cohort for the incoming set within the given
// transaction: active rows absent from incoming are deactivated, incoming
// ids without an active row are inserted. History rows are kept inactive.
func (r *TargetRepo) Replace(
	ctx context.Context,
	tx *sql.Tx,
	window string,
	distinctIDs []string,
) (inserted, removed int, err error) {
	if tx == nil {
		return 0, 0, fmt.Errorf("transaction is required")
	}
	currentTime := r.timeProvider.Now().UTC()

	res, execErr := tx.ExecContext(ctx, `
		UPDATE targets
		SET active = FALSE, updated_at = $2
		WHERE active AND distinct_id <> ALL($1::text[])
	`, distinctIDs, currentTime)
	if execErr != nil {
		return 0, 0, fmt.Errorf("deactivate removed targets: %w", execErr)
	}
	ra, raErr := res.RowsAffected()
	if raErr != nil {
		return 0, 0, fmt.Errorf("deactivate rows affected: %w", raErr)
	}
	removed = int(ra)

	if len(distinctIDs) > 0 {
		res, execErr = tx.ExecContext(ctx, insertMissingTargetsSQL, distinctIDs, window)
		if execErr != nil {
			return 0, 0, fmt.Errorf("insert new targets: %w", execErr)
		}
		ra, raErr = res.RowsAffected()
		if raErr != nil {
			return 0, 0, fmt.Errorf("insert rows affected: %w", raErr)
		}
		inserted = int(ra)
	}

	return inserted, removed, nil
}

// ListActive returns the active cohort, optionally filtered by window.
func (r *TargetRepo) ListActive(ctx context.Context, window string) ([]*model.Target, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM targets
		WHERE active
	`
	args := []any{}
	if window != "" {
		query += ` AND "window" = $1`
		args = append(args, window)
	}
	query += ` ORDER BY distinct_id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []*model.Target
	for rows.Next() {
		t := &model.Target{}
		if scanErr := rows.Scan(&t.ID, &t.DistinctID, &t.Window, &t.Active, &t.CreatedAt, &t.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan target: %w", scanErr)
		}
		targets = append(targets, t)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return targets, nil
}

// CountActive returns the size of the active cohort.
func (r *TargetRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM targets WHERE active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active targets: %w", err)
	}
	return count, nil
}
