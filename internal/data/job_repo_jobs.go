package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data/pgxutil"
	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// insertJobParams groups parameters for inserting a job within a transaction.
type insertJobParams struct {
	Req       *model.CreateJobRequest
	Status    model.JobStatus
	LastError *string
}

// SQL used by ClaimNext to atomically claim the next queued job.
// The conditional update plus SKIP LOCKED guarantees a job is handed to at
// most one worker.
const claimNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE type = $1 AND status = 'queued'
    ORDER BY created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'running',
    started_at = COALESCE(j.started_at, $2),
    lease_expires_at = $3,
    updated_at = $4
  FROM cte
  WHERE j.id = cte.id AND j.status = 'queued'
  RETURNING j.id, j.run_id, j.type, j.status, j.input, j.output, j.last_error, j.lease_expires_at, j.started_at, j.completed_at, j.fetched_at, j.created_at, j.updated_at`

// Create enqueues a new job in queued status.
func (r *JobRepo) Create(
	ctx context.Context,
	req *model.CreateJobRequest,
) (*model.Job, error) {
	return r.createWithStatus(ctx, core.CreateJobWithStatusParams{
		Req:    req,
		Status: model.JobStatusQueued,
	})
}

// CreateWithStatus inserts a job directly in the given status. A queued job
// also emits the job notification so workers wake up.
func (r *JobRepo) CreateWithStatus(
	ctx context.Context,
	params core.CreateJobWithStatusParams,
) (*model.Job, error) {
	return r.createWithStatus(ctx, params)
}

func (r *JobRepo) createWithStatus(
	ctx context.Context,
	params core.CreateJobWithStatusParams,
) (*model.Job, error) {
	p, err := prepareInsertParams(params)
	if err != nil {
		return nil, err
	}

	var job *model.Job
	if txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var insertErr error
			job, insertErr = r.insertJobInTx(ctx, tx, p)
			return insertErr
		},
	}); txErr != nil {
		return nil, txErr
	}

	return job, nil
}

// CreateInTx inserts a queued job within an existing SQL transaction.
func (r *JobRepo) CreateInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	req *model.CreateJobRequest,
) (*model.Job, error) {
	return r.CreateWithStatusInTx(ctx, sqlTx, core.CreateJobWithStatusParams{
		Req:    req,
		Status: model.JobStatusQueued,
	})
}

// CreateWithStatusInTx inserts a job with an explicit status within an
// existing SQL transaction.
func (r *JobRepo) CreateWithStatusInTx(
	ctx context.Context,
	sqlTx *sql.Tx,
	params core.CreateJobWithStatusParams,
) (*model.Job, error) {
	if sqlTx == nil {
		return nil, errors.New("transaction is required")
	}
	p, err := prepareInsertParams(params)
	if err != nil {
		return nil, err
	}

	query, args := r.buildInsertQuery(p)
	row := sqlTx.QueryRowContext(ctx, query, args...)

	job, scanErr := scanJobFromRow(row)
	if scanErr != nil {
		return nil, fmt.Errorf("collect job: %w", scanErr)
	}

	if p.Status == model.JobStatusQueued {
		channel := "job_added_" + string(p.Req.Type)
		if _, notifyErr := sqlTx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, job.ID); notifyErr != nil {
			return nil, fmt.Errorf("send job notification: %w", notifyErr)
		}
	}

	return job, nil
}

func prepareInsertParams(params core.CreateJobWithStatusParams) (*insertJobParams, error) {
	req := params.Req
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, validateErr
	}

	status := params.Status
	if status == "" {
		status = model.JobStatusQueued
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid job status: %s", status)
	}
	if status == model.JobStatusError && params.LastError == nil {
		return nil, errors.New("error status requires a last error message")
	}
	if status != model.JobStatusError && params.LastError != nil {
		return nil, errors.New("last error is only allowed with error status")
	}

	return &insertJobParams{Req: req, Status: status, LastError: params.LastError}, nil
}

// insertJobInTx inserts a job within a pgx.Tx and returns the created job.
func (r *JobRepo) insertJobInTx(ctx context.Context, tx pgx.Tx, params *insertJobParams) (*model.Job, error) {
	query, args := r.buildInsertQuery(params)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	job, collectErr := collectJobFromRows(rows)
	rows.Close()
	if collectErr != nil {
		return nil, fmt.Errorf("collect job: %w", collectErr)
	}

	if params.Status == model.JobStatusQueued {
		channel := "job_added_" + string(params.Req.Type)
		if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, channel, job.ID); execErr != nil {
			return nil, fmt.Errorf("send job notification: %w", execErr)
		}
	}

	return job, nil
}

// buildInsertQuery builds an INSERT statement for a job based on the provided parameters.
func (r *JobRepo) buildInsertQuery(p *insertJobParams) (string, []any) {
	query := `
      INSERT INTO jobs(run_id, type, status, input, last_error, completed_at)
      VALUES ($1,$2,$3,$4,$5,$6)
      RETURNING ` + jobColumns

	// Terminal-on-insert jobs carry their completion timestamp immediately.
	var completedAt any
	if p.Status.Terminal() {
		completedAt = r.timeProvider.Now().UTC()
	}

	args := []any{
		p.Req.RunID,
		p.Req.Type,
		p.Status,
		[]byte(p.Req.Input),
		p.LastError,
		completedAt,
	}
	return query, args
}

// ClaimNext atomically claims the oldest queued job of the given type.
// Returns model.ErrNoJobsAvailable when nothing is queued.
func (r *JobRepo) ClaimNext(
	ctx context.Context,
	jobType model.JobType,
	leaseSeconds int,
) (*model.Job, error) {
	if !jobType.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(leaseDuration(leaseSeconds))

			rows, qerr := tx.Query(
				ctx,
				claimNextUpdateSQL,
				jobType,
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Complete marks a running job as success and stores its output.
// Returns false when the job was not in running status.
func (r *JobRepo) Complete(ctx context.Context, id string, output json.RawMessage) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	out := output
	if len(out) == 0 {
		out = json.RawMessage(`{}`)
	}

	query := `
		UPDATE jobs
		SET status = 'success',
		    output = $2,
		    completed_at = $3,
		    updated_at = $3,
		    lease_expires_at = NULL,
		    last_error = NULL
		WHERE id = $1 AND status = 'running'
	`

	res, err := r.DB.ExecContext(ctx, query, id, []byte(out), currentTime)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Fail marks a running job as a terminal error with the given message.
// Retries happen inside the provider call, not by requeueing, so a failed
// job never returns to queued.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	query := `
		UPDATE jobs
		SET status = 'error',
		    last_error = $2,
		    output = NULL,
		    completed_at = $3,
		    updated_at = $3,
		    lease_expires_at = NULL
		WHERE id = $1 AND status = 'running'
	`

	res, err := r.DB.ExecContext(ctx, query, id, errMsg, currentTime)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Stats returns counts of jobs of the given type per status.
func (r *JobRepo) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'queued')  AS queued,
    count(*) FILTER (WHERE status = 'running') AS running,
    count(*) FILTER (WHERE status = 'success') AS success,
    count(*) FILTER (WHERE status = 'error')   AS error
  FROM jobs
  WHERE type = $1
  `, jobType).Scan(
		&s.Queued,
		&s.Running,
		&s.Success,
		&s.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification waits for a PostgreSQL notification indicating new jobs are available.
func (r *JobRepo) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := "job_added_" + string(jobType)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetBySnapshotID retrieves the job owning the given provider snapshot.
func (r *JobRepo) GetBySnapshotID(ctx context.Context, snapshotID string) (*model.Job, error) {
	if snapshotID == "" {
		return nil, ErrSnapshotIDRequired
	}

	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE output->>'snapshot_id' = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, snapshotID)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by snapshot: %w", err)
	}
	return job, nil
}

// ListUnfetched returns success jobs with a snapshot id whose results have
// not been retrieved yet, oldest first.
func (r *JobRepo) ListUnfetched(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit < 1 {
		limit = 1
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'success'
		  AND fetched_at IS NULL
		  AND output->>'snapshot_id' IS NOT NULL
		ORDER BY completed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unfetched jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan unfetched job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return jobs, nil
}

// MarkFetched records that snapshot results for a job were retrieved.
// Returns false if the job was already marked or is not a success.
func (r *JobRepo) MarkFetched(ctx context.Context, id string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET fetched_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'success' AND fetched_at IS NULL
	`, id, currentTime)
	if err != nil {
		return false, fmt.Errorf("mark job fetched: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark fetched rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByRunIDs returns all jobs belonging to the given sync runs, newest first.
func (r *JobRepo) ListByRunIDs(ctx context.Context, runIDs []string) ([]*model.Job, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}

	var jobs []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, qerr := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE run_id = ANY($1::uuid[])
			ORDER BY created_at DESC
		`, runIDs)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			job, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return fmt.Errorf("scan job: %w", scanErr)
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs by runs: %w", err)
	}
	return jobs, nil
}

func leaseDuration(leaseSeconds int) time.Duration {
	if leaseSeconds < 1 {
		leaseSeconds = 1
	}
	return time.Duration(leaseSeconds) * time.Second
}
