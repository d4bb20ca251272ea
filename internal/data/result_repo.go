package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/growthlabs/dispatcher/internal/core"
	"github.com/growthlabs/dispatcher/internal/data/pgxutil"
	"github.com/growthlabs/dispatcher/internal/domain/model"
)

// ResultRepo provides database operations for normalized snapshot results.
// Rows are insert only; they disappear only when the owning job is reaped.
type ResultRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewResultRepo creates a new ResultRepo instance.
func NewResultRepo(db *sql.DB, cfg RepoConfig) *ResultRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &ResultRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const resultColumns = `
  id,
  job_id,
  snapshot_id,
  source_class,
  url,
  title,
  text,
  sentiment,
  score,
  created_at
`

// Dedupe is app-level policy rather than a unique index so that turning the
// policy off genuinely allows duplicate (job_id, url) rows.
const insertResultDedupeSQL = `
	INSERT INTO results (job_id, snapshot_id, source_class, url, title, text, sentiment, score)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8
	WHERE NOT EXISTS (
		SELECT 1 FROM results WHERE job_id = $1 AND url = $4
	)
`

const insertResultSQL = `
	INSERT INTO results (job_id, snapshot_id, source_class, url, title, text, sentiment, score)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// InsertBatch stores normalized results for one job in a single transaction
// and returns the number of rows actually written. With DedupeByURL set,
// records whose (job_id, url) pair already exists are skipped; records
// without a URL are always written.
func (r *ResultRepo) InsertBatch(ctx context.Context, params core.InsertResultsParams) (int, error) {
	if params.JobID == "" {
		return 0, ErrJobIDRequired
	}
	if len(params.Results) == 0 {
		return 0, nil
	}

	var written int
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			for _, res := range params.Results {
				query := insertResultSQL
				if params.DedupeByURL && res.URL != nil {
					query = insertResultDedupeSQL
				}
				execRes, execErr := tx.ExecContext(ctx, query,
					params.JobID,
					params.SnapshotID,
					res.SourceClass,
					res.URL,
					res.Title,
					res.Text,
					res.Sentiment,
					res.Score,
				)
				if execErr != nil {
					return fmt.Errorf("insert result: %w", execErr)
				}
				ra, raErr := execRes.RowsAffected()
				if raErr != nil {
					return fmt.Errorf("insert result rows affected: %w", raErr)
				}
				written += int(ra)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListByJobIDs returns all results for the given jobs, newest first.
func (r *ResultRepo) ListByJobIDs(ctx context.Context, jobIDs []string) ([]*model.Result, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	var results []*model.Result
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, qerr := pgxConn.Query(ctx, `
			SELECT `+resultColumns+`
			FROM results
			WHERE job_id = ANY($1::uuid[])
			ORDER BY created_at DESC
		`, jobIDs)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()

		for rows.Next() {
			res, scanErr := scanResult(rows)
			if scanErr != nil {
				return fmt.Errorf("scan result: %w", scanErr)
			}
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list results by jobs: %w", err)
	}
	return results, nil
}

// SummarizeSince counts results per sentiment created at or after the cutoff.
func (r *ResultRepo) SummarizeSince(ctx context.Context, cutoff time.Time) (*model.SentimentSummary, error) {
	var s model.SentimentSummary
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE sentiment = 'positive') AS positive,
    count(*) FILTER (WHERE sentiment = 'negative') AS negative,
    count(*) FILTER (WHERE sentiment = 'neutral')  AS neutral
  FROM results
  WHERE created_at >= $1
  `, cutoff.UTC()).Scan(
		&s.Positive,
		&s.Negative,
		&s.Neutral,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize results: %w", err)
	}
	return &s, nil
}

type resultScanner interface {
	Scan(dest ...any) error
}

func scanResult(scanner resultScanner) (*model.Result, error) {
	res := &model.Result{}
	var url, title, text sql.NullString
	var score sql.NullFloat64
	if err := scanner.Scan(
		&res.ID,
		&res.JobID,
		&res.SnapshotID,
		&res.SourceClass,
		&url,
		&title,
		&text,
		&res.Sentiment,
		&score,
		&res.CreatedAt,
	); err != nil {
		return nil, err
	}
	res.URL = cloneNullableString(url)
	res.Title = cloneNullableString(title)
	res.Text = cloneNullableString(text)
	if score.Valid {
		v := score.Float64
		res.Score = &v
	}
	return res, nil
}
