package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.Nil(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	require.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestMapDBError_UniqueViolation_ActiveTarget(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "targets_distinct_id_active_idx",
		Detail:         `Key (distinct_id)=(user_42) already exists.`,
	}
	err := MapDBError(pgErr)
	require.True(t, IsConflict(err))
	assert.Equal(t, "distinct_id", GetField(err))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "target is already active", appErr.Message)
}

func TestMapDBError_UniqueViolation_GenericConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "jobs_pkey",
	}
	err := MapDBError(pgErr)
	require.True(t, IsConflict(err))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "value already exists", appErr.Message)
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:      pgerrcode.ForeignKeyViolation,
		TableName: "results",
	}
	err := MapDBError(pgErr)
	require.True(t, IsForeignKey(err))
	assert.Contains(t, err.Error(), "job")
}

func TestMapDBError_CheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.CheckViolation,
		ConstraintName: "jobs_status_check",
	}
	err := MapDBError(pgErr)
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "jobs_status_check")
}

func TestMapDBError_NotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "distinct_id",
	}
	err := MapDBError(pgErr)
	require.True(t, IsValidation(err))
	assert.Equal(t, "distinct_id", GetField(err))
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	assert.True(t, IsInternal(MapDBError(pgErr)))
}

func TestMapDBError_PassthroughNonDBError(t *testing.T) {
	plain := errors.New("socket closed")
	assert.Equal(t, plain, MapDBError(plain))
}
