package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	plain := Validation("input is bad")
	assert.Equal(t, "input is bad", plain.Error())

	cause := errors.New("boom")
	wrapped := Wrap(cause, ErrCodeInternal, "query failed")
	assert.Equal(t, "query failed: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(cause, ErrCodeInternal, "outer")
	assert.True(t, errors.Is(wrapped, cause))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
	}{
		{NotFound("missing"), IsNotFound},
		{Conflict("duplicate"), IsConflict},
		{Validation("bad"), IsValidation},
		{Unauthorized("no secret"), IsUnauthorized},
		{ForeignKey("in use"), IsForeignKey},
		{Internal("oops"), IsInternal},
	}
	for _, tt := range tests {
		t.Run(string(GetCode(tt.err)), func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := NotFound("job not found")
	outer := fmt.Errorf("claiming: %w", inner)
	assert.True(t, IsNotFound(outer))
	assert.Equal(t, ErrCodeNotFound, GetCode(outer))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("distinct_id", "must be non-empty")
	require.True(t, IsValidation(err))
	assert.Equal(t, "distinct_id", GetField(err))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestFormattedConstructors(t *testing.T) {
	assert.Equal(t, "job abc not found", NotFoundf("job %s not found", "abc").Message)
	assert.Equal(t, "run 7 exists", Conflictf("run %d exists", 7).Message)
	assert.Equal(t, "bad limit 500", Validationf("bad limit %d", 500).Message)
	assert.Equal(t, "tick 3 failed", Internalf("tick %d failed", 3).Message)
}
