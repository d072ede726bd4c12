package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoomErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *LoomError
		want string
	}{
		{
			name: "without cause",
			err:  NewError(PLAN_INVALID, "plan failed validation"),
			want: "[PLAN_INVALID] plan failed validation",
		},
		{
			name: "with cause",
			err:  WrapError(CONFIG_LOAD_FAILED, "failed to read config file", errors.New("no such file")),
			want: "[CONFIG_LOAD_FAILED] failed to read config file: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestLoomErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(STEP_EXECUTION_FAILED, "step failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestLoomErrorIsMatchesByCode(t *testing.T) {
	err := NewError(EXECUTOR_NOT_FOUND, "agent missing")

	assert.ErrorIs(t, err, NewError(EXECUTOR_NOT_FOUND, "different message"))
	assert.NotErrorIs(t, err, NewError(EXECUTOR_CANNOT_HANDLE, "agent missing"))
}

func TestIsCode(t *testing.T) {
	inner := NewError(PLAN_PARSE_FAILED, "bad json")
	wrapped := fmt.Errorf("generation attempt 2: %w", inner)

	assert.True(t, IsCode(wrapped, PLAN_PARSE_FAILED))
	assert.False(t, IsCode(wrapped, PLAN_INVALID))
	assert.False(t, IsCode(errors.New("plain"), PLAN_INVALID))
	assert.False(t, IsCode(nil, PLAN_INVALID))
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(LLM_COMPLETION_FAILED, "provider timeout")

	require.True(t, err.Retryable)
	assert.False(t, NewError(LLM_COMPLETION_FAILED, "bad request").Retryable)
}
