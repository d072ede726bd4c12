package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Loom errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Plan error codes
const (
	PLAN_INVALID           ErrorCode = "PLAN_INVALID"
	PLAN_GENERATION_FAILED ErrorCode = "PLAN_GENERATION_FAILED"
	PLAN_PARSE_FAILED      ErrorCode = "PLAN_PARSE_FAILED"
	PLAN_DECODE_FAILED     ErrorCode = "PLAN_DECODE_FAILED"
)

// Execution error codes
const (
	EXECUTOR_NOT_FOUND       ErrorCode = "EXECUTOR_NOT_FOUND"
	EXECUTOR_NOT_IMPLEMENTED ErrorCode = "EXECUTOR_NOT_IMPLEMENTED"
	EXECUTOR_CANNOT_HANDLE   ErrorCode = "EXECUTOR_CANNOT_HANDLE"
	STEP_EXECUTION_FAILED    ErrorCode = "STEP_EXECUTION_FAILED"
	SCHEDULE_ABORTED         ErrorCode = "SCHEDULE_ABORTED"
)

// LLM error codes
const (
	LLM_COMPLETION_FAILED    ErrorCode = "LLM_COMPLETION_FAILED"
	LLM_PROVIDER_UNSUPPORTED ErrorCode = "LLM_PROVIDER_UNSUPPORTED"
)

// LoomError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints.
type LoomError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *LoomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *LoomError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is against sentinel LoomErrors.
func (e *LoomError) Is(target error) bool {
	var loomErr *LoomError
	if errors.As(target, &loomErr) {
		return e.Code == loomErr.Code
	}
	return false
}

// NewError creates a new non-retryable LoomError.
func NewError(code ErrorCode, message string) *LoomError {
	return &LoomError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable LoomError. Use this for
// transient failures that may succeed on retry (e.g. provider timeouts).
func NewRetryableError(code ErrorCode, message string) *LoomError {
	return &LoomError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// IsCode reports whether any error in the chain is a LoomError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var loomErr *LoomError
	if errors.As(err, &loomErr) {
		return loomErr.Code == code
	}
	return false
}

// WrapError creates a new non-retryable LoomError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *LoomError {
	return &LoomError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
