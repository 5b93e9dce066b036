package models

import "fmt"

// ErrorCode classifies a task failure for callers.
type ErrorCode string

const (
	// ErrCodeDependencyFailed means an upstream dependency did not succeed,
	// so the task was skipped without executing.
	ErrCodeDependencyFailed ErrorCode = "dependency_failed"
	// ErrCodeTimeout means the task did not settle before its timeout.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeExecutionFailed means the task's operation returned a terminal
	// error (non-retryable or retries exhausted).
	ErrCodeExecutionFailed ErrorCode = "execution_failed"
)

// StructuredError is the caller-visible error recorded on a failed task.
type StructuredError struct {
	// Code is the error classification.
	Code ErrorCode `json:"code"`
	// Message is the human-readable failure description.
	Message string `json:"message"`
	// Retryable indicates whether the underlying failure was of a
	// retryable kind. A recorded error is always terminal for this run;
	// the flag tells the caller whether resubmitting the plan could help.
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
