package models

import "time"

// Source identifies the execution family a task belongs to.
type Source string

const (
	// SourceAgent is a call to an external AI agent.
	SourceAgent Source = "agent"
	// SourceTool is an internal tool invocation.
	SourceTool Source = "tool"
	// SourceModule is an in-process module execution.
	SourceModule Source = "module"
)

// Valid returns true if the source is a known value.
func (s Source) Valid() bool {
	switch s {
	case SourceAgent, SourceTool, SourceModule:
		return true
	default:
		return false
	}
}

// RetryOverride customizes retry behavior for a single task.
// Zero-valued fields inherit from the plan or global policy.
type RetryOverride struct {
	// Preset selects a named policy (default, aggressive, conservative).
	Preset string `json:"preset,omitempty" yaml:"preset,omitempty"`
	// MaxAttempts overrides the maximum attempt count if > 0.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// BaseDelay overrides the initial backoff delay if > 0.
	BaseDelay time.Duration `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
	// MaxDelay overrides the backoff delay cap if > 0.
	MaxDelay time.Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
	// BackoffMultiplier overrides the exponential growth factor if > 0.
	BackoffMultiplier float64 `json:"backoff_multiplier,omitempty" yaml:"backoff_multiplier,omitempty"`
	// JitterFactor overrides the jitter fraction (0..1) if > 0.
	JitterFactor float64 `json:"jitter_factor,omitempty" yaml:"jitter_factor,omitempty"`
	// RetryableKinds overrides the set of retryable error kinds if non-empty.
	RetryableKinds []string `json:"retryable_kinds,omitempty" yaml:"retryable_kinds,omitempty"`
}

// Task represents a single unit of work within a plan.
// Tasks are immutable once submitted; the orchestrator never mutates them.
type Task struct {
	// ID is the unique identifier for this task within its plan.
	ID string `json:"id" yaml:"id"`
	// Source is the execution family this task belongs to.
	Source Source `json:"source" yaml:"source"`
	// Params is the opaque parameter bag passed to the task's executor.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	// Timeout is the per-task execution timeout. Zero means use the
	// orchestrator's default timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Priority orders tasks within a group; higher runs first.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
	// Retry optionally overrides the retry policy for this task.
	Retry *RetryOverride `json:"retry,omitempty" yaml:"retry,omitempty"`
}
