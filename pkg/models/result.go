package models

import "time"

// TaskResult is the outcome of one task within a plan execution.
// Created exactly once per task per run and never mutated afterwards.
type TaskResult struct {
	// TaskID is the ID of the task this result belongs to.
	TaskID string `json:"task_id"`
	// Source is the task's execution family.
	Source Source `json:"source"`
	// Success indicates whether the task produced an output.
	Success bool `json:"success"`
	// Output is the opaque value produced on success.
	Output any `json:"output,omitempty"`
	// Err holds the structured error on failure.
	Err *StructuredError `json:"error,omitempty"`
	// Duration is how long the task ran, including retries.
	Duration time.Duration `json:"duration"`
	// Retried indicates the task succeeded or failed after more than one
	// attempt.
	Retried bool `json:"retried,omitempty"`
	// Attempts is the number of attempts made.
	Attempts int `json:"attempts,omitempty"`
	// Meta carries additional execution metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// MergedResult is the output of the optional merge stage.
type MergedResult struct {
	// Strategy is the merge strategy that produced this result.
	Strategy MergeStrategy `json:"strategy"`
	// Value is the merged output. Nil when the strategy produced nothing
	// (for example all_or_nothing with failures present).
	Value any `json:"value,omitempty"`
}

// ReportSummary aggregates counts and notable task IDs for a run.
type ReportSummary struct {
	// TasksBySource counts tasks per execution family.
	TasksBySource map[Source]int `json:"tasks_by_source"`
	// GroupCount is the number of parallel groups executed.
	GroupCount int `json:"group_count"`
	// FailedTasks lists the IDs of failed tasks in plan order.
	FailedTasks []string `json:"failed_tasks"`
	// RetriedTasks lists the IDs of tasks that needed more than one
	// attempt, in plan order.
	RetriedTasks []string `json:"retried_tasks"`
}

// ExecutionReport is the orchestrator's return value for one plan run.
// The orchestrator retains no reference to it after handing it back.
type ExecutionReport struct {
	// PlanID is the ID of the executed plan.
	PlanID string `json:"plan_id"`
	// Success is true iff zero tasks failed.
	Success bool `json:"success"`
	// Results maps task ID to its result. Every submitted task is
	// represented exactly once.
	Results map[string]*TaskResult `json:"results"`
	// Merged is the optional merged result.
	Merged *MergedResult `json:"merged,omitempty"`
	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`
	// Summary aggregates per-run metadata.
	Summary ReportSummary `json:"summary"`
}
