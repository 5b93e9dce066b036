// Package orchestrator drives task graphs to completion with bounded
// concurrency, per-task retry, and fail-forward dependency handling.
package orchestrator

import (
	"time"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventExecutionStarted indicates a parallel group has started.
	EventExecutionStarted EventType = "parallel_execution_started"
	// EventTaskProgress reports a single task's status transition.
	EventTaskProgress EventType = "parallel_task_progress"
	// EventExecutionCompleted indicates a parallel group has drained.
	EventExecutionCompleted EventType = "parallel_execution_completed"
	// EventJobStarted indicates a plan execution has begun.
	EventJobStarted EventType = "job:started"
	// EventJobProgress reports plan-level progress between groups.
	EventJobProgress EventType = "job:progress"
	// EventJobCompleted indicates a plan finished with zero failures.
	EventJobCompleted EventType = "job:completed"
	// EventJobFailed indicates a plan finished with at least one failure.
	EventJobFailed EventType = "job:failed"
)

// Event is emitted on the orchestrator's event channel. Consumers (TUI,
// notification relays) receive these fire-and-forget; a slow consumer
// drops events rather than blocking execution.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// PlanID is the executing plan's identifier.
	PlanID string
	// OrganizationID is the tenant identifier supplied by the caller.
	OrganizationID string
	// TaskID is the related task, for task-level events.
	TaskID string
	// Status is the task status for EventTaskProgress events.
	Status string
	// Group is the zero-based parallel group index, for group events.
	Group int
	// GroupSize is the number of tasks in the group, for group events.
	GroupSize int
	// CompletedTasks counts tasks with recorded results so far.
	CompletedTasks int
	// TotalTasks counts all tasks in the plan.
	TotalTasks int
	// Err contains error details for failure events.
	Err error
	// Summary carries the final report summary on job completion events.
	Summary *models.ReportSummary
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
