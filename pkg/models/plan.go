package models

import "time"

// MergeStrategy names how per-task outputs are folded into one result.
type MergeStrategy string

const (
	// MergeNone disables the merge stage.
	MergeNone MergeStrategy = ""
	// MergeConcatSuccess concatenates the outputs of successful tasks
	// in plan order.
	MergeConcatSuccess MergeStrategy = "concat_success"
	// MergeFirstSuccess returns the first successful output in plan order.
	MergeFirstSuccess MergeStrategy = "first_success"
	// MergeAllOrNothing returns all outputs only if every task succeeded,
	// otherwise a nil merged value.
	MergeAllOrNothing MergeStrategy = "all_or_nothing"
)

// Valid returns true if the strategy is a known value.
func (m MergeStrategy) Valid() bool {
	switch m {
	case MergeNone, MergeConcatSuccess, MergeFirstSuccess, MergeAllOrNothing:
		return true
	default:
		return false
	}
}

// Plan is the unit of work the orchestrator accepts: a set of tasks
// partitioned into ordered parallel groups with a dependency map.
type Plan struct {
	// ID is the externally generated plan identifier. Used as the storage
	// key for the resulting execution report.
	ID string `json:"id" yaml:"id"`
	// Tasks is the ordered list of tasks in this plan.
	Tasks []*Task `json:"tasks" yaml:"tasks"`
	// Groups partitions task IDs into ordered parallel groups. Each group
	// runs concurrently once the previous group has fully drained. If
	// empty, groups are derived from the dependency map.
	Groups [][]string `json:"groups,omitempty" yaml:"groups,omitempty"`
	// DependsOn maps a task ID to the IDs of tasks it depends on.
	DependsOn map[string][]string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Merge selects the optional final merge strategy.
	Merge MergeStrategy `json:"merge,omitempty" yaml:"merge,omitempty"`
	// Timeout is the optional overall plan timeout. Zero means unlimited.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry optionally overrides the retry policy for every task in the
	// plan. Task-level overrides win over this.
	Retry *RetryOverride `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// Task returns the task with the given ID, or nil if not found.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TaskIDs returns the IDs of all tasks in plan order.
func (p *Plan) TaskIDs() []string {
	ids := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
