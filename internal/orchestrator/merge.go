package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// Merge folds per-task results into one value according to the strategy.
// It is a pure function of its inputs and never re-executes tasks. Results
// must be passed in plan order; the orchestrator guarantees this.
func Merge(results []*models.TaskResult, strategy models.MergeStrategy) (*models.MergedResult, error) {
	switch strategy {
	case models.MergeNone:
		return nil, nil

	case models.MergeConcatSuccess:
		var outputs []any
		for _, r := range results {
			if r.Success {
				outputs = append(outputs, r.Output)
			}
		}
		return &models.MergedResult{Strategy: strategy, Value: outputs}, nil

	case models.MergeFirstSuccess:
		for _, r := range results {
			if r.Success {
				return &models.MergedResult{Strategy: strategy, Value: r.Output}, nil
			}
		}
		return &models.MergedResult{Strategy: strategy}, nil

	case models.MergeAllOrNothing:
		outputs := make([]any, 0, len(results))
		for _, r := range results {
			if !r.Success {
				return &models.MergedResult{Strategy: strategy}, nil
			}
			outputs = append(outputs, r.Output)
		}
		return &models.MergedResult{Strategy: strategy, Value: outputs}, nil

	default:
		return nil, fmt.Errorf("unknown merge strategy %q", strategy)
	}
}
