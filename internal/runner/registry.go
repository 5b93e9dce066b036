// Package runner maps task sources to their execution backends. The
// registry implements the orchestrator's executor contract and dispatches
// each task to the runner registered for its source family.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/conduit/internal/orchestrator"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// Runner executes tasks of one source family.
type Runner interface {
	Run(ctx context.Context, task *models.Task, deps map[string]any) (any, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task *models.Task, deps map[string]any) (any, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	return f(ctx, task, deps)
}

// Registry dispatches tasks to runners by source.
type Registry struct {
	mu      sync.RWMutex
	runners map[models.Source]Runner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[models.Source]Runner)}
}

// Register installs a runner for a source, replacing any previous one.
func (r *Registry) Register(source models.Source, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[source] = runner
}

// Execute implements orchestrator.TaskExecutor.
func (r *Registry) Execute(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	r.mu.RLock()
	runner, ok := r.runners[task.Source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no runner registered for source %q", task.Source)
	}
	return runner.Run(ctx, task, deps)
}

var _ orchestrator.TaskExecutor = (*Registry)(nil)
