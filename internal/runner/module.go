package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// ModuleFunc is an in-process task implementation. It receives the task's
// params and the outputs of its dependencies.
type ModuleFunc func(ctx context.Context, params map[string]any, deps map[string]any) (any, error)

// ModuleRunner executes module tasks by dispatching to registered functions.
// Params: "module" (string, required) names the function to invoke.
type ModuleRunner struct {
	mu    sync.RWMutex
	funcs map[string]ModuleFunc
}

// NewModuleRunner creates an empty ModuleRunner.
func NewModuleRunner() *ModuleRunner {
	return &ModuleRunner{funcs: make(map[string]ModuleFunc)}
}

// RegisterFunc installs a named module function.
func (m *ModuleRunner) RegisterFunc(name string, fn ModuleFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs[name] = fn
}

// Names returns the registered module names.
func (m *ModuleRunner) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	return names
}

// Run implements Runner.
func (m *ModuleRunner) Run(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	name, _ := task.Params["module"].(string)
	if name == "" {
		return nil, fmt.Errorf("module task %s: missing module param", task.ID)
	}

	m.mu.RLock()
	fn, ok := m.funcs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("module task %s: unknown module %q", task.ID, name)
	}

	return fn(ctx, task.Params, deps)
}
