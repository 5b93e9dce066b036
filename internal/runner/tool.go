package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ShayCichocki/conduit/internal/retry"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns combined stdout/stderr output.
func (ExecRunner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd.CombinedOutput()
}

var _ CommandRunner = ExecRunner{}

// ToolRunner executes tool tasks as external commands.
// Params: "command" (string, required), "args" ([]string), "dir" (string).
type ToolRunner struct {
	workDir string
	exec    CommandRunner
}

// NewToolRunner creates a ToolRunner rooted at workDir.
func NewToolRunner(workDir string) *ToolRunner {
	return &ToolRunner{workDir: workDir, exec: ExecRunner{}}
}

// Run implements Runner. A non-zero exit comes back as a tool_failure so
// the retry engine can decide whether the policy covers it.
func (t *ToolRunner) Run(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	command, _ := task.Params["command"].(string)
	if command == "" {
		return nil, fmt.Errorf("tool task %s: missing command param", task.ID)
	}

	args, err := stringSlice(task.Params["args"])
	if err != nil {
		return nil, fmt.Errorf("tool task %s: %w", task.ID, err)
	}

	dir := t.workDir
	if override, ok := task.Params["dir"].(string); ok && override != "" {
		dir = override
	}

	output, runErr := t.exec.Run(ctx, dir, command, args...)
	text := strings.TrimRight(string(output), "\n")
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, &retry.ClassifiedError{
				ErrKind: retry.KindToolFailure,
				Err:     fmt.Errorf("%s exited %d: %s", command, exitErr.ExitCode(), excerpt(text)),
			}
		}
		return nil, fmt.Errorf("run %s: %w", command, runErr)
	}

	return text, nil
}

// stringSlice converts a decoded YAML/JSON list into []string.
func stringSlice(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	switch vs := v.(type) {
	case []string:
		return vs, nil
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("args must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("args must be a list, got %T", v)
	}
}

// excerpt keeps error messages readable when a tool dumps a lot of output.
func excerpt(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
