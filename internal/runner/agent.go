package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/conduit/internal/api"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// AgentRunner executes agent tasks as single Anthropic completion calls.
// Params: "prompt" (string, required), "system" (string), "model" (string),
// "max_tokens" (int).
type AgentRunner struct {
	client *api.Client
}

// NewAgentRunner creates an AgentRunner backed by the given client.
func NewAgentRunner(client *api.Client) *AgentRunner {
	return &AgentRunner{client: client}
}

// Run implements Runner. Dependency outputs are appended to the prompt as
// context so downstream agents can build on upstream results.
func (a *AgentRunner) Run(ctx context.Context, task *models.Task, deps map[string]any) (any, error) {
	prompt, _ := task.Params["prompt"].(string)
	if prompt == "" {
		return nil, fmt.Errorf("agent task %s: missing prompt param", task.ID)
	}

	req := api.CompletionRequest{
		Prompt: withDependencyContext(prompt, deps),
	}
	if system, ok := task.Params["system"].(string); ok {
		req.System = system
	}
	if model, ok := task.Params["model"].(string); ok && model != "" {
		req.Model = anthropic.Model(model)
	}
	if maxTokens, ok := intParam(task.Params["max_tokens"]); ok {
		req.MaxTokens = maxTokens
	}

	return a.client.Complete(ctx, req)
}

// withDependencyContext appends upstream outputs to the prompt in a stable
// order.
func withDependencyContext(prompt string, deps map[string]any) string {
	if len(deps) == 0 {
		return prompt
	}

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n## Upstream results\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "\n### %s\n%v\n", id, deps[id])
	}
	return b.String()
}

// intParam converts decoded YAML/JSON numbers to int64.
func intParam(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
