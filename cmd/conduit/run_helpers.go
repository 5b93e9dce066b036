package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/ShayCichocki/conduit/internal/api"
	"github.com/ShayCichocki/conduit/internal/config"
	"github.com/ShayCichocki/conduit/internal/orchestrator"
	"github.com/ShayCichocki/conduit/internal/retry"
	"github.com/ShayCichocki/conduit/internal/runner"
	"github.com/ShayCichocki/conduit/internal/state"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// buildRegistry wires a runner for every task source.
func buildRegistry(cfg *config.Config) *runner.Registry {
	reg := runner.NewRegistry()

	workDir, _ := os.Getwd()
	reg.Register(models.SourceTool, runner.NewToolRunner(workDir))

	mod := runner.NewModuleRunner()
	registerBuiltinModules(mod)
	reg.Register(models.SourceModule, mod)

	// The agent runner needs credentials; plans without agent tasks must
	// still run when none are configured, so a failed client setup is
	// deferred to first use.
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		setupErr := err
		reg.Register(models.SourceAgent, runner.RunnerFunc(
			func(context.Context, *models.Task, map[string]any) (any, error) {
				return nil, fmt.Errorf("agent tasks unavailable: %w", setupErr)
			}))
	} else {
		reg.Register(models.SourceAgent, runner.NewAgentRunner(client))
	}

	return reg
}

// registerBuiltinModules installs the module functions available to plan
// files out of the box.
func registerBuiltinModules(mod *runner.ModuleRunner) {
	mod.RegisterFunc("echo", func(_ context.Context, params map[string]any, _ map[string]any) (any, error) {
		return params["value"], nil
	})
	mod.RegisterFunc("sleep", func(ctx context.Context, params map[string]any, _ map[string]any) (any, error) {
		raw, _ := params["duration"].(string)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("sleep: invalid duration %q", raw)
		}
		select {
		case <-time.After(d):
			return raw, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	mod.RegisterFunc("collect", func(_ context.Context, _ map[string]any, deps map[string]any) (any, error) {
		return deps, nil
	})
}

// newOrchestrator builds an orchestrator from config and run flags.
func newOrchestrator(cfg *config.Config, executor orchestrator.TaskExecutor) *orchestrator.Orchestrator {
	maxConcurrency := cfg.Defaults.MaxConcurrency
	if runMaxConcurrency > 0 {
		maxConcurrency = runMaxConcurrency
	}
	taskTimeout := cfg.Defaults.TaskTimeout
	if runTaskTimeout > 0 {
		taskTimeout = runTaskTimeout
	}
	preset := cfg.Defaults.RetryPreset
	if runRetryPreset != "" {
		preset = runRetryPreset
	}

	workDir, _ := os.Getwd()
	opts := []orchestrator.Option{
		orchestrator.WithMaxConcurrency(maxConcurrency),
		orchestrator.WithDefaultTimeout(taskTimeout),
		orchestrator.WithRetryPolicy(retry.PolicyByName(preset)),
		orchestrator.WithLogger(orchestrator.NewDebugLoggerForDir(workDir)),
	}
	if runNoRetry {
		opts = append(opts, orchestrator.WithRetryDisabled())
	}
	if runOrganizationID != "" {
		opts = append(opts, orchestrator.WithOrganizationID(runOrganizationID))
	}

	return orchestrator.New(executor, opts...)
}

// executePlan runs a plan with either the plain console stream or the TUI.
func executePlan(ctx context.Context, cfg *config.Config, plan *models.Plan) (*models.ExecutionReport, error) {
	o := newOrchestrator(cfg, buildRegistry(cfg))

	if runTUI {
		return executePlanTUI(ctx, o, plan)
	}

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		for ev := range o.Events() {
			printEvent(ev)
		}
	}()

	report, err := o.Orchestrate(ctx, plan)
	o.Close()
	<-streamDone
	return report, err
}

// printEvent renders one orchestrator event as a console line.
func printEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventJobStarted:
		fmt.Printf("%s plan %s (%d tasks)\n", color.CyanString("▶"), ev.PlanID, ev.TotalTasks)
	case orchestrator.EventExecutionStarted:
		fmt.Printf("%s group %d (%d tasks)\n", color.CyanString("•"), ev.Group+1, ev.GroupSize)
	case orchestrator.EventTaskProgress:
		switch ev.Status {
		case "fulfilled":
			fmt.Printf("  %s %s\n", color.GreenString("✓"), ev.TaskID)
		case "timeout":
			fmt.Printf("  %s %s timed out\n", color.YellowString("◷"), ev.TaskID)
		case "rejected":
			if ev.Err != nil {
				fmt.Printf("  %s %s: %v\n", color.RedString("✗"), ev.TaskID, ev.Err)
			} else {
				fmt.Printf("  %s %s\n", color.RedString("✗"), ev.TaskID)
			}
		}
	case orchestrator.EventJobCompleted:
		fmt.Printf("%s plan %s completed\n", color.GreenString("✓"), ev.PlanID)
	case orchestrator.EventJobFailed:
		fmt.Printf("%s plan %s failed\n", color.RedString("✗"), ev.PlanID)
	}
}

// printReport renders the final per-task summary.
func printReport(report *models.ExecutionReport) {
	fmt.Println()
	ids := make([]string, 0, len(report.Results))
	for id := range report.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		res := report.Results[id]
		switch {
		case res.Success:
			line := fmt.Sprintf("  %s %-20s %s", color.GreenString("✓"), id, res.Duration.Round(time.Millisecond))
			if res.Retried {
				line += color.YellowString("  (%d attempts)", res.Attempts)
			}
			fmt.Println(line)
		case res.Err != nil:
			fmt.Printf("  %s %-20s %s: %s\n", color.RedString("✗"), id, res.Err.Code, res.Err.Message)
		}
	}

	fmt.Printf("\n%d groups, %d tasks, %s total\n",
		report.Summary.GroupCount, len(report.Results), report.Duration.Round(time.Millisecond))
}

// persistReport stores the report in the configured database.
func persistReport(cfg *config.Config, report *models.ExecutionReport) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	if cfg.Store.RetainFor > 0 {
		if _, err := db.PurgeOldReports(cfg.Store.RetainFor); err != nil {
			return err
		}
	}
	return db.SaveReport(report)
}

// openStore opens the global or project database per config.
func openStore(cfg *config.Config) (*state.DB, error) {
	if cfg.Store.Scope == "global" {
		return state.OpenGlobal()
	}
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return state.OpenProject(workDir)
}
