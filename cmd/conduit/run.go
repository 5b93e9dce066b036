package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/conduit/internal/config"
	"github.com/ShayCichocki/conduit/internal/planfile"
)

var (
	runTUI            bool
	runMaxConcurrency int
	runTaskTimeout    time.Duration
	runNoRetry        bool
	runRetryPreset    string
	runNoSave         bool
	runOrganizationID string
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a plan file",
	Long: `Run loads a YAML plan file and executes it to completion.

Progress is streamed to the terminal; pass --tui for a live interactive
view. The final execution report is stored so it can be inspected later
with 'conduit report'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		plan, err := planfile.Load(args[0])
		if err != nil {
			return err
		}

		report, err := executePlan(cmd.Context(), cfg, plan)
		if err != nil {
			return err
		}

		printReport(report)

		if !runNoSave {
			if err := persistReport(cfg, report); err != nil {
				return fmt.Errorf("save report: %w", err)
			}
		}

		if !report.Success {
			return fmt.Errorf("plan %s failed: %d of %d tasks did not succeed",
				report.PlanID, len(report.Summary.FailedTasks), len(report.Results))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live TUI while the plan runs")
	runCmd.Flags().IntVar(&runMaxConcurrency, "max-concurrency", 0, "Worker pool size per group (overrides config)")
	runCmd.Flags().DurationVar(&runTaskTimeout, "task-timeout", 0, "Default per-task timeout (overrides config)")
	runCmd.Flags().BoolVar(&runNoRetry, "no-retry", false, "Disable retries; every task gets one attempt")
	runCmd.Flags().StringVar(&runRetryPreset, "retry-preset", "", "Retry preset: default, aggressive, or conservative")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist the execution report")
	runCmd.Flags().StringVar(&runOrganizationID, "org", "", "Tag events with an organization ID")
}
