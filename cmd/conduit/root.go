package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conduit",
	Short: "Task graph orchestrator",
	Long: `Conduit executes plans: sets of tasks partitioned into parallel groups
with dependencies between them.

Tasks run concurrently within a group under a bounded worker pool, with
per-task timeouts and retry with exponential backoff. A failed dependency
skips its dependents but never aborts the rest of the plan; every run ends
with a full execution report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
