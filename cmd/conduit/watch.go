package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/conduit/internal/config"
	"github.com/ShayCichocki/conduit/internal/planfile"
	"github.com/ShayCichocki/conduit/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-run plan files when they change",
	Long: `Watch monitors a directory of plan files and re-executes a plan
whenever its file is created or saved. The directory defaults to the
watch.dir config value. Press ctrl+c to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dir := cfg.Watch.Dir
		if len(args) == 1 {
			dir = args[0]
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("watch: %s is not a directory", dir)
		}

		w, err := watch.New(dir, cfg.Watch.Debounce)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := w.Start(ctx)
		if err != nil {
			return err
		}
		defer w.Stop()

		fmt.Printf("%s watching %s for plan changes\n", color.CyanString("▶"), dir)

		for {
			select {
			case <-ctx.Done():
				fmt.Println("\nstopping watch")
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				switch ev.Type {
				case watch.EventRemoved:
					fmt.Printf("%s %s removed\n", color.YellowString("•"), filepath.Base(ev.Path))
				case watch.EventChanged:
					runWatchedPlan(cmd, cfg, ev.Path)
				}
			}
		}
	},
}

// runWatchedPlan executes one plan file. Errors are reported but never stop
// the watch loop.
func runWatchedPlan(cmd *cobra.Command, cfg *config.Config, path string) {
	fmt.Printf("\n%s %s changed, running\n", color.CyanString("▶"), filepath.Base(path))

	plan, err := planfile.Load(path)
	if err != nil {
		fmt.Printf("%s %s: %v\n", color.RedString("✗"), filepath.Base(path), err)
		return
	}

	report, err := executePlan(cmd.Context(), cfg, plan)
	if err != nil {
		fmt.Printf("%s %s: %v\n", color.RedString("✗"), plan.ID, err)
		return
	}

	printReport(report)

	if err := persistReport(cfg, report); err != nil {
		fmt.Printf("%s save report: %v\n", color.RedString("✗"), err)
	}
}
