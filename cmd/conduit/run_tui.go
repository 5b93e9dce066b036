package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/conduit/internal/orchestrator"
	"github.com/ShayCichocki/conduit/internal/tui"
	"github.com/ShayCichocki/conduit/pkg/models"
)

// executePlanTUI runs the plan with a live bubbletea view attached to the
// orchestrator's event channel.
func executePlanTUI(ctx context.Context, o *orchestrator.Orchestrator, plan *models.Plan) (*models.ExecutionReport, error) {
	type outcome struct {
		report *models.ExecutionReport
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		report, err := o.Orchestrate(ctx, plan)
		o.Close()
		done <- outcome{report: report, err: err}
	}()

	app := tui.New(plan.ID, o.Events())
	if _, err := tea.NewProgram(app).Run(); err != nil {
		// The TUI failing must not lose the run; fall through and wait
		// for the orchestrator.
		fmt.Printf("tui error: %v\n", err)
	}

	out := <-done
	return out.report, out.err
}
