// Package tui provides the terminal user interface for plan execution.
// It renders live task progress from the orchestrator's event channel.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/conduit/internal/orchestrator"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// EventMsg wraps an orchestrator event for the bubbletea loop.
type EventMsg orchestrator.Event

// eventsClosedMsg signals that the orchestrator closed its event channel.
type eventsClosedMsg struct{}

// taskRow is one task line in the progress list.
type taskRow struct {
	id     string
	status string
	errMsg string
}

// App is the bubbletea model for live plan execution.
type App struct {
	planID string
	events <-chan orchestrator.Event

	spinner spinner.Model
	rows    []taskRow
	index   map[string]int

	group          int
	completedTasks int
	totalTasks     int

	done     bool
	success  bool
	quitting bool
	width    int
}

// New creates an App reading from the given event channel.
func New(planID string, events <-chan orchestrator.Event) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	return &App{
		planID:  planID,
		events:  events,
		spinner: sp,
		index:   make(map[string]int),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.waitForEvent())
}

// waitForEvent blocks on the next orchestrator event.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.apply(orchestrator.Event(msg))
		return a, a.waitForEvent()

	case eventsClosedMsg:
		return a, tea.Quit
	}

	return a, nil
}

// apply folds one orchestrator event into the model.
func (a *App) apply(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventJobStarted:
		a.totalTasks = ev.TotalTasks

	case orchestrator.EventExecutionStarted:
		a.group = ev.Group + 1

	case orchestrator.EventTaskProgress:
		a.setTask(ev.TaskID, ev.Status, ev.Err)

	case orchestrator.EventJobProgress:
		a.completedTasks = ev.CompletedTasks

	case orchestrator.EventJobCompleted:
		a.done = true
		a.success = true

	case orchestrator.EventJobFailed:
		a.done = true
		a.success = false
	}
}

func (a *App) setTask(id, status string, err error) {
	if id == "" {
		return
	}
	i, ok := a.index[id]
	if !ok {
		a.index[id] = len(a.rows)
		a.rows = append(a.rows, taskRow{id: id})
		i = len(a.rows) - 1
	}
	a.rows[i].status = status
	if err != nil {
		a.rows[i].errMsg = err.Error()
	}
}

// Done reports whether a terminal job event has been seen, and its outcome.
func (a *App) Done() (done, success bool) {
	return a.done, a.success
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	header := titleStyle.Render(fmt.Sprintf("conduit  plan %s", a.planID))
	if a.done {
		if a.success {
			header += "  " + okStyle.Render("completed")
		} else {
			header += "  " + failStyle.Render("failed")
		}
	} else {
		header += fmt.Sprintf("  %s group %d", a.spinner.View(), a.group)
	}
	b.WriteString(header + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d/%d tasks settled", a.completedTasks, a.totalTasks)) + "\n\n")

	for _, row := range a.rows {
		b.WriteString(fmt.Sprintf("  %s %s", statusGlyph(row.status), row.id))
		if row.errMsg != "" {
			b.WriteString("  " + dimStyle.Render(row.errMsg))
		}
		b.WriteString("\n")
	}

	if !a.done {
		b.WriteString("\n" + dimStyle.Render("press q to quit") + "\n")
	}
	return b.String()
}

func statusGlyph(status string) string {
	switch status {
	case "running":
		return runningStyle.Render("●")
	case "fulfilled":
		return okStyle.Render("✓")
	case "timeout":
		return timeoutStyle.Render("◷")
	case "rejected":
		return failStyle.Render("✗")
	default:
		return dimStyle.Render("·")
	}
}
