// Package tui renders the discovery pipeline's event stream as a live
// terminal view: one row per target, updated as its search starts and
// finishes.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jobsift/jobsift/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // bright blue

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // green

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)
)

const (
	statusPending = iota
	statusSearching
	statusDone
	statusError
)

type targetRow struct {
	target model.Target
	status int
	found  int
	new    int
	errMsg string
}

// eventMsg carries one pipeline event into the bubbletea loop.
type eventMsg model.ProgressEvent

// streamClosedMsg is sent when the pipeline closes its channel.
type streamClosedMsg struct{}

// Model is the bubbletea model for one discovery run.
type Model struct {
	role    string
	events  <-chan model.ProgressEvent
	spin    spinner.Model
	rows    []targetRow
	phase   string // "research", "search", "done", "failed"
	failMsg string
	total   int
}

// New creates a stream viewer for the given role and event channel.
func New(role string, events <-chan model.ProgressEvent) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return Model{
		role:   role,
		events: events,
		spin:   sp,
		phase:  "research",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan model.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case streamClosedMsg:
		return m, tea.Quit

	case eventMsg:
		m.apply(model.ProgressEvent(msg))
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m *Model) apply(ev model.ProgressEvent) {
	switch ev.Kind {
	case model.EventTargetsFound:
		m.phase = "search"
		m.rows = make([]targetRow, len(ev.Targets))
		for i, t := range ev.Targets {
			m.rows[i] = targetRow{target: t, status: statusPending}
		}

	case model.EventTargetSearchStarted:
		if ev.Index < len(m.rows) {
			m.rows[ev.Index].status = statusSearching
		}

	case model.EventTargetSearchFinished:
		if ev.Index < len(m.rows) && ev.Result != nil {
			row := &m.rows[ev.Index]
			row.found = ev.Result.Found
			row.new = ev.Result.New
			if ev.Result.Status == "error" {
				row.status = statusError
				row.errMsg = ev.Result.Err
			} else {
				row.status = statusDone
			}
		}

	case model.EventRunComplete:
		m.phase = "done"
		m.total = ev.TotalNew

	case model.EventRunFailed:
		m.phase = "failed"
		m.failMsg = ev.Message
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("jobsift discovery: " + m.role))
	b.WriteString("\n\n")

	if m.phase == "research" {
		b.WriteString(m.spin.View() + " researching target companies...\n")
		return b.String()
	}
	if m.phase == "failed" && len(m.rows) == 0 {
		b.WriteString(errStyle.Render("✗ "+m.failMsg) + "\n")
		return b.String()
	}

	for _, row := range m.rows {
		switch row.status {
		case statusPending:
			b.WriteString(dimStyle.Render("  · " + row.target.Name))
		case statusSearching:
			b.WriteString(m.spin.View() + " " + row.target.Name +
				dimStyle.Render("  "+row.target.Industry))
		case statusDone:
			b.WriteString(doneStyle.Render("  ✓ ") + row.target.Name +
				dimStyle.Render(fmt.Sprintf("  found %d, new %d", row.found, row.new)))
		case statusError:
			b.WriteString(errStyle.Render("  ✗ ") + row.target.Name +
				dimStyle.Render("  "+row.errMsg))
		}
		b.WriteString("\n")
	}

	switch m.phase {
	case "done":
		b.WriteString(summaryStyle.Render(fmt.Sprintf("Done. %d new listings saved.", m.total)) + "\n")
	case "failed":
		b.WriteString(summaryStyle.Render(errStyle.Render("Run failed: "+m.failMsg)) + "\n")
	default:
		b.WriteString(dimStyle.Render("\npress q to abort") + "\n")
	}
	return b.String()
}
