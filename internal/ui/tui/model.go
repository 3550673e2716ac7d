package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/testbench/internal/orchestration"
	"github.com/imamik/testbench/internal/provisioning"
)

// RowStatus is the display state of one entity.
type RowStatus int

const (
	RowPending RowStatus = iota
	RowActive
	RowDone
	RowFailed
	RowSkipped
)

// Row is one cluster, tool installation or peering.
type Row struct {
	Stage    string
	Entity   string
	Detail   string
	Status   RowStatus
	Started  time.Time
	Duration time.Duration
}

// Model is the Bubble Tea model of the run progress view.
type Model struct {
	Title string

	// Stage is the stage currently running.
	Stage    string
	StageErr error

	// Rows keep first-seen order.
	Rows     []Row
	rowIndex map[string]int
	Warnings []string

	StartTime    time.Time
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool

	// Cancelled is set when the user quit before the run returned.
	Cancelled bool
	Summary   *orchestration.Summary
}

// NewRunModel creates a model for the up command.
func NewRunModel(title string) Model {
	return Model{
		Title:     title,
		StartTime: time.Now(),
		rowIndex:  make(map[string]int),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Cancelled = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Summary = msg.Summary
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(ev provisioning.Event) {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Type {
	case provisioning.EventStageStarted:
		m.Stage = ev.Stage
		return
	case provisioning.EventStageCompleted:
		return
	case provisioning.EventStageFailed:
		m.StageErr = ev.Err
		return
	case provisioning.EventWarning:
		warning := ev.Message
		if ev.Entity != "" {
			warning = ev.Entity + ": " + warning
		}
		m.Warnings = append(m.Warnings, warning)
		return
	}

	if ev.Entity == "" {
		return
	}
	row := m.row(ev.Stage, ev.Entity)

	switch ev.Type {
	case provisioning.EventEntityStarted:
		if row.Status != RowActive {
			row.Started = at
		}
		row.Status = RowActive
		row.Detail = ev.Message
	case provisioning.EventEntitySucceeded:
		row.Status = RowDone
		row.Detail = ev.Message
		row.Duration = at.Sub(row.Started)
		if d, err := time.ParseDuration(ev.Fields["duration"]); err == nil {
			row.Duration = d
		}
	case provisioning.EventEntityFailed:
		row.Status = RowFailed
		row.Detail = ev.Message
		if ev.Err != nil {
			row.Detail = ev.Err.Error()
		}
		if !row.Started.IsZero() {
			row.Duration = at.Sub(row.Started)
		}
	case provisioning.EventEntitySkipped:
		row.Status = RowSkipped
		row.Detail = ev.Fields["reason"]
	}
}

// row returns the row of entity in stage, adding it when unseen.
func (m *Model) row(stage, entity string) *Row {
	if m.rowIndex == nil {
		m.rowIndex = make(map[string]int)
	}
	key := stage + "/" + entity
	if i, ok := m.rowIndex[key]; ok {
		return &m.Rows[i]
	}
	m.rowIndex[key] = len(m.Rows)
	m.Rows = append(m.Rows, Row{Stage: stage, Entity: entity})
	return &m.Rows[len(m.Rows)-1]
}

// Stages lists the stages with rows, in first-seen order.
func (m Model) Stages() []string {
	var stages []string
	seen := make(map[string]bool)
	for _, r := range m.Rows {
		if !seen[r.Stage] {
			seen[r.Stage] = true
			stages = append(stages, r.Stage)
		}
	}
	return stages
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
