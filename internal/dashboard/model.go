// Package dashboard is the live view behind `alda list --watch`.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/status"
)

const refreshInterval = 2 * time.Second

// Backend is what the dashboard needs to observe and control servers.
type Backend interface {
	List(ctx context.Context) ([]process.Record, error)
	Status(ctx context.Context, port int) (string, error)
	Stop(ctx context.Context, port int) error
	Restart(ctx context.Context, port int) error
}

type entry struct {
	rec    process.Record
	status string
}

type keyMap struct {
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Stop    key.Binding
	Restart key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Refresh: key.NewBinding(key.WithKeys("r")),
	Stop:    key.NewBinding(key.WithKeys("s")),
	Restart: key.NewBinding(key.WithKeys("R")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Model is the bubbletea model for the dashboard
type Model struct {
	ctx     context.Context
	backend Backend
	entries []entry
	cursor  int
	table   table.Model
	updated time.Time
	notice  string
	err     error

	tick func() tea.Cmd
}

// NewModel creates a new dashboard model
func NewModel(ctx context.Context, b Backend) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "PID", Width: 8},
			{Title: "Role", Width: 8},
			{Title: "Port", Width: 7},
			{Title: "Status", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return &Model{ctx: ctx, backend: b, table: t, tick: TickCmd}
}

// Init initializes the model and starts the one auto-refresh tick chain.
// Only tickMsg renews the chain; manual refreshes never start another.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh, m.tick())
}

// refresh takes a fresh process snapshot and asks each live server for status
func (m *Model) refresh() tea.Msg {
	if m.backend == nil {
		return entriesMsg{at: time.Now()}
	}
	records, err := m.backend.List(m.ctx)
	if err != nil {
		return errMsg{err: err}
	}
	status.Sort(records)

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		e := entry{rec: rec}
		if status.Live(rec) {
			body, err := m.backend.Status(m.ctx, rec.Port)
			switch {
			case err != nil:
				e.status = err.Error()
			case body == "":
				e.status = "Server down"
			default:
				e.status = body
			}
		} else {
			e.status = status.Line(rec)
		}
		entries = append(entries, e)
	}
	return entriesMsg{entries: entries, at: time.Now()}
}

type entriesMsg struct {
	entries []entry
	at      time.Time
}

type errMsg struct {
	err error
}

type noticeMsg struct {
	text string
}

type tickMsg struct{}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, keys.Refresh):
			return m, m.refresh
		case key.Matches(msg, keys.Stop):
			if rec := m.SelectedRecord(); rec != nil && status.Live(*rec) {
				m.notice = fmt.Sprintf("Stopping server on port %d...", rec.Port)
				return m, m.stop(rec.Port)
			}
		case key.Matches(msg, keys.Restart):
			if rec := m.SelectedRecord(); rec != nil && status.Live(*rec) {
				m.notice = fmt.Sprintf("Restarting server on port %d...", rec.Port)
				return m, m.restart(rec.Port)
			}
		}
	case entriesMsg:
		m.entries = msg.entries
		m.updated = msg.at
		m.err = nil
		// Ensure cursor is valid
		if m.cursor >= len(m.entries) && len(m.entries) > 0 {
			m.cursor = len(m.entries) - 1
		}
		m.syncTable()
		return m, nil
	case noticeMsg:
		m.notice = msg.text
		return m, m.refresh
	case errMsg:
		m.err = msg.err
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.refresh, m.tick())
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.entries) && len(m.entries) > 0 {
		m.cursor = len(m.entries) - 1
	}
	m.table.SetCursor(m.cursor)
}

// SelectedRecord returns the currently selected process
func (m *Model) SelectedRecord() *process.Record {
	if m.cursor >= 0 && m.cursor < len(m.entries) {
		return &m.entries[m.cursor].rec
	}
	return nil
}

func (m *Model) syncTable() {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		port := "???"
		if e.rec.HasPort() {
			port = strconv.Itoa(e.rec.Port)
		}
		rows = append(rows, table.Row{strconv.Itoa(e.rec.PID), string(e.rec.Role), port, e.status})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(m.cursor)
}

func (m *Model) stop(port int) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.Stop(m.ctx, port); err != nil {
			return errMsg{err: err}
		}
		return noticeMsg{text: fmt.Sprintf("Stopped server on port %d.", port)}
	}
}

func (m *Model) restart(port int) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.Restart(m.ctx, port); err != nil {
			return errMsg{err: err}
		}
		return noticeMsg{text: fmt.Sprintf("Restarted server on port %d.", port)}
	}
}

// View renders the dashboard
func (m *Model) View() string {
	var b strings.Builder

	records := make([]process.Record, 0, len(m.entries))
	for _, e := range m.entries {
		records = append(records, e.rec)
	}

	b.WriteString(titleStyle.Render("Alda processes"))
	b.WriteString("  " + status.Summary(records))
	if !m.updated.IsZero() {
		b.WriteString(dimStyle.Render("  (updated " + humanize.Time(m.updated) + ")"))
	}
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString("No Alda processes found.\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	} else if m.notice != "" {
		b.WriteString("\n" + m.notice + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("[s] Stop   [R] Restart   [r] Refresh   [q] Quit") + "\n")
	return b.String()
}

// TickCmd returns a command that ticks for auto-refresh
func TickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
