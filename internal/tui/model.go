// Package tui renders the interactive pipeline display with bubbletea. The
// model only reads registry snapshots and writes cancellation flags; all
// pipeline work happens in the manager's goroutines.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"recode/internal/logging"
	"recode/internal/pipeline"
	"recode/internal/registry"
)

type changedMsg struct{}

type doneMsg struct{ err error }

type tickMsg time.Time

// Model is the bubbletea model for a run.
type Model struct {
	reg       *registry.Registry
	ring      *logging.Ring
	timeout   time.Duration
	cancelRun context.CancelFunc
	runDone   <-chan error

	snaps  []registry.Snapshot
	counts map[registry.Status]int

	cursor int
	offset int
	width  int
	height int

	spin     spinner.Model
	showLog  bool
	showHelp bool
	quitting bool
	done     bool
	runErr   error
	now      time.Time
}

// New builds the display model. runDone delivers the pipeline result once;
// cancelRun stops the pipeline when the user quits.
func New(reg *registry.Registry, ring *logging.Ring, timeout time.Duration, cancelRun context.CancelFunc, runDone <-chan error) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		reg:       reg,
		ring:      ring,
		timeout:   timeout,
		cancelRun: cancelRun,
		runDone:   runDone,
		counts:    map[registry.Status]int{},
		spin:      spin,
		now:       time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		waitForChange(m.reg.Changes()),
		waitForDone(m.runDone),
		tick(),
	)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func waitForDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-done}
	}
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.reg.Changes())

	case doneMsg:
		m.done = true
		m.runErr = msg.err
		m.refresh()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.done {
			m.quitting = true
			return m, tea.Quit
		}
		// Stop the pipeline and wait for the in-flight encode to reach a
		// terminal state before leaving the screen.
		m.quitting = true
		m.cancelRun()
		return m, nil

	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.pageSize())
	case "pgdown":
		m.moveCursor(m.pageSize())

	case "c":
		if snap, ok := m.selected(); ok {
			m.reg.RequestCancel(snap.ID)
		}

	case "l":
		m.showLog = !m.showLog
		m.showHelp = false
	case "h", "?":
		m.showHelp = !m.showHelp
		m.showLog = false
	}
	return m, nil
}

func (m *Model) refresh() {
	m.snaps = m.reg.Snapshot()
	m.counts = m.reg.Counts()
	m.clampScroll()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampScroll()
}

func (m *Model) clampScroll() {
	if m.cursor < 0 {
		m.cursor = 0
	}
	if max := len(m.snaps) - 1; m.cursor > max {
		m.cursor = max
		if m.cursor < 0 {
			m.cursor = 0
		}
	}

	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) selected() (registry.Snapshot, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snaps) {
		return registry.Snapshot{}, false
	}
	return m.snaps[m.cursor], true
}

// pageSize is the number of list rows that fit between header and footer.
func (m *Model) pageSize() int {
	rows := m.height - headerLines - footerLines
	if rows < 1 {
		return 1
	}
	return rows
}

// Run drives the pipeline under the interactive display and blocks until
// the user quits or the run finishes and the user dismisses the screen.
func Run(ctx context.Context, mgr *pipeline.Manager, ring *logging.Ring) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- mgr.Run(runCtx)
	}()

	model := New(mgr.Registry(), ring, mgr.EncodeTimeout(), cancel, done)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		cancel()
		<-done
		return err
	}

	if m, ok := final.(Model); ok && m.done {
		return m.runErr
	}
	cancel()
	return <-done
}
