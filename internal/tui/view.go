package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"recode/internal/registry"
	"recode/internal/textutil"
)

const (
	headerLines = 4
	footerLines = 2

	logViewLines = 14
	minListWidth = 40
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	statusStyles = map[registry.Status]lipgloss.Style{
		registry.StatusPending:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		registry.StatusChecking:     lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		registry.StatusTransferring: lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		registry.StatusReady:        lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		registry.StatusEncoding:     lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		registry.StatusSuccess:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		registry.StatusSkipped:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		registry.StatusError:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		registry.StatusCancelled:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		registry.StatusDeleted:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

func (m Model) View() string {
	if m.quitting && m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case m.showHelp:
		b.WriteString(m.renderHelp())
	case m.showLog:
		b.WriteString(m.renderLog())
	default:
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("recode"))
	b.WriteString("  ")
	b.WriteString(headerStyle.Render(m.countsLine()))
	b.WriteString("\n")

	if enc, ok := m.encodingRecord(); ok {
		b.WriteString(m.spin.View())
		b.WriteString(" Encoding ")
		b.WriteString(textutil.TruncateMiddle(enc.Name, m.listWidth()-30))
		if remaining := m.encodeRemaining(enc); remaining != "" {
			b.WriteString(headerStyle.Render("  " + remaining))
		}
		if next := m.readyNames(2); len(next) > 0 {
			b.WriteString(headerStyle.Render("  next: " + strings.Join(next, ", ")))
		}
	} else if m.done {
		if m.runErr != nil {
			b.WriteString(statusStyles[registry.StatusError].Render("Run finished with errors"))
		} else {
			b.WriteString(statusStyles[registry.StatusSuccess].Render("Run complete"))
		}
	} else if m.quitting {
		b.WriteString(statusStyles[registry.StatusCancelled].Render("Stopping..."))
	} else {
		b.WriteString(headerStyle.Render("Waiting for work"))
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(strings.Repeat("─", m.listWidth())))
	b.WriteString("\n")
	return b.String()
}

func (m Model) countsLine() string {
	total := len(m.snaps)
	parts := []string{fmt.Sprintf("%d files", total)}
	for _, status := range []registry.Status{
		registry.StatusSuccess,
		registry.StatusSkipped,
		registry.StatusError,
		registry.StatusCancelled,
		registry.StatusDeleted,
	} {
		if n := m.counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(string(status))))
		}
	}
	return strings.Join(parts, " · ")
}

// readyNames lists up to n staged files waiting behind the active encode.
func (m Model) readyNames(n int) []string {
	var names []string
	for _, snap := range m.snaps {
		if snap.Status != registry.StatusReady {
			continue
		}
		names = append(names, textutil.TruncateMiddle(snap.Name, 24))
		if len(names) == n {
			break
		}
	}
	return names
}

func (m Model) encodingRecord() (registry.Snapshot, bool) {
	for _, snap := range m.snaps {
		if snap.Status == registry.StatusEncoding {
			return snap, true
		}
	}
	return registry.Snapshot{}, false
}

// encodeRemaining formats the countdown to the per-encode deadline.
func (m Model) encodeRemaining(snap registry.Snapshot) string {
	if m.timeout <= 0 || snap.EncodeStartedAt.IsZero() {
		return ""
	}
	remaining := m.timeout - m.now.Sub(snap.EncodeStartedAt)
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%s left", remaining.Round(time.Second))
}

func (m Model) renderList() string {
	if len(m.snaps) == 0 {
		return headerStyle.Render("  No matching files found.")
	}

	page := m.pageSize()
	end := m.offset + page
	if end > len(m.snaps) {
		end = len(m.snaps)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.snaps[i], i == m.cursor))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderRow(snap registry.Snapshot, selected bool) string {
	label := snap.Status.Label()
	style, ok := statusStyles[snap.Status]
	if !ok {
		style = headerStyle
	}

	nameWidth := m.listWidth() - 36
	if nameWidth < 12 {
		nameWidth = 12
	}
	name := textutil.TruncateMiddle(snap.Name, nameWidth)

	detail := m.rowDetail(snap)
	row := fmt.Sprintf("%s %-*s %s",
		style.Render(fmt.Sprintf("%-12s", label)),
		nameWidth, name,
		headerStyle.Render(detail))
	if selected {
		return selectedStyle.Render("▸ ") + row
	}
	return "  " + row
}

// rowDetail builds the trailing column: size, reduction, or the status note.
func (m Model) rowDetail(snap registry.Snapshot) string {
	switch snap.Status {
	case registry.StatusSuccess:
		if reduction := snap.Reduction(); reduction != 0 {
			return fmt.Sprintf("%s → %s (-%.0f%%)",
				humanize.IBytes(uint64(snap.OriginalSize)),
				humanize.IBytes(uint64(snap.EncodedSize)),
				reduction*100)
		}
		return humanize.IBytes(uint64(snap.OriginalSize))
	case registry.StatusError:
		if snap.ErrorMessage != "" {
			return textutil.TruncateMiddle(snap.ErrorMessage, 48)
		}
		return snap.StatusNote
	default:
		if snap.StatusNote != "" {
			return snap.StatusNote
		}
		if snap.OriginalSize > 0 {
			return humanize.IBytes(uint64(snap.OriginalSize))
		}
		return ""
	}
}

func (m Model) renderLog() string {
	lines := m.ring.Tail(logViewLines)
	if len(lines) == 0 {
		lines = []string{"(log empty)"}
	}
	width := m.listWidth() - 4
	for i, line := range lines {
		lines[i] = textutil.TruncateMiddle(line, width)
	}
	return overlayStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	help := []string{
		"↑/k, ↓/j    move selection",
		"pgup/pgdn   page",
		"c           cancel selected file",
		"l           toggle log view",
		"h, ?        toggle this help",
		"q, ctrl+c   stop the run and quit",
	}
	return overlayStyle.Render(strings.Join(help, "\n"))
}

func (m Model) renderFooter() string {
	if m.done {
		return helpStyle.Render("run finished · press q to exit")
	}
	if m.quitting {
		return helpStyle.Render("stopping, waiting for the encoder to exit...")
	}
	return helpStyle.Render("↑/↓ select · c cancel · l log · ? help · q quit")
}

func (m Model) listWidth() int {
	if m.width < minListWidth {
		return minListWidth
	}
	return m.width
}
