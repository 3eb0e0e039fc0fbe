package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// bot, the current topic, trace state and the turn count.
func (m Model) renderStatusBar() string {
	s := m.shell.Session

	left := fmt.Sprintf(" %s | topic: ", m.botName())
	topic := s.Topic
	var flags []string
	if m.shell.Trace {
		flags = append(flags, "trace")
	}
	if m.reloads > 0 {
		flags = append(flags, fmt.Sprintf("reloaded x%d", m.reloads))
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " | " + strings.Join(flags, ", ")
	}
	right := fmt.Sprintf("T:%d ", s.TurnCount)

	used := lipgloss.Width(left) + lipgloss.Width(topic) + lipgloss.Width(suffix) + lipgloss.Width(right)
	gap := m.width - used
	if gap < 0 {
		gap = 0
	}

	bar := styleStatusBar.Render(left) +
		styleStatusTopic.Render(topic) +
		styleStatusBar.Render(suffix+strings.Repeat(" ", gap)+right)
	return lipgloss.NewStyle().Width(m.width).Render(bar)
}
