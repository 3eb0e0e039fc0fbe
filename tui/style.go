package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusTopic = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("214")).
				Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleUserInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleBotName = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleReply = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies where an output line came from, for styling.
type lineKind int

const (
	kindBlank lineKind = iota
	kindInput
	kindReply
	kindSystem
	kindError
	kindTrace
)

// classifySystem picks the style for a line of shell output. Failed turns
// and failed commands render as errors.
func classifySystem(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "No reply"),
		strings.HasPrefix(line, "Error:"),
		strings.Contains(line, " failed"),
		strings.HasPrefix(line, "Unknown "):
		return kindError
	default:
		return kindSystem
	}
}

// styledReply renders "name> text" with the name highlighted.
func styledReply(name, text string) string {
	return styleBotName.Render(name+">") + " " + styleReply.Render(text)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
