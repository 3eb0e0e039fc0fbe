package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/parley/cli"
	"github.com/nathoo/parley/engine/events"
	"github.com/nathoo/parley/types"
)

// rawLine stores an unstyled output line so it can be re-wrapped and
// re-styled when the terminal is resized.
type rawLine struct {
	text    string
	speaker string // set for kindReply
	kind    lineKind
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx   context.Context
	shell *cli.Shell

	viewport viewport.Model
	input    textinput.Model
	history  *inputHistory

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	quitting bool
	reloads  int
}

// indexSwappedMsg is sent when the engine installs a new index, usually
// after a hot reload.
type indexSwappedMsg struct {
	topics   int
	triggers int
}

// New creates a TUI model around sh.
func New(ctx context.Context, sh *cli.Shell) Model {
	ti := textinput.New()
	ti.Prompt = "you> "
	ti.Focus()
	ti.CharLimit = 512
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		shell:   sh,
		input:   ti,
		history: newInputHistory(100),
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, sh *cli.Shell) error {
	p := tea.NewProgram(New(ctx, sh), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	sh.Engine.Subscribe(events.IndexSwapped, func(ev types.Event) {
		topics, _ := ev.Data["topics"].(int)
		triggers, _ := ev.Data["triggers"].(int)
		go p.Send(indexSwappedMsg{topics: topics, triggers: triggers})
	})
	_, err := p.Run()
	return err
}

// Init shows the greeting.
func (m Model) Init() tea.Cmd {
	greeting := fmt.Sprintf("Talking to %s. Type /help for commands.", m.botName())
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return cli.Output{System: []string{greeting}}
	})
}

// Update handles key presses, window resizes, shell output and reloads.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.older(m.input.Value()); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			m.input.SetValue(m.history.newer())
			m.input.CursorEnd()
			return m, nil

		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case cli.Output:
		m = m.appendOutput(msg)
		return m, nil

	case indexSwappedMsg:
		m.reloads++
		m = m.appendOutput(cli.Output{System: []string{
			fmt.Sprintf("Language reloaded: %d triggers in %d topics.", msg.triggers, msg.topics),
		}})
		return m, nil
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

// handleEnter runs the submitted line through the shell.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return m, nil
	}
	m.history.push(line)

	out := m.shell.Exec(m.ctx, line)
	if out.Input == "" {
		out.Input = line
	}
	m = m.appendOutput(out)
	if out.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds one exchange to the transcript and refreshes the
// viewport.
func (m Model) appendOutput(out cli.Output) Model {
	if out.Input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "you> " + out.Input, kind: kindInput})
	}
	if out.Reply != "" {
		m.rawLines = append(m.rawLines, rawLine{text: out.Reply, speaker: cli.DisplayName(out.Bot), kind: kindReply})
	}
	for _, line := range out.System {
		m.rawLines = append(m.rawLines, rawLine{text: line, kind: classifySystem(line)})
	}
	for _, line := range out.Trace {
		m.rawLines = append(m.rawLines, rawLine{text: line, kind: kindTrace})
	}

	// Blank line between exchanges.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current
// width and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		styled = append(styled, renderLine(rl, width))
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

func renderLine(rl rawLine, width int) string {
	switch rl.kind {
	case kindBlank:
		return ""
	case kindInput:
		return styleUserInput.Render(wordWrap(rl.text, width))
	case kindReply:
		prefix := rl.speaker + "> "
		wrapped := wordWrap(prefix+rl.text, width)
		return styledReply(rl.speaker, strings.TrimPrefix(wrapped, prefix))
	case kindError:
		return styleError.Render(wordWrap("["+rl.text+"]", width))
	case kindTrace:
		return styleTrace.Render(wordWrap(rl.text, width))
	default:
		if rl.text == "" {
			return ""
		}
		return styledSystemMsg(wordWrap(rl.text, width-2))
	}
}

// wordWrap wraps text to width, breaking at word boundaries. Existing
// newlines are kept.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	paragraphs := strings.Split(text, "\n")
	for i, p := range paragraphs {
		paragraphs[i] = wrapParagraph(p, width)
	}
	return strings.Join(paragraphs, "\n")
}

func wrapParagraph(text string, width int) string {
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			b.WriteString("\n")
			lineLen = len(word)
		default:
			b.WriteString(" ")
			lineLen += 1 + len(word)
		}
		b.WriteString(word)
	}
	return b.String()
}

// View renders the layout: transcript, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

func (m Model) botName() string {
	return cli.DisplayName(m.shell.Engine.BotName(m.shell.Session))
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled; those
// keys recall input history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
