// Package tui provides a Bubble Tea chat UI for the parley engine.
package tui

// inputHistory remembers submitted lines for Up/Down recall. While the
// user is browsing, the line they were typing is kept as a draft and
// handed back when they move past the newest entry.
type inputHistory struct {
	lines  []string
	limit  int
	pos    int // len(lines) when not browsing
	draft  string
	browse bool
}

func newInputHistory(limit int) *inputHistory {
	return &inputHistory{lines: make([]string, 0, limit), limit: limit}
}

// push records a submitted line. Repeating the previous line is not
// recorded twice. Browsing stops.
func (h *inputHistory) push(line string) {
	if n := len(h.lines); n == 0 || h.lines[n-1] != line {
		h.lines = append(h.lines, line)
		if len(h.lines) > h.limit {
			h.lines = h.lines[len(h.lines)-h.limit:]
		}
	}
	h.reset()
}

// older moves one entry back. current is the text in the input box, saved
// as the draft when browsing starts.
func (h *inputHistory) older(current string) (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	if !h.browse {
		h.browse = true
		h.draft = current
		h.pos = len(h.lines)
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.lines[h.pos], true
}

// newer moves one entry forward. Past the newest entry it returns the
// draft and stops browsing.
func (h *inputHistory) newer() string {
	if !h.browse {
		return ""
	}
	h.pos++
	if h.pos >= len(h.lines) {
		draft := h.draft
		h.reset()
		return draft
	}
	return h.lines[h.pos]
}

func (h *inputHistory) reset() {
	h.browse = false
	h.draft = ""
	h.pos = len(h.lines)
}
