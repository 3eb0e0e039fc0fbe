package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nathoo/parley/types"
)

// ParseError reports a malformed line in a .rive file.
type ParseError struct {
	File   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Continuation join modes for "! local concat".
var concatModes = map[string]string{
	"none":    "",
	"space":   " ",
	"newline": "\n",
}

// riveParser holds the state of one file parse.
type riveParser struct {
	file   string
	line   int
	out    *Corpus
	topics []string // open topic blocks, innermost last
	concat string

	cur  int  // index of the current trigger block, or -1
	last byte // command of the previous content line
	def  string
}

// ParseRive parses a RiveScript-style text corpus. name is used in
// errors and as the File of every record.
func ParseRive(name string, r io.Reader) (*Corpus, error) {
	p := &riveParser{file: name, out: &Corpus{}, concat: " ", cur: -1}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inBlockComment := false
	for sc.Scan() {
		p.line++
		line := strings.TrimSpace(sc.Text())

		if inBlockComment {
			if strings.Contains(line, "*/") {
				inBlockComment = false
			}
			continue
		}
		if strings.HasPrefix(line, "/*") {
			inBlockComment = !strings.Contains(line, "*/")
			continue
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if i := strings.Index(line, " //"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		if err := p.parseLine(line[0], strings.TrimSpace(line[1:])); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(p.topics) > 0 {
		return nil, p.errorf("topic %q is never closed", p.topics[len(p.topics)-1])
	}
	return p.out, nil
}

func (p *riveParser) errorf(format string, args ...any) *ParseError {
	return &ParseError{File: p.file, Line: p.line, Reason: fmt.Sprintf(format, args...)}
}

// trig returns the current trigger block, or nil outside one.
func (p *riveParser) trig() *TriggerDef {
	if p.cur < 0 {
		return nil
	}
	return &p.out.Triggers[p.cur]
}

func (p *riveParser) topic() string {
	if len(p.topics) == 0 {
		return types.BaselineTopic
	}
	return p.topics[len(p.topics)-1]
}

func (p *riveParser) parseLine(cmd byte, rest string) error {
	prev := p.last
	if cmd != '^' {
		p.last = cmd
	}

	switch cmd {
	case '!':
		return p.definition(rest)

	case '>':
		return p.openBlock(rest)

	case '<':
		if rest != "topic" {
			return p.errorf("unsupported block close %q", rest)
		}
		if len(p.topics) == 0 {
			return p.errorf("< topic without an open topic")
		}
		p.topics = p.topics[:len(p.topics)-1]
		p.cur = -1
		return nil

	case '+':
		if rest == "" {
			return p.errorf("empty trigger")
		}
		if t := p.trig(); prev == '+' && t != nil {
			t.Patterns = append(t.Patterns, rest)
			return nil
		}
		p.out.Triggers = append(p.out.Triggers, TriggerDef{
			Topic:    p.topic(),
			Patterns: []string{rest},
			File:     p.file,
			Line:     p.line,
		})
		p.cur = len(p.out.Triggers) - 1
		return nil

	case '-':
		t := p.trig()
		if t == nil {
			return p.errorf("reply without a trigger")
		}
		text, weight, err := splitWeight(rest)
		if err != nil {
			return p.errorf("%v", err)
		}
		t.Replies = append(t.Replies, ReplyDef{Text: text, Weight: weight})
		return nil

	case '@':
		t := p.trig()
		if t == nil {
			return p.errorf("redirect without a trigger")
		}
		t.Replies = append(t.Replies, ReplyDef{Text: "{@ " + rest + "}", Weight: 1})
		return nil

	case '*':
		t := p.trig()
		if t == nil {
			return p.errorf("condition without a trigger")
		}
		expr, reply, ok := strings.Cut(rest, "=>")
		if !ok {
			return p.errorf("condition %q has no =>", rest)
		}
		t.Conditions = append(t.Conditions, ConditionDef{
			Expr:  strings.TrimSpace(expr),
			Reply: strings.TrimSpace(reply),
			Line:  p.line,
		})
		return nil

	case '^':
		return p.continuation(rest)

	default:
		return p.errorf("unknown command %q", string(cmd))
	}
}

// definition handles "! type name = value".
func (p *riveParser) definition(rest string) error {
	kind, body, _ := strings.Cut(rest, " ")
	left, value, ok := strings.Cut(body, "=")
	if !ok {
		if kind == "version" {
			return nil
		}
		return p.errorf("definition %q has no =", rest)
	}
	name := strings.TrimSpace(left)
	value = strings.TrimSpace(value)
	p.def = kind

	switch kind {
	case "array":
		p.out.Sets = append(p.out.Sets, SetDef{
			Name:    strings.ToLower(name),
			Members: splitMembers(value),
			File:    p.file,
			Line:    p.line,
		})
	case "var":
		p.out.Vars = append(p.out.Vars, VarDef{Name: name, Value: value, File: p.file, Line: p.line})
	case "local":
		if name != "concat" {
			return nil
		}
		sep, ok := concatModes[value]
		if !ok {
			return p.errorf("unknown concat mode %q", value)
		}
		p.concat = sep
	case "version", "global", "sub", "person":
		// Accepted and ignored.
	default:
		return p.errorf("unknown definition type %q", kind)
	}
	return nil
}

// openBlock handles "> topic name [inherits a b] [exclusive]".
func (p *riveParser) openBlock(rest string) error {
	fields := strings.Fields(strings.ToLower(rest))
	if len(fields) < 2 || fields[0] != "topic" {
		return p.errorf("unsupported block %q", rest)
	}
	def := TopicDef{Name: fields[1], File: p.file, Line: p.line}
	if len(p.topics) > 0 {
		def.Parent = p.topic()
	}

	mode := ""
	for _, f := range fields[2:] {
		switch f {
		case "inherits", "includes":
			mode = f
		case "exclusive":
			def.Exclusive = true
		default:
			if mode == "" {
				return p.errorf("unexpected %q in topic declaration", f)
			}
			def.Inherits = append(def.Inherits, f)
		}
	}

	p.out.Topics = append(p.out.Topics, def)
	p.topics = append(p.topics, def.Name)
	p.cur = -1
	return nil
}

// continuation appends rest to whatever the previous line started.
func (p *riveParser) continuation(rest string) error {
	t := p.trig()
	switch {
	case p.last == '+' && t != nil:
		n := len(t.Patterns) - 1
		t.Patterns[n] += " " + rest
	case p.last == '-' && t != nil:
		n := len(t.Replies) - 1
		text, weight, err := splitWeight(t.Replies[n].Text + p.concat + rest)
		if err != nil {
			return p.errorf("%v", err)
		}
		if weight == 1 {
			weight = t.Replies[n].Weight
		}
		t.Replies[n] = ReplyDef{Text: text, Weight: weight}
	case p.last == '*' && t != nil:
		n := len(t.Conditions) - 1
		t.Conditions[n].Reply += p.concat + rest
	case p.last == '!' && p.def == "array" && len(p.out.Sets) > 0:
		n := len(p.out.Sets) - 1
		p.out.Sets[n].Members = append(p.out.Sets[n].Members, splitMembers(rest)...)
	case p.last == '!' && p.def == "var" && len(p.out.Vars) > 0:
		p.out.Vars[len(p.out.Vars)-1].Value += " " + rest
	default:
		return p.errorf("continuation without a preceding line")
	}
	return nil
}

// splitWeight extracts a {weight=N} tag from a reply.
func splitWeight(text string) (string, int, error) {
	const tag = "{weight="
	i := strings.Index(text, tag)
	if i < 0 {
		return text, 1, nil
	}
	j := strings.Index(text[i:], "}")
	if j < 0 {
		return "", 0, fmt.Errorf("unterminated weight tag in %q", text)
	}
	n, err := strconv.Atoi(strings.TrimSpace(text[i+len(tag) : i+j]))
	if err != nil {
		return "", 0, fmt.Errorf("bad weight in %q", text)
	}
	return strings.TrimSpace(text[:i] + text[i+j+1:]), n, nil
}

// splitMembers splits an array value on "|" when present, else on
// whitespace.
func splitMembers(value string) []string {
	var parts []string
	if strings.Contains(value, "|") {
		parts = strings.Split(value, "|")
	} else {
		parts = strings.Fields(value)
	}
	out := parts[:0]
	for _, m := range parts {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
