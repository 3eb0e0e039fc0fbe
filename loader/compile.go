// Package loader reads corpus scripts (.rive text and sandboxed .lua) and
// compiles them into an immutable state.Index. Lua VMs are discarded
// after loading; nothing script-side runs at reply time.
package loader

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/parley/engine/concepts"
	"github.com/nathoo/parley/engine/pattern"
	"github.com/nathoo/parley/engine/reply"
	"github.com/nathoo/parley/engine/rules"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

// Problem is one compile error or warning with its source position.
type Problem struct {
	File string
	Line int
	Msg  string
}

func (p Problem) String() string {
	if p.File == "" {
		return p.Msg
	}
	return fmt.Sprintf("%s:%d: %s", p.File, p.Line, p.Msg)
}

// CompileError collects every error found while compiling a corpus.
// Warnings are reported alongside but never fail compilation on their own.
type CompileError struct {
	Errors   []Problem
	Warnings []Problem
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Errors))
	for i, p := range e.Errors {
		lines[i] = p.String()
	}
	return fmt.Sprintf("compile failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(lines, "\n  "))
}

func (e *CompileError) errorf(file string, line int, format string, args ...any) {
	e.Errors = append(e.Errors, Problem{File: file, Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (e *CompileError) warnf(file string, line int, format string, args ...any) {
	e.Warnings = append(e.Warnings, Problem{File: file, Line: line, Msg: fmt.Sprintf(format, args...)})
}

// Option configures loading and compilation.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used for warnings and load summaries.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile builds an Index from c. Every problem is collected; if any is an
// error, no index is returned and the error is a *CompileError.
func Compile(c *Corpus, opts ...Option) (*state.Index, error) {
	o := buildOptions(opts)
	ce := &CompileError{}

	sets := compileSets(c, ce)

	idx := &state.Index{
		Topics:   map[string]*types.Topic{types.BaselineTopic: {Name: types.BaselineTopic}},
		Concepts: sets,
		Bot:      map[string]string{},
	}

	// Bot defaults: later declarations win.
	for _, v := range c.Vars {
		idx.Bot[v.Name] = v.Value
	}

	declared := compileTopics(c, idx, ce)
	compileTriggers(c, idx, ce)
	validate(idx, c, declared, ce)

	for _, w := range ce.Warnings {
		o.log.Warn("corpus warning",
			zap.String("file", w.File),
			zap.Int("line", w.Line),
			zap.String("problem", w.Msg))
	}
	if len(ce.Errors) > 0 {
		return nil, ce
	}
	return idx, nil
}

// compileSets builds the concept table. Redefining a set replaces it.
func compileSets(c *Corpus, ce *CompileError) *concepts.Table {
	raw := map[string][]string{}
	where := map[string]SetDef{}
	for _, s := range c.Sets {
		name := strings.ToLower(s.Name)
		raw[name] = s.Members
		where[name] = s
	}

	sets, err := concepts.New(raw)
	if err == nil {
		return sets
	}
	var unknown *concepts.UnknownSetError
	if errors.As(err, &unknown) {
		s := where[unknown.In]
		ce.errorf(s.File, s.Line, "set %q includes undeclared set %q", unknown.In, unknown.Set)
	} else {
		ce.errorf("", 0, "concept sets: %v", err)
	}
	// Keep going with no sets so pattern errors are still reported.
	empty, _ := concepts.New(nil)
	return empty
}

// compileTopics merges topic declarations and returns where each topic was
// first declared.
func compileTopics(c *Corpus, idx *state.Index, ce *CompileError) map[string]TopicDef {
	declared := map[string]TopicDef{}
	for _, td := range c.Topics {
		name := strings.ToLower(td.Name)
		t := topicFor(idx, name)
		if _, seen := declared[name]; !seen {
			declared[name] = td
		}

		parent := strings.ToLower(td.Parent)
		if parent != "" {
			if t.Parent != "" && t.Parent != parent {
				ce.errorf(td.File, td.Line, "topic %q declared under both %q and %q", name, t.Parent, parent)
			}
			t.Parent = parent
		}
		for _, inh := range td.Inherits {
			inh = strings.ToLower(inh)
			if !contains(t.Inherits, inh) {
				t.Inherits = append(t.Inherits, inh)
			}
		}
		t.Exclusive = t.Exclusive || td.Exclusive
	}
	return declared
}

func compileTriggers(c *Corpus, idx *state.Index, ce *CompileError) {
	order := 0
	catchAllAt := map[string]TriggerDef{}

	for _, td := range c.Triggers {
		topic := strings.ToLower(td.Topic)
		if topic == "" {
			topic = types.BaselineTopic
		}
		tp := topicFor(idx, topic)

		branches, ok := compileBranches(td, ce)
		replies, ok2 := compileReplies(td, ce)
		if !ok || !ok2 {
			continue
		}
		if len(branches) == 0 && len(replies.Templates) == 0 {
			ce.errorf(td.File, td.Line, "trigger %q has no replies", strings.Join(td.Patterns, " | "))
			continue
		}

		for _, src := range td.Patterns {
			p, err := pattern.Compile(src, idx.Concepts)
			if err != nil {
				ce.errorf(td.File, td.Line, "%v", err)
				continue
			}
			order++
			trig := &types.Trigger{
				ID:          topic + "/" + strings.TrimSpace(p.Source),
				Topic:       topic,
				Pattern:     p,
				Branches:    branches,
				Replies:     replies,
				SourceOrder: order,
				File:        td.File,
				Line:        td.Line,
			}

			if p.CatchAll {
				if first, dup := catchAllAt[topic]; dup {
					ce.errorf(td.File, td.Line, "duplicate catch-all in topic %q (first at %s:%d)",
						topic, first.File, first.Line)
					continue
				}
				catchAllAt[topic] = td
				tp.CatchAll = trig
			} else {
				tp.Triggers = append(tp.Triggers, trig)
			}
			idx.Triggers++
		}
	}
}

func compileBranches(td TriggerDef, ce *CompileError) ([]types.ConditionBranch, bool) {
	ok := true
	var out []types.ConditionBranch
	for _, cd := range td.Conditions {
		cond, err := rules.ParseCondition(cd.Expr)
		if err != nil {
			ce.errorf(td.File, lineOr(cd.Line, td.Line), "%v", err)
			ok = false
			continue
		}
		out = append(out, types.ConditionBranch{
			Cond: cond,
			Reply: types.ResponseGroup{
				Templates:  []types.Template{{Text: cd.Reply, Weight: 1}},
				Cumulative: []int{1},
			},
		})
	}
	return out, ok
}

func compileReplies(td TriggerDef, ce *CompileError) (types.ResponseGroup, bool) {
	ok := true
	var g types.ResponseGroup
	for _, r := range td.Replies {
		if r.Weight <= 0 {
			ce.errorf(td.File, td.Line, "reply %q has non-positive weight %d", r.Text, r.Weight)
			ok = false
			continue
		}
		g.Templates = append(g.Templates, types.Template{Text: r.Text, Weight: r.Weight})
	}
	g.Cumulative = reply.Cumulative(g.Templates)
	return g, ok
}

func topicFor(idx *state.Index, name string) *types.Topic {
	t, ok := idx.Topics[name]
	if !ok {
		t = &types.Topic{Name: name}
		idx.Topics[name] = t
	}
	return t
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func lineOr(line, def int) int {
	if line > 0 {
		return line
	}
	return def
}
