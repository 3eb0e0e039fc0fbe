// Package reply turns a selected response group into final text: weighted
// template selection, tag substitution and recursive redirects.
package reply

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nathoo/parley/engine/effects"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

// Picker is the random source used for template and {random} selection.
type Picker interface {
	// Pick returns an index drawn with probability proportional to the
	// gaps in the cumulative weight table.
	Pick(cumulative []int) int
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// RedirectFunc resolves utterance through the full matching pipeline at
// the given depth and returns its text and pending effects.
type RedirectFunc func(utterance string, depth int) (string, []types.Effect, error)

// maxVarPasses bounds innermost-first <get>/<set>/<bot> expansion.
const maxVarPasses = 16

var (
	reStar     = regexp.MustCompile(`<star(\d*)>`)
	reHistory  = regexp.MustCompile(`<(input|reply)(\d*)>`)
	reVarTag   = regexp.MustCompile(`<(get|set|bot) ([^<>]*)>`)
	reRandom   = regexp.MustCompile(`(?s)\{random\}(.*?)\{/random\}`)
	reTopic    = regexp.MustCompile(`\{topic=([^{}]*)\}`)
	reRedirect = regexp.MustCompile(`\{@([^{}]*)\}`)
)

// Select draws one template from g. A single template is returned without
// consulting rng.
func Select(g *types.ResponseGroup, rng Picker) string {
	switch len(g.Templates) {
	case 0:
		return ""
	case 1:
		return g.Templates[0].Text
	}
	cum := g.Cumulative
	if len(cum) != len(g.Templates) {
		cum = Cumulative(g.Templates)
	}
	return g.Templates[rng.Pick(cum)].Text
}

// Cumulative builds the prefix-sum table for templates. Non-positive
// weights count as 1.
func Cumulative(templates []types.Template) []int {
	cum := make([]int, len(templates))
	total := 0
	for i, t := range templates {
		w := t.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		cum[i] = total
	}
	return cum
}

// Resolver expands one response for one turn. A Resolver is not reused
// across turns.
type Resolver struct {
	Session   *types.Session // turn view, never mutated here
	Index     *state.Index
	BotVars   map[string]string
	Stars     []string
	Undefined string
	RNG       Picker
	Depth     int
	Redirect  RedirectFunc

	pending   map[string]string // <set> values visible later in this response
	scheduled []types.Effect
}

// Resolve selects a template from g and expands it. It returns the final
// text and the effects scheduled by tags, including those of nested
// redirects, in textual order.
func (r *Resolver) Resolve(g *types.ResponseGroup) (string, []types.Effect, error) {
	return r.Expand(Select(g, r.RNG))
}

// Expand runs the full tag pipeline over text.
func (r *Resolver) Expand(text string) (string, []types.Effect, error) {
	text = strings.ReplaceAll(text, "<@>", "{@ <star>}")
	text = r.captures(text)
	text = r.variables(text, true)

	text = reRandom.ReplaceAllStringFunc(text, func(m string) string {
		body := reRandom.FindStringSubmatch(m)[1]
		var parts []string
		if strings.Contains(body, "|") {
			parts = strings.Split(body, "|")
		} else {
			parts = strings.Fields(body)
		}
		if len(parts) == 0 {
			return ""
		}
		return strings.TrimSpace(parts[r.RNG.Intn(len(parts))])
	})

	text = reTopic.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.ToLower(strings.TrimSpace(reTopic.FindStringSubmatch(m)[1]))
		if name != "" {
			r.emit(effects.SetTopic, map[string]any{"topic": name})
		}
		return ""
	})

	var redirectErr error
	text = reRedirect.ReplaceAllStringFunc(text, func(m string) string {
		if redirectErr != nil {
			return ""
		}
		target := strings.TrimSpace(reRedirect.FindStringSubmatch(m)[1])
		if r.Redirect == nil {
			return ""
		}
		out, effs, err := r.Redirect(target, r.Depth+1)
		if err != nil {
			redirectErr = err
			return ""
		}
		r.scheduled = append(r.scheduled, effs...)
		return out
	})
	if redirectErr != nil {
		return "", nil, redirectErr
	}

	return strings.TrimSpace(text), r.scheduled, nil
}

// Substitute replaces read-only tags (captures, history, <id>, <get>,
// <bot>) in s. It is used for condition operands and never schedules
// effects.
func (r *Resolver) Substitute(s string) string {
	return r.variables(r.captures(s), false)
}

// captures replaces <star>, <starN>, <input>, <inputN>, <reply>, <replyN>
// and <id>.
func (r *Resolver) captures(s string) string {
	s = reStar.ReplaceAllStringFunc(s, func(m string) string {
		n := index(reStar.FindStringSubmatch(m)[1])
		if n < 1 || n > len(r.Stars) {
			return ""
		}
		return r.Stars[n-1]
	})
	s = reHistory.ReplaceAllStringFunc(s, func(m string) string {
		sub := reHistory.FindStringSubmatch(m)
		n := index(sub[2])
		if n < 1 || n > len(r.Session.History) {
			return r.Undefined
		}
		ex := r.Session.History[n-1]
		if sub[1] == "input" {
			return ex.Input
		}
		return ex.Reply
	})
	return strings.ReplaceAll(s, "<id>", r.Session.ID)
}

// variables expands <get>, <bot> and (when mutate is set) <set> tags,
// innermost first so values may themselves be built from tags.
func (r *Resolver) variables(s string, mutate bool) string {
	for pass := 0; pass < maxVarPasses && reVarTag.MatchString(s); pass++ {
		s = reVarTag.ReplaceAllStringFunc(s, func(m string) string {
			sub := reVarTag.FindStringSubmatch(m)
			kind, body := sub[1], strings.TrimSpace(sub[2])
			name, value, assign := strings.Cut(body, "=")
			name = strings.TrimSpace(name)

			switch {
			case kind == "set" && mutate:
				r.assign(name, strings.TrimSpace(value))
				return ""
			case kind == "set":
				return ""
			case kind == "bot" && assign:
				if mutate {
					r.emit(effects.SetBot, map[string]any{"name": name, "value": strings.TrimSpace(value)})
				}
				return ""
			case kind == "bot":
				if v, ok := state.GetBot(r.Session, r.Index, r.BotVars, name); ok {
					return v
				}
				return r.Undefined
			default:
				if v, ok := r.pending[name]; ok {
					return v
				}
				if v, ok := state.GetVar(r.Session, name); ok {
					return v
				}
				return r.Undefined
			}
		})
	}
	return s
}

func (r *Resolver) assign(name, value string) {
	if r.pending == nil {
		r.pending = map[string]string{}
	}
	r.pending[name] = value
	r.emit(effects.SetVar, map[string]any{"name": name, "value": value})
}

func (r *Resolver) emit(typ string, params map[string]any) {
	r.scheduled = append(r.scheduled, types.Effect{Type: typ, Params: params})
}

// index parses a tag suffix; an empty suffix means 1.
func index(s string) int {
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
