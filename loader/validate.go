package loader

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

var reTopicTag = regexp.MustCompile(`\{topic=([^{}]*)\}`)

// validate checks the compiled index for referential integrity. Undeclared
// parents and inherited topics are errors; unknown {topic=} targets,
// empty topics and shadowed patterns are warnings.
func validate(idx *state.Index, c *Corpus, declared map[string]TopicDef, ce *CompileError) {
	names := idx.TopicNames()
	sort.Strings(names)

	for _, name := range names {
		t := idx.Topics[name]
		at := declared[name]
		if t.Parent != "" && idx.Topic(t.Parent) == nil {
			ce.errorf(at.File, at.Line, "topic %q: parent topic %q is not declared", name, t.Parent)
		}
		for _, inh := range t.Inherits {
			if idx.Topic(inh) == nil {
				ce.errorf(at.File, at.Line, "topic %q: inherited topic %q is not declared", name, inh)
			}
		}
		if name != types.BaselineTopic && len(t.Triggers) == 0 && t.CatchAll == nil {
			ce.warnf(at.File, at.Line, "topic %q has no triggers", name)
		}

		seen := map[string]*types.Trigger{}
		for _, trig := range t.Triggers {
			key := strings.Join(patternKey(trig.Pattern), " ")
			if first, dup := seen[key]; dup {
				ce.warnf(trig.File, trig.Line, "trigger %q in topic %q is shadowed by %s:%d",
					trig.Pattern.Source, name, first.File, first.Line)
				continue
			}
			seen[key] = trig
		}
	}

	for _, td := range c.Triggers {
		texts := make([]string, 0, len(td.Replies)+len(td.Conditions))
		for _, r := range td.Replies {
			texts = append(texts, r.Text)
		}
		for _, cd := range td.Conditions {
			texts = append(texts, cd.Reply)
		}
		for _, text := range texts {
			for _, m := range reTopicTag.FindAllStringSubmatch(text, -1) {
				target := strings.ToLower(strings.TrimSpace(m[1]))
				if target != "" && idx.Topic(target) == nil {
					ce.warnf(td.File, td.Line, "{topic=%s} names an undeclared topic", target)
				}
			}
		}
	}
}

// patternKey identifies patterns that align identically.
func patternKey(p types.Pattern) []string {
	key := make([]string, 0, len(p.Atoms))
	for _, a := range p.Atoms {
		switch a.Kind {
		case types.AtomLiteral:
			key = append(key, a.Word)
		default:
			key = append(key, p.Source)
			return key
		}
	}
	return key
}
