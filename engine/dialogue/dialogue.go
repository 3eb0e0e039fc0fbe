// Package dialogue lists what a session can say next: the triggers
// reachable from a topic, in the order the matcher would prefer them.
package dialogue

import (
	"sort"

	"github.com/nathoo/parley/engine/rules"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

// Entry is one reachable trigger.
type Entry struct {
	Trigger *types.Trigger
	// Via is the topic the trigger is reached through when it is not the
	// current topic itself: an ancestor or the baseline.
	Via string
}

// Reachable returns the triggers reachable from topic. Specific triggers
// come first, ordered by specificity then declaration (for topic-first
// precedence, local ones before baseline ones); catch-alls follow in
// fallback order.
func Reachable(idx *state.Index, topic string, prec rules.Precedence) []Entry {
	local, baseline := rules.Scope(idx, topic)

	var groups [][]*types.Topic
	switch {
	case prec == rules.PrecedenceTopicFirst && baseline != nil:
		groups = [][]*types.Topic{local, {baseline}}
	case baseline != nil:
		groups = [][]*types.Topic{append(local[:len(local):len(local)], baseline)}
	default:
		groups = [][]*types.Topic{local}
	}

	var out []Entry
	for _, g := range groups {
		var specific []Entry
		for _, t := range g {
			for _, trig := range t.Triggers {
				specific = append(specific, entry(trig, topic))
			}
		}
		sort.SliceStable(specific, func(i, j int) bool {
			a, b := specific[i].Trigger, specific[j].Trigger
			if a.Pattern.Specificity != b.Pattern.Specificity {
				return a.Pattern.Specificity > b.Pattern.Specificity
			}
			return a.SourceOrder < b.SourceOrder
		})
		out = append(out, specific...)
		if prec == rules.PrecedenceTopicFirst {
			out = appendCatchAlls(out, g, topic)
		}
	}
	if prec != rules.PrecedenceTopicFirst {
		for _, g := range groups {
			out = appendCatchAlls(out, g, topic)
		}
	}
	return out
}

func appendCatchAlls(out []Entry, topics []*types.Topic, current string) []Entry {
	for _, t := range topics {
		if t.CatchAll != nil {
			out = append(out, entry(t.CatchAll, current))
		}
	}
	return out
}

func entry(trig *types.Trigger, current string) Entry {
	e := Entry{Trigger: trig}
	if trig.Topic != current {
		e.Via = trig.Topic
	}
	return e
}
