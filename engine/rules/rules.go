// Package rules implements trigger matching and condition evaluation.
package rules

import (
	"fmt"

	"github.com/nathoo/parley/engine/pattern"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

// Precedence decides how the current topic's catch-all competes with
// specific triggers reachable from the baseline topic.
type Precedence int

const (
	// PrecedencePooled ranks topic, inherited and baseline triggers in one
	// pool; catch-alls are only tried after every specific trigger failed.
	PrecedencePooled Precedence = iota
	// PrecedenceTopicFirst exhausts the current topic (specific triggers,
	// then its catch-all) before looking at the baseline topic.
	PrecedenceTopicFirst
)

func (p Precedence) String() string {
	switch p {
	case PrecedenceTopicFirst:
		return "topic-first"
	default:
		return "pooled"
	}
}

// ParsePrecedence parses a precedence name as used in configuration.
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "", "pooled":
		return PrecedencePooled, nil
	case "topic-first":
		return PrecedenceTopicFirst, nil
	default:
		return 0, fmt.Errorf("unknown precedence %q (want pooled or topic-first)", s)
	}
}

// Candidate is a trigger that aligned with the input, plus its captures.
type Candidate struct {
	Trigger *types.Trigger
	Stars   []string
}

// Match returns the ordered candidates for tokens in topic. At most one
// specific trigger is returned per pass; catch-alls follow in fallback
// order. The engine walks the list until a candidate yields a reply.
func Match(idx *state.Index, tokens []string, topic string, prec Precedence) []Candidate {
	local, baseline := Scope(idx, topic)

	var out []Candidate
	switch prec {
	case PrecedenceTopicFirst:
		if c, ok := best(idx, tokens, local); ok {
			out = append(out, c)
		}
		out = appendCatchAlls(out, local)
		if baseline != nil {
			if c, ok := best(idx, tokens, []*types.Topic{baseline}); ok {
				out = append(out, c)
			}
			out = appendCatchAlls(out, []*types.Topic{baseline})
		}

	default:
		pool := local
		if baseline != nil {
			pool = append(pool[:len(pool):len(pool)], baseline)
		}
		if c, ok := best(idx, tokens, pool); ok {
			out = append(out, c)
		}
		out = appendCatchAlls(out, pool)
	}
	return out
}

// Scope gathers the topics reachable from topic in resolution order:
//  1. The topic itself
//  2. Its parent chain and inherited topics
//
// baseline is nil when topic is exclusive or is the baseline itself. An
// undeclared topic resolves against the baseline only.
func Scope(idx *state.Index, topic string) (local []*types.Topic, baseline *types.Topic) {
	baseline = idx.Baseline()
	t := idx.Topic(topic)
	if t == nil {
		return nil, baseline
	}
	local = append(local, t)
	local = append(local, idx.Ancestors(topic)...)
	if t == baseline || t.Exclusive {
		baseline = nil
	}
	return local, baseline
}

// best aligns every specific trigger in topics and returns the winner:
// highest specificity, then earliest declaration.
func best(idx *state.Index, tokens []string, topics []*types.Topic) (Candidate, bool) {
	var winner Candidate
	found := false
	for _, t := range topics {
		for _, trig := range t.Triggers {
			if found && !outranks(trig, winner.Trigger) {
				continue
			}
			stars, ok := pattern.Align(trig.Pattern, tokens, idx.Concepts)
			if !ok {
				continue
			}
			winner = Candidate{Trigger: trig, Stars: stars}
			found = true
		}
	}
	return winner, found
}

func outranks(a, b *types.Trigger) bool {
	if a.Pattern.Specificity != b.Pattern.Specificity {
		return a.Pattern.Specificity > b.Pattern.Specificity
	}
	return a.SourceOrder < b.SourceOrder
}

func appendCatchAlls(out []Candidate, topics []*types.Topic) []Candidate {
	for _, t := range topics {
		if t.CatchAll != nil {
			out = append(out, Candidate{Trigger: t.CatchAll, Stars: []string{}})
		}
	}
	return out
}
