// Package state holds the immutable trigger index and the session-state
// lookups the engine performs against it.
package state

import (
	"strconv"

	"github.com/nathoo/parley/engine/concepts"
	"github.com/nathoo/parley/types"
)

// Index is the compiled corpus. It is built once and never mutated; a
// reload produces a new Index.
type Index struct {
	Topics   map[string]*types.Topic
	Concepts *concepts.Table
	Bot      map[string]string // bot variable defaults from the corpus
	Triggers int               // total compiled triggers
}

// Topic returns the named topic, or nil.
func (idx *Index) Topic(name string) *types.Topic {
	if idx == nil {
		return nil
	}
	return idx.Topics[name]
}

// Baseline returns the baseline topic, or nil if the corpus declares
// nothing outside a topic block.
func (idx *Index) Baseline() *types.Topic {
	return idx.Topic(types.BaselineTopic)
}

// Ancestors returns the topics whose triggers are reachable from name in
// addition to its own: the parent chain and inherited topics, depth first,
// each at most once. The baseline topic and name itself are excluded.
func (idx *Index) Ancestors(name string) []*types.Topic {
	var out []*types.Topic
	seen := map[string]bool{name: true, types.BaselineTopic: true}
	var walk func(t *types.Topic)
	walk = func(t *types.Topic) {
		refs := make([]string, 0, len(t.Inherits)+1)
		if t.Parent != "" {
			refs = append(refs, t.Parent)
		}
		refs = append(refs, t.Inherits...)
		for _, r := range refs {
			if seen[r] {
				continue
			}
			seen[r] = true
			if p := idx.Topic(r); p != nil {
				out = append(out, p)
				walk(p)
			}
		}
	}
	if t := idx.Topic(name); t != nil {
		walk(t)
	}
	return out
}

// TopicNames returns every declared topic name.
func (idx *Index) TopicNames() []string {
	names := make([]string, 0, len(idx.Topics))
	for n := range idx.Topics {
		names = append(names, n)
	}
	return names
}

// NewSession creates a fresh session in the baseline topic.
func NewSession(id string) *types.Session {
	return &types.Session{
		ID:      id,
		Topic:   types.BaselineTopic,
		Stars:   []string{},
		Vars:    map[string]string{},
		Bot:     map[string]string{},
		History: []types.Exchange{},
	}
}

// GetVar returns a user variable. The "directed" variable reflects the
// session's directed flag.
func GetVar(s *types.Session, name string) (string, bool) {
	if name == "directed" {
		return strconv.FormatBool(s.Directed), true
	}
	v, ok := s.Vars[name]
	return v, ok
}

// GetBot returns a bot variable. Session overrides win over values
// configured on the engine, which win over the corpus defaults.
func GetBot(s *types.Session, idx *Index, configured map[string]string, name string) (string, bool) {
	if v, ok := s.Bot[name]; ok {
		return v, true
	}
	if v, ok := configured[name]; ok {
		return v, true
	}
	if idx != nil {
		if v, ok := idx.Bot[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Clone returns a deep copy of s.
func Clone(s *types.Session) *types.Session {
	c := *s
	c.Stars = append([]string(nil), s.Stars...)
	c.History = append([]types.Exchange(nil), s.History...)
	c.Vars = make(map[string]string, len(s.Vars))
	for k, v := range s.Vars {
		c.Vars[k] = v
	}
	c.Bot = make(map[string]string, len(s.Bot))
	for k, v := range s.Bot {
		c.Bot[k] = v
	}
	return &c
}
