package state

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/parley/types"
)

func testIndex() *Index {
	return &Index{
		Topics: map[string]*types.Topic{
			"random":    {Name: "random"},
			"smalltalk": {Name: "smalltalk"},
			"weather":   {Name: "weather", Parent: "smalltalk"},
			"rain":      {Name: "rain", Parent: "weather", Inherits: []string{"music"}},
			"music":     {Name: "music", Inherits: []string{"rain"}},
			"orphan":    {Name: "orphan", Parent: "missing"},
		},
		Bot: map[string]string{"name": "nano", "mood": "neutral"},
	}
}

func names(ts []*types.Topic) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

func TestAncestors(t *testing.T) {
	idx := testIndex()
	tests := []struct {
		topic string
		want  []string
	}{
		{"random", []string{}},
		{"smalltalk", []string{}},
		{"weather", []string{"smalltalk"}},
		{"rain", []string{"weather", "smalltalk", "music"}},
		{"music", []string{"rain", "weather", "smalltalk"}},
		{"orphan", []string{}},
		{"unknown", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, names(idx.Ancestors(tt.topic))); diff != "" {
				t.Errorf("Ancestors(%q) mismatch (-want +got):\n%s", tt.topic, diff)
			}
		})
	}
}

func TestTopicLookup(t *testing.T) {
	idx := testIndex()
	if idx.Baseline() == nil || idx.Baseline().Name != "random" {
		t.Error("Baseline() should return the random topic")
	}
	if idx.Topic("nope") != nil {
		t.Error("Topic(nope) should be nil")
	}
	var nilIdx *Index
	if nilIdx.Topic("random") != nil {
		t.Error("nil index Topic() should be nil")
	}
	got := idx.TopicNames()
	sort.Strings(got)
	want := []string{"music", "orphan", "rain", "random", "smalltalk", "weather"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopicNames mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession("alice")
	if s.ID != "alice" {
		t.Errorf("ID = %q, want alice", s.ID)
	}
	if s.Topic != types.BaselineTopic {
		t.Errorf("Topic = %q, want %q", s.Topic, types.BaselineTopic)
	}
	if s.Vars == nil || s.Bot == nil || s.Stars == nil || s.History == nil {
		t.Error("NewSession should initialize all collections")
	}
}

func TestGetVar(t *testing.T) {
	s := NewSession("x")
	s.Vars["name"] = "alice"

	if v, ok := GetVar(s, "name"); !ok || v != "alice" {
		t.Errorf("GetVar(name) = %q, %v", v, ok)
	}
	if _, ok := GetVar(s, "age"); ok {
		t.Error("GetVar(age) should be missing")
	}
	if v, _ := GetVar(s, "directed"); v != "false" {
		t.Errorf("GetVar(directed) = %q, want false", v)
	}
	s.Directed = true
	if v, _ := GetVar(s, "directed"); v != "true" {
		t.Errorf("GetVar(directed) = %q, want true", v)
	}
}

func TestGetBot_Layering(t *testing.T) {
	idx := testIndex()
	s := NewSession("x")
	configured := map[string]string{"mood": "happy"}

	tests := []struct {
		name   string
		setup  func()
		key    string
		want   string
		wantOK bool
	}{
		{"corpus default", func() {}, "name", "nano", true},
		{"configured beats corpus", func() {}, "mood", "happy", true},
		{"session beats configured", func() { s.Bot["mood"] = "grumpy" }, "mood", "grumpy", true},
		{"missing", func() {}, "age", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			got, ok := GetBot(s, idx, configured, tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetBot(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewSession("x")
	s.Vars["a"] = "1"
	s.Stars = []string{"one"}
	s.History = []types.Exchange{{Input: "hi", Reply: "hello"}}

	c := Clone(s)
	c.Vars["a"] = "2"
	c.Stars[0] = "two"
	c.History[0].Reply = "changed"
	c.Bot["mood"] = "sad"

	if s.Vars["a"] != "1" || s.Stars[0] != "one" || s.History[0].Reply != "hello" {
		t.Error("mutating clone leaked into original")
	}
	if _, ok := s.Bot["mood"]; ok {
		t.Error("clone bot map shares storage with original")
	}
}
