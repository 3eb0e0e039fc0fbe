package save

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

func TestRoundTrip(t *testing.T) {
	s := state.NewSession("alice")

	// Modify state.
	s.Topic = "smalltalk"
	s.TurnCount = 7
	s.Stars = []string{"red", ""}
	s.Directed = true
	s.Vars["name"] = "alice"
	s.Bot["mood"] = "grumpy"
	s.History = []types.Exchange{
		{Input: "what colour", Reply: "red"},
		{Input: "hello", Reply: "Hi!"},
	}

	// Save.
	data, err := Save(s)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load.
	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd.ID != "alice" {
		t.Errorf("expected id 'alice', got %q", sd.ID)
	}

	// Apply to a fresh session under another id.
	s2 := state.NewSession("bob")
	ApplySave(s2, sd)

	if s2.ID != "bob" {
		t.Errorf("ApplySave must keep the target id, got %q", s2.ID)
	}
	s2.ID = s.ID
	if diff := cmp.Diff(s, s2); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_ProducesValidJSON(t *testing.T) {
	data, err := Save(state.NewSession("u1"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("Save output is not valid JSON")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["version"] != Version {
		t.Errorf("expected version %q, got %v", Version, raw["version"])
	}
	if raw["topic"] != "random" {
		t.Errorf("expected topic 'random', got %v", raw["topic"])
	}
}

func TestLoad_MissingOptionalFields(t *testing.T) {
	sd, err := Load([]byte(`{"id":"u1","turn":2}`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd.Topic != "random" {
		t.Errorf("expected default topic 'random', got %q", sd.Topic)
	}
	if sd.Stars == nil || sd.Vars == nil || sd.Bot == nil || sd.History == nil {
		t.Errorf("expected non-nil collections, got %+v", sd)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"future version", `{"version":"99"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
