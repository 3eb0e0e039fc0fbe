package pattern

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/parley/engine/concepts"
	"github.com/nathoo/parley/engine/parser"
	"github.com/nathoo/parley/types"
)

func testSets(t *testing.T) *concepts.Table {
	t.Helper()
	tbl, err := concepts.New(map[string][]string{
		"colour":   {"red", "green", "navy blue"},
		"greeting": {"hello", "hi", "hey"},
	})
	if err != nil {
		t.Fatalf("concepts.New: %v", err)
	}
	return tbl
}

func mustCompile(t *testing.T, src string, sets *concepts.Table) types.Pattern {
	t.Helper()
	p, err := Compile(src, sets)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return p
}

func TestCompile_CatchAll(t *testing.T) {
	p := mustCompile(t, "*", nil)
	if !p.CatchAll {
		t.Error("bare * should be a catch-all")
	}
	q := mustCompile(t, "hello *", nil)
	if q.CatchAll {
		t.Error("hello * should not be a catch-all")
	}
}

func TestCompile_Atoms(t *testing.T) {
	p := mustCompile(t, "What's [your|the] (name|real name) (@colour) @greeting _ # [*]", testSets(t))

	want := []types.Atom{
		{Kind: types.AtomLiteral, Word: "whats"},
		{Kind: types.AtomAlternation, Alts: [][]string{{"your"}, {"the"}}, Optional: true, Capture: true},
		{Kind: types.AtomAlternation, Alts: [][]string{{"name"}, {"real", "name"}}, Capture: true},
		{Kind: types.AtomConcept, Set: "colour", Capture: true},
		{Kind: types.AtomConcept, Set: "greeting"},
		{Kind: types.AtomWildcard, Wildcard: types.WordsOneOrMore, Capture: true},
		{Kind: types.AtomWildcard, Wildcard: types.NumberOneOrMore, Capture: true},
		{Kind: types.AtomWildcard, Wildcard: types.AnyZeroOrMore, Capture: true},
	}
	if diff := cmp.Diff(want, p.Atoms); diff != "" {
		t.Errorf("atoms mismatch (-want +got):\n%s", diff)
	}
	if got := Captures(p); got != 6 {
		t.Errorf("Captures() = %d, want 6", got)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", "   "},
		{"unknown set", "i like (@flavour)"},
		{"unknown bare set", "i like @flavour"},
		{"unclosed group", "hello (there"},
		{"stray closer", "hello there)"},
		{"empty group", "hello []"},
		{"empty alternative", "hello (a||b)"},
		{"nested group", "hello (a [b])"},
		{"punctuation only", "?!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, testSets(t))
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("Compile(%q) err = %v, want *Error", tt.src, err)
			}
			if pe.Source != tt.src {
				t.Errorf("Error.Source = %q, want %q", pe.Source, tt.src)
			}
		})
	}
}

func TestSpecificity_Ordering(t *testing.T) {
	sets := testSets(t)
	score := func(src string) int { return mustCompile(t, src, sets).Specificity }

	if !(score("hello there") > score("hello (@colour)")) {
		t.Error("literal should outrank required concept")
	}
	if !(score("hello (@colour)") > score("hello [@colour]")) {
		t.Error("required concept should outrank optional concept")
	}
	if !(score("hello [there]") > score("hello _")) {
		t.Error("optional group should outrank typed wildcard")
	}
	if !(score("hello _") > score("hello *")) {
		t.Error("typed wildcard should outrank open wildcard")
	}
	if !(score("hello *") > score("*")) {
		t.Error("any specific pattern should outrank catch-all")
	}
}

func TestAlign(t *testing.T) {
	sets := testSets(t)
	tests := []struct {
		name    string
		pattern string
		input   string
		want    []string
		ok      bool
	}{
		{"literal exact", "hello there", "Hello, there!", []string{}, true},
		{"literal mismatch", "hello there", "hello you", nil, false},
		{"literal too short", "hello there", "hello", nil, false},
		{"star zero tokens", "hello *", "hello", []string{""}, true},
		{"star many tokens", "hello *", "hello big world", []string{"big world"}, true},
		{"star shortest first", "* is *", "this is what it is", []string{"this", "what it is"}, true},
		{"bracket star", "hello [*]", "hello", []string{""}, true},
		{"optional consumed", "[please] help", "please help", []string{"please"}, true},
		{"optional skipped", "[please] help", "help", []string{""}, true},
		{"optional yields to required", "[help] help", "help", []string{""}, true},
		{"alternation single", "(hi|hello) bot", "hello bot", []string{"hello"}, true},
		{"alternation multiword", "(how are|how is) you", "how is you", []string{"how is"}, true},
		{"alternation required", "(hi|hello) bot", "bot", nil, false},
		{"concept capture", "i like (@colour)", "I like GREEN", []string{"green"}, true},
		{"concept multiword", "i like (@colour) cars", "i like navy blue cars", []string{"navy blue"}, true},
		{"concept optional skipped", "[@colour] car", "car", []string{""}, true},
		{"concept non-member", "i like (@colour)", "i like purple", nil, false},
		{"bare concept no capture", "@greeting *", "hey you", []string{"you"}, true},
		{"words wildcard", "my name is _", "my name is bob", []string{"bob"}, true},
		{"words wildcard rejects digits", "my name is _", "my name is 42", nil, false},
		{"words wildcard needs one", "my name is _", "my name is", nil, false},
		{"number wildcard", "i am # years old", "i am 42 years old", []string{"42"}, true},
		{"number wildcard rejects words", "i am # years old", "i am old years old", nil, false},
		{"backtracking across groups", "* (@colour) *", "the red red car", []string{"the", "red", "red car"}, true},
		{"catch-all empty input", "*", "", []string{""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, tt.pattern, sets)
			got, ok := Align(p, parser.Tokenize(tt.input), sets)
			if ok != tt.ok {
				t.Fatalf("Align(%q, %q) ok = %v, want %v", tt.pattern, tt.input, ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("captures mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlign_EveryConceptMember(t *testing.T) {
	sets := testSets(t)
	p := mustCompile(t, "(@greeting)", sets)
	for _, member := range sets.Members("greeting") {
		for _, variant := range []string{member[0], "  " + member[0] + "!", upper(member[0])} {
			if _, ok := Align(p, parser.Tokenize(variant), sets); !ok {
				t.Errorf("(@greeting) did not match %q", variant)
			}
		}
	}
}

func TestAlign_PathologicalInputTerminates(t *testing.T) {
	p := mustCompile(t, "* * * * * * * * x", nil)
	tokens := make([]string, 60)
	for i := range tokens {
		tokens[i] = "a"
	}
	if _, ok := Align(p, tokens, nil); ok {
		t.Error("pattern ending in x must not match a run of a's")
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
