package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/parley/engine"
)

func TestLayers(t *testing.T) {
	got := Layers("testdata/basic", []string{"testdata/extra"})
	want := []string{"testdata/basic", filepath.Join("testdata/basic", "custom"), "testdata/extra"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Layers mismatch (-want +got):\n%s", diff)
	}

	if got := Layers("testdata/extra", nil); len(got) != 1 {
		t.Errorf("directory without custom/ should yield one layer, got %v", got)
	}
}

func TestScriptFiles_Order(t *testing.T) {
	files, err := ScriptFiles([]string{"testdata/basic"})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"begin.rive", "games.lua", "random.rive", "smalltalk.rive"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("file order mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptFiles_Errors(t *testing.T) {
	if _, err := ScriptFiles([]string{"testdata/does-not-exist"}); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := ScriptFiles([]string{t.TempDir()}); err == nil || !strings.Contains(err.Error(), "no .rive or .lua files") {
		t.Errorf("expected no-files error, got %v", err)
	}
}

func TestLoad_Basic(t *testing.T) {
	idx, err := Load(Layers("testdata/basic", []string{"testdata/extra"}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if idx.Triggers != 18 {
		t.Errorf("Triggers = %d, want 18", idx.Triggers)
	}
	for _, name := range []string{"random", "smalltalk", "weather", "games"} {
		if idx.Topic(name) == nil {
			t.Errorf("topic %q missing", name)
		}
	}
	if idx.Topic("weather").Parent != "smalltalk" {
		t.Errorf("weather parent = %q", idx.Topic("weather").Parent)
	}
	if !idx.Topic("games").Exclusive {
		t.Error("games should be exclusive")
	}
	wantBot := map[string]string{"name": "nano", "mood": "curious", "owner": "ops"}
	if diff := cmp.Diff(wantBot, idx.Bot); diff != "" {
		t.Errorf("bot vars mismatch (-want +got):\n%s", diff)
	}
	if !idx.Concepts.Contains("colour", "dark blue") {
		t.Error("continued array member missing")
	}
}

func TestLoad_Conversation(t *testing.T) {
	idx, err := Load(Layers("testdata/basic", []string{"testdata/extra"}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	e := engine.New(idx, engine.WithSeed(3))
	s := e.NewSession("tester")

	turns := []struct {
		input string
		reply string
		topic string
	}{
		{"Hello", "Hi there!", "smalltalk"},
		{"how is your day", "Lovely, and yours?", "smalltalk"},
		{"how are you", "I'm okay.", "smalltalk"},
		{"who made you", "A local admin.", "smalltalk"},
		{"ping", "pong", "smalltalk"},
		{"bye", "Goodbye!", "random"},
		{"hey there", "Hi there!", "smalltalk"},
		{"bye", "Goodbye!", "random"},
		{"my favourite colour is light blue", "I like light blue too.", "random"},
		{"lets play", "Rock, paper or scissors?", "games"},
		{"score", "Keep playing.", "games"},
		{"hello", "Back to chatting.", "random"},
		{"banana", "I don't follow.", "random"},
	}
	for i, tt := range turns {
		res, err := e.Respond(s, tt.input, false)
		if err != nil {
			t.Fatalf("turn %d (%q): %v", i, tt.input, err)
		}
		if res.Reply != tt.reply || s.Topic != tt.topic {
			t.Errorf("turn %d (%q) = %q in %q, want %q in %q", i, tt.input, res.Reply, s.Topic, tt.reply, tt.topic)
		}
	}
	if s.Vars["colour"] != "light blue" {
		t.Errorf("colour var = %q", s.Vars["colour"])
	}

	s.Topic = "games"
	res, err := e.Respond(s, "play rock", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reply != "You picked rock." && res.Reply != "rock? Bold." {
		t.Errorf("play reply = %q", res.Reply)
	}

	happy := engine.New(idx, engine.WithBotVars(map[string]string{"mood": "happy"}))
	if res, _ := happy.Respond(happy.NewSession("x"), "how are you", false); res.Reply != "I'm great, thanks!" {
		t.Errorf("configured mood should override corpus default, got %q", res.Reply)
	}
}

func TestLoad_Broken(t *testing.T) {
	_, err := Load([]string{"testdata/broken"})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CompileError", err)
	}

	bad := filepath.Join("testdata", "broken", "bad.rive")
	topics := filepath.Join("testdata", "broken", "topics.lua")
	want := []string{
		bad + `:1: set "pets" includes undeclared set "reptiles"`,
		bad + ":3: ",
		bad + ":6: ",
		bad + ":9: ",
		bad + ":13: malformed condition",
		bad + `:16: reply "never" has non-positive weight 0`,
		bad + `:19: trigger "empty" has no replies`,
		bad + `:24: duplicate catch-all in topic "lonely"`,
		topics + `:1: topic "child": parent topic "ghost" is not declared`,
	}
	if len(ce.Errors) != len(want) {
		t.Fatalf("got %d errors, want %d:\n%v", len(ce.Errors), len(want), err)
	}
	for _, w := range want {
		if !strings.Contains(err.Error(), w) {
			t.Errorf("errors do not mention %q:\n%v", w, err)
		}
	}

	var warned bool
	for _, w := range ce.Warnings {
		if strings.Contains(w.Msg, "{topic=nowhere}") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a warning for {topic=nowhere}, got %v", ce.Warnings)
	}
}

func TestLoad_ParseErrorStopsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.rive"), []byte("+ ok\n- fine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.rive"), []byte("- orphan\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load([]string{dir})
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 1 {
		t.Errorf("err = %v, want *ParseError at line 1", err)
	}
}
