package concepts

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_NormalizesAndDedupes(t *testing.T) {
	tbl, err := New(map[string][]string{
		"Greet": {"Hello", "hi", "HI", "hey there", "  hello  "},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !tbl.Has("greet") || !tbl.Has("GREET") {
		t.Error("Has(greet) = false, want true")
	}
	want := [][]string{{"hey", "there"}, {"hello"}, {"hi"}}
	if diff := cmp.Diff(want, tbl.Members("greet")); diff != "" {
		t.Errorf("Members mismatch (-want +got):\n%s", diff)
	}
	for _, w := range []string{"hello", "hi", "hey there"} {
		if !tbl.Contains("greet", w) {
			t.Errorf("Contains(greet, %q) = false, want true", w)
		}
	}
	if tbl.Contains("greet", "bye") {
		t.Error("Contains(greet, bye) = true, want false")
	}
}

func TestNew_NestedReference(t *testing.T) {
	tbl, err := New(map[string][]string{
		"colour": {"red", "@dark"},
		"dark":   {"black", "navy blue"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, w := range []string{"red", "black", "navy blue"} {
		if !tbl.Contains("colour", w) {
			t.Errorf("Contains(colour, %q) = false, want true", w)
		}
	}
	if tbl.Contains("dark", "red") {
		t.Error("reference must not flow backwards")
	}
}

func TestNew_CycleTerminates(t *testing.T) {
	tbl, err := New(map[string][]string{
		"a": {"one", "@b"},
		"b": {"two", "@a"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !tbl.Contains("a", "two") || !tbl.Contains("b", "one") {
		t.Error("mutual references should share members")
	}
	if got := len(tbl.Members("a")); got != 2 {
		t.Errorf("len(Members(a)) = %d, want 2", got)
	}
}

func TestNew_UnknownReference(t *testing.T) {
	_, err := New(map[string][]string{"a": {"@missing"}})
	var use *UnknownSetError
	if !errors.As(err, &use) {
		t.Fatalf("err = %v, want *UnknownSetError", err)
	}
	if use.Set != "missing" || use.In != "a" {
		t.Errorf("UnknownSetError = %+v", use)
	}
}

func TestNames(t *testing.T) {
	tbl, _ := New(map[string][]string{"b": {"x"}, "a": {"y"}})
	if diff := cmp.Diff([]string{"a", "b"}, tbl.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if tbl.Has("x") || tbl.Contains("x", "y") || tbl.Members("x") != nil || tbl.Len() != 0 {
		t.Error("nil table should behave as empty")
	}
}
