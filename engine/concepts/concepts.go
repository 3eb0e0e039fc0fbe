// Package concepts holds the immutable table of named synonym groups that
// trigger patterns reference with @name.
package concepts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/parley/engine/parser"
)

// Table maps a set name to its normalized members. Members may be
// multi-word phrases; each is stored as its token sequence.
type Table struct {
	sets    map[string][][]string
	members map[string]map[string]bool
}

// UnknownSetError is returned when a member references a set that was
// never declared.
type UnknownSetError struct {
	Set string
	In  string
}

func (e *UnknownSetError) Error() string {
	return fmt.Sprintf("concept set %q references undefined set %q", e.In, e.Set)
}

// New builds a table from raw declarations. Names and members are
// normalized with the tokenizer rules; duplicates collapse. A member of the
// form "@other" expands to every member of set other, recursively. Cycles
// between sets are tolerated and simply stop expanding.
func New(raw map[string][]string) (*Table, error) {
	t := &Table{
		sets:    make(map[string][][]string, len(raw)),
		members: make(map[string]map[string]bool, len(raw)),
	}

	decl := make(map[string][]string, len(raw))
	for name, words := range raw {
		decl[strings.ToLower(strings.TrimSpace(name))] = words
	}

	for name := range decl {
		seen := map[string]bool{}
		var phrases [][]string
		if err := expand(decl, name, name, map[string]bool{}, seen, &phrases); err != nil {
			return nil, err
		}
		// Longest phrases first so alignment tries multi-word members before
		// their single-word prefixes.
		sort.SliceStable(phrases, func(i, j int) bool {
			return len(phrases[i]) > len(phrases[j])
		})
		t.sets[name] = phrases
		t.members[name] = seen
	}
	return t, nil
}

func expand(decl map[string][]string, root, name string, visiting, seen map[string]bool, out *[][]string) error {
	if visiting[name] {
		return nil
	}
	visiting[name] = true
	for _, w := range decl[name] {
		w = strings.TrimSpace(w)
		if strings.HasPrefix(w, "@") {
			ref := strings.ToLower(w[1:])
			if _, ok := decl[ref]; !ok {
				return &UnknownSetError{Set: ref, In: root}
			}
			if err := expand(decl, root, ref, visiting, seen, out); err != nil {
				return err
			}
			continue
		}
		toks := parser.Tokenize(w)
		if len(toks) == 0 {
			continue
		}
		key := strings.Join(toks, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		*out = append(*out, toks)
	}
	return nil
}

// Has reports whether a set named name exists.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.sets[strings.ToLower(name)]
	return ok
}

// Contains reports whether phrase (already normalized) is a member of set.
func (t *Table) Contains(set, phrase string) bool {
	if t == nil {
		return false
	}
	return t.members[strings.ToLower(set)][phrase]
}

// Members returns the token sequences of set, longest first.
func (t *Table) Members(set string) [][]string {
	if t == nil {
		return nil
	}
	return t.sets[strings.ToLower(set)]
}

// Names returns all set names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.sets))
	for n := range t.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared sets.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.sets)
}
