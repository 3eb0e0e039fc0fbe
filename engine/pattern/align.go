package pattern

import (
	"strings"

	"github.com/nathoo/parley/engine/concepts"
	"github.com/nathoo/parley/engine/parser"
	"github.com/nathoo/parley/types"
)

// Align matches p against the whole token sequence. On success it returns
// one capture per capturing atom, numbered left to right. A skipped
// optional group captures "".
//
// The search is depth-first with backtracking: optional groups try to
// consume before skipping, wildcards take the shortest span first, and
// concept members are tried longest first. Failed (atom, token) positions
// are memoized so each is explored at most once.
func Align(p types.Pattern, tokens []string, sets *concepts.Table) ([]string, bool) {
	m := &matcher{
		atoms:  p.Atoms,
		tokens: tokens,
		sets:   sets,
		failed: map[[2]int]bool{},
	}
	caps := make([]string, 0, Captures(p))
	if !m.align(0, 0, &caps) {
		return nil, false
	}
	return caps, true
}

type matcher struct {
	atoms  []types.Atom
	tokens []string
	sets   *concepts.Table
	failed map[[2]int]bool
}

func (m *matcher) align(i, j int, caps *[]string) bool {
	if i == len(m.atoms) {
		return j == len(m.tokens)
	}
	key := [2]int{i, j}
	if m.failed[key] {
		return false
	}
	if m.try(i, j, caps) {
		return true
	}
	m.failed[key] = true
	return false
}

func (m *matcher) try(i, j int, caps *[]string) bool {
	a := m.atoms[i]
	mark := len(*caps)
	rest := m.tokens[j:]

	switch a.Kind {
	case types.AtomLiteral:
		return len(rest) > 0 && rest[0] == a.Word && m.align(i+1, j+1, caps)

	case types.AtomWildcard:
		least := 1
		if a.Wildcard == types.AnyZeroOrMore {
			least = 0
		}
		for n := 0; n <= len(rest); n++ {
			if n > 0 && !wildcardAccepts(a.Wildcard, rest[n-1]) {
				break
			}
			if n < least {
				continue
			}
			*caps = append(*caps, strings.Join(rest[:n], " "))
			if m.align(i+1, j+n, caps) {
				return true
			}
			*caps = (*caps)[:mark]
		}
		return false

	case types.AtomAlternation:
		for _, alt := range a.Alts {
			if m.consume(i, j, alt, a.Capture, caps) {
				return true
			}
		}

	case types.AtomConcept:
		for _, member := range m.sets.Members(a.Set) {
			if m.consume(i, j, member, a.Capture, caps) {
				return true
			}
		}
	}

	if a.Optional {
		if a.Capture {
			*caps = append(*caps, "")
		}
		if m.align(i+1, j, caps) {
			return true
		}
		*caps = (*caps)[:mark]
	}
	return false
}

// consume matches words as a prefix of the remaining tokens and continues
// with the next atom.
func (m *matcher) consume(i, j int, words []string, capture bool, caps *[]string) bool {
	rest := m.tokens[j:]
	if len(words) > len(rest) {
		return false
	}
	for k, w := range words {
		if rest[k] != w {
			return false
		}
	}
	mark := len(*caps)
	if capture {
		*caps = append(*caps, strings.Join(words, " "))
	}
	if m.align(i+1, j+len(words), caps) {
		return true
	}
	*caps = (*caps)[:mark]
	return false
}

func wildcardAccepts(kind types.WildcardKind, word string) bool {
	switch kind {
	case types.WordsOneOrMore:
		return parser.IsAlpha(word)
	case types.NumberOneOrMore:
		return parser.IsNumeric(word)
	default:
		return true
	}
}
