// Package pattern compiles trigger source text into atom sequences and
// aligns them against tokenized utterances.
package pattern

import (
	"fmt"
	"strings"

	"github.com/nathoo/parley/engine/concepts"
	"github.com/nathoo/parley/engine/parser"
	"github.com/nathoo/parley/types"
)

// Specificity weights per atom kind.
const (
	scoreLiteral  = 100
	scoreRequired = 60
	scoreOptional = 10
	scoreTyped    = 0
	scoreStar     = -1
)

// Error describes why a pattern failed to compile.
type Error struct {
	Source string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pattern %q: %s", e.Source, e.Reason)
}

// Compile parses src into a matchable pattern. Concept references must
// name a set present in sets.
//
//	hello *               literal then zero-or-more wildcard
//	[please] (help|aid)   optional word, required alternation
//	i like (@colour)      capturing concept reference
//	*                     catch-all
func Compile(src string, sets *concepts.Table) (types.Pattern, error) {
	p := types.Pattern{Source: src}
	src = strings.TrimSpace(src)
	if src == "" {
		return p, &Error{Source: p.Source, Reason: "empty pattern"}
	}
	if src == "*" {
		p.CatchAll = true
		p.Atoms = []types.Atom{{Kind: types.AtomWildcard, Wildcard: types.AnyZeroOrMore, Capture: true}}
		p.Specificity = scoreStar
		return p, nil
	}

	raw, err := split(src)
	if err != nil {
		return p, &Error{Source: p.Source, Reason: err.Error()}
	}
	for _, tok := range raw {
		atoms, err := compileToken(tok, sets)
		if err != nil {
			return p, &Error{Source: p.Source, Reason: err.Error()}
		}
		p.Atoms = append(p.Atoms, atoms...)
	}
	if len(p.Atoms) == 0 {
		return p, &Error{Source: p.Source, Reason: "no matchable atoms"}
	}
	p.Specificity = Specificity(p.Atoms)
	return p, nil
}

// split breaks src on whitespace, keeping bracketed groups intact.
func split(src string) ([]string, error) {
	var out []string
	var cur strings.Builder
	var closer byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case closer != 0:
			cur.WriteByte(c)
			if c == closer {
				closer = 0
			} else if c == '(' || c == '[' {
				return nil, fmt.Errorf("nested group at offset %d", i)
			}
		case c == '(':
			cur.WriteByte(c)
			closer = ')'
		case c == '[':
			cur.WriteByte(c)
			closer = ']'
		case c == ')' || c == ']':
			return nil, fmt.Errorf("unbalanced %q at offset %d", c, i)
		case c == ' ' || c == '\t':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if closer != 0 {
		return nil, fmt.Errorf("unclosed group, expected %q", closer)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out, nil
}

func compileToken(tok string, sets *concepts.Table) ([]types.Atom, error) {
	switch tok {
	case "*", "[*]", "(*)":
		return []types.Atom{{Kind: types.AtomWildcard, Wildcard: types.AnyZeroOrMore, Capture: true}}, nil
	case "_":
		return []types.Atom{{Kind: types.AtomWildcard, Wildcard: types.WordsOneOrMore, Capture: true}}, nil
	case "#":
		return []types.Atom{{Kind: types.AtomWildcard, Wildcard: types.NumberOneOrMore, Capture: true}}, nil
	}

	if strings.HasPrefix(tok, "@") {
		a, err := conceptAtom(tok[1:], sets)
		return []types.Atom{a}, err
	}

	if n := len(tok); n >= 2 && (tok[0] == '(' || tok[0] == '[') {
		optional := tok[0] == '['
		inner := strings.TrimSpace(tok[1 : n-1])
		if inner == "" {
			return nil, fmt.Errorf("empty group %s", tok)
		}
		if strings.HasPrefix(inner, "@") {
			a, err := conceptAtom(inner[1:], sets)
			a.Optional = optional
			a.Capture = true
			return []types.Atom{a}, err
		}
		a := types.Atom{Kind: types.AtomAlternation, Optional: optional, Capture: true}
		for _, alt := range strings.Split(inner, "|") {
			words := parser.Tokenize(alt)
			if len(words) == 0 {
				return nil, fmt.Errorf("empty alternative in %s", tok)
			}
			a.Alts = append(a.Alts, words)
		}
		return []types.Atom{a}, nil
	}

	var atoms []types.Atom
	for _, w := range parser.Tokenize(tok) {
		atoms = append(atoms, types.Atom{Kind: types.AtomLiteral, Word: w})
	}
	return atoms, nil
}

func conceptAtom(name string, sets *concepts.Table) (types.Atom, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return types.Atom{}, fmt.Errorf("empty concept reference")
	}
	if !sets.Has(name) {
		return types.Atom{}, fmt.Errorf("unknown concept set @%s", name)
	}
	return types.Atom{Kind: types.AtomConcept, Set: name}, nil
}

// Specificity scores an atom sequence. Literals dominate, then required
// groups, then optional groups; open wildcards count against the pattern.
func Specificity(atoms []types.Atom) int {
	score := 0
	for _, a := range atoms {
		switch a.Kind {
		case types.AtomLiteral:
			score += scoreLiteral
		case types.AtomWildcard:
			if a.Wildcard == types.AnyZeroOrMore {
				score += scoreStar
			} else {
				score += scoreTyped
			}
		case types.AtomAlternation, types.AtomConcept:
			if a.Optional {
				score += scoreOptional
			} else {
				score += scoreRequired
			}
		}
	}
	return score
}

// Captures returns how many star bindings a successful alignment of p
// produces.
func Captures(p types.Pattern) int {
	n := 0
	for _, a := range p.Atoms {
		if a.Capture {
			n++
		}
	}
	return n
}
