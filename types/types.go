// Package types defines the shared data structures for the parley engine.
// This package contains only type definitions, no logic.
package types

// BaselineTopic is the topic active when no narrower topic has been set.
const BaselineTopic = "random"

// AtomKind identifies the shape of a compiled pattern atom.
type AtomKind int

const (
	AtomLiteral AtomKind = iota
	AtomWildcard
	AtomAlternation
	AtomConcept
)

// WildcardKind narrows what a wildcard atom may consume.
type WildcardKind int

const (
	AnyZeroOrMore   WildcardKind = iota // * and [*]
	WordsOneOrMore                      // _
	NumberOneOrMore                     // #
)

// Atom is one element of a compiled trigger pattern.
type Atom struct {
	Kind     AtomKind
	Word     string       // AtomLiteral
	Wildcard WildcardKind // AtomWildcard
	Alts     [][]string   // AtomAlternation: each alternative is a token sequence
	Set      string       // AtomConcept
	Optional bool
	Capture  bool
}

// Pattern is the compiled, matchable form of a trigger's source text.
type Pattern struct {
	Source      string
	Atoms       []Atom
	Specificity int
	CatchAll    bool
}

// CompareOp is a condition comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Condition compares two tag-bearing expressions after substitution.
type Condition struct {
	Left  string // e.g. "<bot mood>"
	Op    CompareOp
	Right string
}

// Template is a single response template with its selection weight.
type Template struct {
	Text   string
	Weight int
}

// ResponseGroup is a weighted set of templates. Cumulative holds the
// prefix sums of the weights and is built once at compile time.
type ResponseGroup struct {
	Templates  []Template
	Cumulative []int
}

// ConditionBranch pairs a condition with the replies used when it holds.
type ConditionBranch struct {
	Cond  Condition
	Reply ResponseGroup
}

// Trigger maps an input pattern to conditional and fallback responses.
type Trigger struct {
	ID          string
	Topic       string
	Pattern     Pattern
	Branches    []ConditionBranch
	Replies     ResponseGroup // unconditioned fallback, may be empty
	SourceOrder int
	File        string
	Line        int
}

// Topic is a named scope restricting which triggers are reachable.
type Topic struct {
	Name      string
	Parent    string   // enclosing topic for nested blocks
	Inherits  []string // additional topics whose triggers are reachable
	Exclusive bool     // baseline triggers are not reachable from this topic
	Triggers  []*Trigger
	CatchAll  *Trigger
}

// Exchange is one completed turn kept in session history.
type Exchange struct {
	Input string
	Reply string
}

// Session is the complete mutable state of one conversation.
type Session struct {
	ID        string
	Topic     string
	Stars     []string
	Directed  bool
	Vars      map[string]string
	Bot       map[string]string // per-session bot overrides
	History   []Exchange        // newest first
	TurnCount int
}

// Effect is a single atomic session mutation instruction.
type Effect struct {
	Type   string
	Params map[string]any
}

// Event is emitted after effects are applied or a turn completes.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single resolved turn.
type Result struct {
	Reply   string
	Trigger string // ID of the trigger that produced the reply
	Topic   string // session topic after the turn
	Stars   []string
	Effects []Effect
	Events  []Event
}
