// Package engine provides the Respond() orchestrator that wires together
// tokenizing, matching, condition evaluation, response resolution and
// effects into a single turn.
package engine

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathoo/parley/engine/effects"
	"github.com/nathoo/parley/engine/events"
	"github.com/nathoo/parley/engine/parser"
	"github.com/nathoo/parley/engine/reply"
	"github.com/nathoo/parley/engine/rules"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/types"
)

// Defaults.
const (
	DefaultMaxRedirectDepth = 10
	DefaultHistorySize      = 9
	DefaultUndefined        = "undefined"
)

// Replies starting with one of errPrefixes are corpus-authored failures
// and are reported as NoResponseAvailable.
var errPrefixes = []string{"ERR:", "[ERR:"}

func isErrReply(text string) bool {
	for _, p := range errPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// ErrNoSession is returned by Reply for a nil session or one without an ID.
var ErrNoSession = errors.New("engine: session has no id")

// Engine resolves turns against the current index. The index is swapped
// atomically on reload; sessions are owned by callers.
type Engine struct {
	index atomic.Pointer[state.Index]

	rng         *RNG
	bus         *events.Bus
	log         *zap.Logger
	maxDepth    int
	historySize int
	precedence  rules.Precedence
	botVars     map[string]string
	undefined   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxRedirectDepth bounds nested {@ ...} redirects.
func WithMaxRedirectDepth(n int) Option {
	return func(e *Engine) { e.maxDepth = n }
}

// WithHistorySize sets how many exchanges each session keeps.
func WithHistorySize(n int) Option {
	return func(e *Engine) { e.historySize = n }
}

// WithPrecedence selects how topic catch-alls compete with baseline
// triggers.
func WithPrecedence(p rules.Precedence) Option {
	return func(e *Engine) { e.precedence = p }
}

// WithSeed seeds the process-wide random source. Zero means time-based.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = NewRNG(seed) }
}

// WithBotVars supplies bot variables (name, mood, ...) that override the
// corpus defaults.
func WithBotVars(vars map[string]string) Option {
	return func(e *Engine) {
		e.botVars = make(map[string]string, len(vars))
		for k, v := range vars {
			e.botVars[k] = v
		}
	}
}

// WithUndefined sets the text substituted for unknown variables.
func WithUndefined(s string) Option {
	return func(e *Engine) { e.undefined = s }
}

// New creates an engine serving idx.
func New(idx *state.Index, opts ...Option) *Engine {
	e := &Engine{
		bus:         events.NewBus(),
		log:         zap.NewNop(),
		maxDepth:    DefaultMaxRedirectDepth,
		historySize: DefaultHistorySize,
		botVars:     map[string]string{},
		undefined:   DefaultUndefined,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRNG(0)
	}
	e.index.Store(idx)
	e.log.Debug("engine ready",
		zap.Int64("seed", e.rng.Seed()),
		zap.Stringer("precedence", e.precedence),
		zap.Int("max_redirect_depth", e.maxDepth))
	return e
}

// Index returns the index new turns resolve against.
func (e *Engine) Index() *state.Index {
	return e.index.Load()
}

// Swap installs idx for all subsequent turns and returns the previous
// index. Turns already in flight finish against the index they loaded.
// A nil idx is ignored and Swap returns nil.
func (e *Engine) Swap(idx *state.Index) *state.Index {
	if idx == nil {
		e.log.Warn("ignoring swap to a nil index")
		return nil
	}
	old := e.index.Swap(idx)
	e.log.Info("index swapped",
		zap.Int("topics", len(idx.Topics)),
		zap.Int("triggers", idx.Triggers))
	e.bus.Dispatch([]types.Event{{
		Type: events.IndexSwapped,
		Data: map[string]any{"topics": len(idx.Topics), "triggers": idx.Triggers},
	}})
	return old
}

// Subscribe registers h for events of eventType ("" for all).
func (e *Engine) Subscribe(eventType string, h events.Handler) {
	e.bus.Subscribe(eventType, h)
}

// Precedence returns the configured matching precedence.
func (e *Engine) Precedence() rules.Precedence {
	return e.precedence
}

// BotName returns the bot's name as seen by s.
func (e *Engine) BotName(s *types.Session) string {
	name, _ := state.GetBot(s, e.Index(), e.botVars, "name")
	return name
}

// NewSession creates a session in the baseline topic. An empty id is
// replaced by a random UUID.
func (e *Engine) NewSession(id string) *types.Session {
	if id == "" {
		id = uuid.NewString()
	}
	return state.NewSession(id)
}

// Reply is the entry point for raw chat lines: it strips IRC control
// codes, decides whether the line was addressed to the bot by name and
// resolves it.
func (e *Engine) Reply(s *types.Session, raw string) (types.Result, error) {
	if s == nil || s.ID == "" {
		return types.Result{}, ErrNoSession
	}
	msg := parser.StripControl(raw)
	return e.Respond(s, msg, parser.Directed(msg, e.BotName(s)))
}

// Respond resolves one turn. On success the session receives the new
// captures, directed flag, scheduled effects and a history entry. On
// failure the session is left exactly as it was and err is one of
// *NoApplicableBranch, *RedirectDepthExceeded or *NoResponseAvailable.
// A nil session returns ErrNoSession.
func (e *Engine) Respond(s *types.Session, utterance string, directed bool) (types.Result, error) {
	if s == nil {
		return types.Result{}, ErrNoSession
	}
	start := time.Now()
	idx := e.index.Load()
	tokens := parser.Tokenize(utterance)

	// Resolution sees the new directed flag but the pre-turn topic, vars
	// and history. Nothing below writes to view.
	view := *s
	view.Directed = directed

	t := &turn{e: e, idx: idx, view: &view}
	m, err := t.resolve(tokens, 0)
	if err == nil && isErrReply(m.text) {
		err = &NoResponseAvailable{Input: strings.Join(tokens, " "), Topic: s.Topic}
	}
	if err != nil {
		e.fail(s, utterance, err, time.Since(start))
		return types.Result{Topic: s.Topic}, err
	}

	result := types.Result{
		Reply:   m.text,
		Trigger: m.trigger.ID,
		Stars:   m.stars,
		Effects: m.effects,
	}

	// Commit.
	result.Events = effects.Apply(s, m.effects)
	s.Stars = m.stars
	s.Directed = directed
	s.History = append([]types.Exchange{{Input: strings.Join(tokens, " "), Reply: m.text}}, s.History...)
	if len(s.History) > e.historySize {
		s.History = s.History[:e.historySize]
	}
	s.TurnCount++
	result.Topic = s.Topic

	for _, r := range t.redirects {
		result.Events = append(result.Events, types.Event{
			Type: events.Redirect,
			Data: map[string]any{"session": s.ID, "target": r},
		})
	}
	result.Events = append(result.Events, types.Event{
		Type: events.Reply,
		Data: map[string]any{
			"session":   s.ID,
			"trigger":   m.trigger.ID,
			"topic":     s.Topic,
			"redirects": len(t.redirects),
			"elapsed":   time.Since(start),
		},
	})

	e.log.Debug("turn resolved",
		zap.String("session", s.ID),
		zap.String("trigger", m.trigger.ID),
		zap.Strings("stars", m.stars),
		zap.String("topic", s.Topic),
		zap.Int("redirects", len(t.redirects)),
		zap.Int64("rng_pos", e.rng.Position()))

	e.bus.Dispatch(result.Events)
	return result, nil
}

func (e *Engine) fail(s *types.Session, utterance string, err error, elapsed time.Duration) {
	typ := events.NoResponse
	var nab *NoApplicableBranch
	var rde *RedirectDepthExceeded
	switch {
	case errors.As(err, &nab):
		typ = events.NoBranch
	case errors.As(err, &rde):
		typ = events.RedirectOverflow
		e.log.Warn("redirect depth exceeded",
			zap.String("session", s.ID),
			zap.String("input", utterance),
			zap.Int("depth", rde.Depth))
	}
	e.log.Debug("turn failed", zap.String("session", s.ID), zap.Error(err))
	e.bus.Dispatch([]types.Event{{
		Type: typ,
		Data: map[string]any{
			"session": s.ID,
			"input":   utterance,
			"topic":   s.Topic,
			"error":   err.Error(),
			"elapsed": elapsed,
		},
	}})
}

// turn carries the per-turn resolution context shared by nested
// redirects.
type turn struct {
	e         *Engine
	idx       *state.Index
	view      *types.Session
	redirects []string
}

type match struct {
	trigger *types.Trigger
	stars   []string
	text    string
	effects []types.Effect
}

// resolve matches tokens in the pre-turn topic and resolves the first
// candidate that yields a usable branch. A catch-all without a usable
// branch defers to the next catch-all; a specific trigger without one
// fails the turn.
func (t *turn) resolve(tokens []string, depth int) (match, error) {
	for _, c := range rules.Match(t.idx, tokens, t.view.Topic, t.e.precedence) {
		r := &reply.Resolver{
			Session:   t.view,
			Index:     t.idx,
			BotVars:   t.e.botVars,
			Stars:     c.Stars,
			Undefined: t.e.undefined,
			RNG:       t.e.rng,
			Depth:     depth,
			Redirect:  t.redirect,
		}
		group, _, ok := rules.SelectBranch(c.Trigger, r.Substitute)
		if !ok {
			if c.Trigger.Pattern.CatchAll {
				continue
			}
			return match{}, &NoApplicableBranch{Trigger: c.Trigger.ID, Topic: c.Trigger.Topic}
		}
		text, effs, err := r.Resolve(group)
		if err != nil {
			return match{}, err
		}
		return match{trigger: c.Trigger, stars: c.Stars, text: text, effects: effs}, nil
	}
	return match{}, &NoResponseAvailable{Input: strings.Join(tokens, " "), Topic: t.view.Topic}
}

func (t *turn) redirect(utterance string, depth int) (string, []types.Effect, error) {
	if depth > t.e.maxDepth {
		return "", nil, &RedirectDepthExceeded{Depth: depth, Utterance: utterance}
	}
	t.redirects = append(t.redirects, utterance)
	m, err := t.resolve(parser.Tokenize(utterance), depth)
	if err != nil {
		return "", nil, err
	}
	return m.text, m.effects, nil
}
