package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/parley/engine"
	"github.com/nathoo/parley/engine/dialogue"
	"github.com/nathoo/parley/engine/save"
	"github.com/nathoo/parley/observe"
	"github.com/nathoo/parley/types"
)

// DefaultSaveName is used by /save and /load without an argument.
const DefaultSaveName = "quicksave"

// SessionStore persists sessions by name. *store.Store implements it.
type SessionStore interface {
	Save(ctx context.Context, name string, s *types.Session) error
	Load(ctx context.Context, name string) (*save.SaveData, error)
	List(ctx context.Context) ([]string, error)
}

// Reloader recompiles the corpus on demand. *watch.Reloader implements it.
type Reloader interface {
	Reload() error
}

// StatsSource reports recorded metrics. *observe.Recorder implements it.
type StatsSource interface {
	Snapshot(ctx context.Context) (observe.Snapshot, error)
}

// Output is what one submitted line produced.
type Output struct {
	Input  string   // the line actually executed (after again/g expansion)
	Bot    string   // speaker name for Reply
	Reply  string   // empty when the line was a meta command or the turn failed
	System []string // meta command output and turn errors
	Trace  []string
	Quit   bool
}

// DisplayName returns the name to show for a bot, falling back to "bot"
// when the corpus and configuration leave it unset.
func DisplayName(name string) string {
	if name == "" || name == "undefined" {
		return "bot"
	}
	return name
}

// Shell executes chat lines and meta commands against one session. It is
// shared by the plain REPL and the TUI.
type Shell struct {
	Engine   *engine.Engine
	Session  *types.Session
	Store    SessionStore // nil disables /save and /load
	Reloader Reloader     // nil disables /reload
	Stats    StatsSource  // nil disables /stats
	Trace    bool

	lastInput string
}

// Exec runs one line.
func (sh *Shell) Exec(ctx context.Context, line string) Output {
	input := strings.TrimSpace(line)

	// "again" / "g" repeats the last chat line.
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if sh.lastInput == "" {
			return Output{Input: input, System: []string{"Nothing to repeat."}}
		}
		input = sh.lastInput
	}

	if strings.HasPrefix(input, "/") {
		return sh.meta(ctx, input)
	}
	sh.lastInput = input

	out := Output{Input: input, Bot: sh.Engine.BotName(sh.Session)}
	result, err := sh.Engine.Reply(sh.Session, input)
	if err != nil {
		out.System = []string{describeError(err)}
	} else {
		out.Reply = result.Reply
	}
	if sh.Trace {
		out.Trace = formatTrace(result, err)
	}
	return out
}

func describeError(err error) string {
	var nab *engine.NoApplicableBranch
	var rde *engine.RedirectDepthExceeded
	switch {
	case errors.As(err, &nab):
		return fmt.Sprintf("No reply: trigger %s has no applicable branch.", nab.Trigger)
	case errors.As(err, &rde):
		return fmt.Sprintf("No reply: redirects nested deeper than %d.", rde.Depth-1)
	case engine.IsTurnError(err):
		return "No reply."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func (sh *Shell) meta(ctx context.Context, input string) Output {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]
	out := Output{Input: input}

	var lines []string
	switch cmd {
	case "/quit", "/exit":
		lines = []string{"Goodbye."}
		out.Quit = true
	case "/help":
		lines = helpLines
	case "/save":
		lines = sh.cmdSave(ctx, nameArg(args))
	case "/load":
		lines = sh.cmdLoad(ctx, nameArg(args))
	case "/saves":
		lines = sh.cmdSaves(ctx)
	case "/topic":
		lines = sh.cmdTopic(args)
	case "/vars":
		lines = sh.cmdVars()
	case "/set":
		lines = sh.cmdSet(args)
	case "/history":
		lines = sh.cmdHistory()
	case "/triggers":
		lines = sh.cmdTriggers()
	case "/reload":
		lines = sh.cmdReload()
	case "/stats":
		lines = sh.cmdStats(ctx)
	case "/trace":
		sh.Trace = !sh.Trace
		if sh.Trace {
			lines = []string{"Trace output enabled."}
		} else {
			lines = []string{"Trace output disabled."}
		}
	default:
		lines = []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}
	}
	out.System = lines
	return out
}

var helpLines = []string{
	"Commands:",
	"  /save [name]     Save the conversation (default: quicksave)",
	"  /load [name]     Restore a saved conversation",
	"  /saves           List saved conversations",
	"  /topic [name]    Show or change the current topic",
	"  /vars            Show user and bot variables",
	"  /set name value  Set a user variable",
	"  /history         Show recent exchanges",
	"  /triggers        List triggers reachable from the current topic",
	"  /reload          Recompile the language files",
	"  /stats           Show turn and reload metrics",
	"  /trace           Toggle trace output",
	"  /quit            Exit",
	"",
	"Type anything else to talk. again (g) repeats your last line.",
}

func nameArg(args []string) string {
	if len(args) == 0 {
		return DefaultSaveName
	}
	return args[0]
}

func (sh *Shell) cmdSave(ctx context.Context, name string) []string {
	if sh.Store == nil {
		return []string{"Session store is disabled."}
	}
	if err := sh.Store.Save(ctx, name, sh.Session); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Conversation saved to %s.", name)}
}

func (sh *Shell) cmdLoad(ctx context.Context, name string) []string {
	if sh.Store == nil {
		return []string{"Session store is disabled."}
	}
	sd, err := sh.Store.Load(ctx, name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	save.ApplySave(sh.Session, sd)
	return []string{fmt.Sprintf("Conversation loaded from %s (turn %d, topic %s).", name, sd.Turn, sd.Topic)}
}

func (sh *Shell) cmdSaves(ctx context.Context) []string {
	if sh.Store == nil {
		return []string{"Session store is disabled."}
	}
	names, err := sh.Store.List(ctx)
	if err != nil {
		return []string{fmt.Sprintf("Listing saves failed: %v", err)}
	}
	if len(names) == 0 {
		return []string{"No saved conversations."}
	}
	return []string{"Saves: " + strings.Join(names, ", ")}
}

func (sh *Shell) cmdTopic(args []string) []string {
	if len(args) == 0 {
		return []string{fmt.Sprintf("Topic: %s", sh.Session.Topic)}
	}
	name := strings.ToLower(args[0])
	if sh.Engine.Index().Topic(name) == nil {
		names := sh.Engine.Index().TopicNames()
		sort.Strings(names)
		return []string{fmt.Sprintf("Unknown topic: %s. Topics: %s", name, strings.Join(names, ", "))}
	}
	sh.Session.Topic = name
	return []string{fmt.Sprintf("Topic set to %s.", name)}
}

func (sh *Shell) cmdVars() []string {
	lines := []string{fmt.Sprintf("Turn: %d", sh.Session.TurnCount)}
	lines = append(lines, formatVars("User", sh.Session.Vars)...)
	lines = append(lines, formatVars("Bot", sh.Session.Bot)...)
	return lines
}

func formatVars(label string, vars map[string]string) []string {
	if len(vars) == 0 {
		return []string{label + ": (none)"}
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := []string{label + ":"}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s = %s", k, vars[k]))
	}
	return lines
}

func (sh *Shell) cmdSet(args []string) []string {
	if len(args) < 2 {
		return []string{"Usage: /set name value"}
	}
	if sh.Session.Vars == nil {
		sh.Session.Vars = map[string]string{}
	}
	name := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")
	sh.Session.Vars[name] = value
	return []string{fmt.Sprintf("%s = %s", name, value)}
}

func (sh *Shell) cmdHistory() []string {
	if len(sh.Session.History) == 0 {
		return []string{"No history yet."}
	}
	var lines []string
	for i := len(sh.Session.History) - 1; i >= 0; i-- {
		ex := sh.Session.History[i]
		lines = append(lines, fmt.Sprintf("%d. %s -> %s", i+1, ex.Input, ex.Reply))
	}
	return lines
}

func (sh *Shell) cmdTriggers() []string {
	entries := dialogue.Reachable(sh.Engine.Index(), sh.Session.Topic, sh.Engine.Precedence())
	lines := []string{fmt.Sprintf("Reachable from %s (%s):", sh.Session.Topic, sh.Engine.Precedence())}
	for _, e := range entries {
		line := fmt.Sprintf("  %-32s %s:%d", e.Trigger.Pattern.Source, e.Trigger.File, e.Trigger.Line)
		if e.Via != "" {
			line += " via " + e.Via
		}
		lines = append(lines, line)
	}
	return lines
}

func (sh *Shell) cmdReload() []string {
	if sh.Reloader == nil {
		return []string{"Reload is not available."}
	}
	if err := sh.Reloader.Reload(); err != nil {
		return append([]string{"Reload failed; keeping the current index."}, strings.Split(err.Error(), "\n")...)
	}
	idx := sh.Engine.Index()
	return []string{fmt.Sprintf("Reloaded %d triggers in %d topics.", idx.Triggers, len(idx.Topics))}
}

func (sh *Shell) cmdStats(ctx context.Context) []string {
	if sh.Stats == nil {
		return []string{"Stats are not enabled."}
	}
	snap, err := sh.Stats.Snapshot(ctx)
	if err != nil {
		return []string{fmt.Sprintf("Stats failed: %v", err)}
	}
	return strings.Split(snap.String(), "\n")
}

func formatTrace(result types.Result, err error) []string {
	if err != nil {
		return []string{fmt.Sprintf("[trace] error: %v", err)}
	}
	lines := []string{
		fmt.Sprintf("[trace] trigger: %s", result.Trigger),
		fmt.Sprintf("[trace] topic: %s", result.Topic),
	}
	if len(result.Stars) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] stars: %q", result.Stars))
	}
	for _, e := range result.Effects {
		lines = append(lines, fmt.Sprintf("[trace] effect: %s %v", e.Type, e.Params))
	}
	for _, e := range result.Events {
		lines = append(lines, fmt.Sprintf("[trace] event: %s", e.Type))
	}
	return lines
}
