// Package effects implements centralized session mutation via the Apply
// function. Every effect type is one atomic operation. No logic in effects.
package effects

import (
	"fmt"

	"github.com/nathoo/parley/types"
)

// Effect types.
const (
	SetTopic = "set_topic"
	SetVar   = "set_var"
	SetBot   = "set_bot"
)

// Event types emitted by Apply.
const (
	EventTopicChanged = "topic_changed"
	EventVarSet       = "var_set"
	EventBotSet       = "bot_set"
)

// Apply applies effects to the session in order, mutating it, and returns
// the events emitted. Unknown effect types are ignored.
func Apply(s *types.Session, effects []types.Effect) []types.Event {
	var events []types.Event

	for _, eff := range effects {
		switch eff.Type {
		case SetTopic:
			topic := str(eff.Params["topic"])
			if topic == "" || topic == s.Topic {
				continue
			}
			from := s.Topic
			s.Topic = topic
			events = append(events, types.Event{
				Type: EventTopicChanged,
				Data: map[string]any{"from": from, "to": topic},
			})

		case SetVar:
			name := str(eff.Params["name"])
			if name == "" {
				continue
			}
			value := str(eff.Params["value"])
			if s.Vars == nil {
				s.Vars = map[string]string{}
			}
			// Assigning the literal "undefined" clears the variable.
			if value == "undefined" {
				delete(s.Vars, name)
			} else {
				s.Vars[name] = value
			}
			events = append(events, types.Event{
				Type: EventVarSet,
				Data: map[string]any{"name": name, "value": value},
			})

		case SetBot:
			name := str(eff.Params["name"])
			if name == "" {
				continue
			}
			if s.Bot == nil {
				s.Bot = map[string]string{}
			}
			s.Bot[name] = str(eff.Params["value"])
			events = append(events, types.Event{
				Type: EventBotSet,
				Data: map[string]any{"name": name, "value": s.Bot[name]},
			})
		}
	}

	return events
}

// str converts a param to a string, handling values decoded from JSON or
// Lua that are not already strings.
func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
