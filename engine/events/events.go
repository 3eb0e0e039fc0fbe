// Package events implements single-pass event dispatch to subscribed
// handlers. Handlers observe events but cannot emit new ones.
package events

import (
	"sync"

	"github.com/nathoo/parley/types"
)

// Turn-level event types. Effect-level events (topic_changed, var_set)
// are defined by the effects package.
const (
	Reply            = "reply"
	Redirect         = "redirect"
	NoResponse       = "no_response"
	NoBranch         = "no_branch"
	RedirectOverflow = "redirect_overflow"
	IndexSwapped     = "index_swapped"
)

// Handler receives one event.
type Handler func(types.Event)

// Bus fans events out to handlers. Safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Subscribe registers h for eventType. An empty eventType receives every
// event.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if eventType == "" {
		b.all = append(b.all, h)
		return
	}
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Dispatch delivers events in order. Single pass, no recursion: handlers
// run synchronously in subscription order.
func (b *Bus) Dispatch(events []types.Event) {
	if b == nil || len(events) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, event := range events {
		for _, h := range b.handlers[event.Type] {
			h(event)
		}
		for _, h := range b.all {
			h(event)
		}
	}
}
