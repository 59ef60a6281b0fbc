package events

import (
	"fmt"
	"sync"

	"github.com/mezonai/mnlight/exception"
	"github.com/mezonai/mnlight/logx"
)

// Handler reacts to one event. Handlers run on the router goroutine, never on the
// publisher's.
type Handler func(ChainEvent)

// EventRouter dispatches events from one bus subscription to per-type handlers
type EventRouter struct {
	eventBus *EventBus
	handlers map[EventType][]Handler
	mu       sync.RWMutex

	id      SubscriberID
	running bool
	done    chan struct{}
}

// NewEventRouter creates a new EventRouter instance
func NewEventRouter(eventBus *EventBus) *EventRouter {
	return &EventRouter{
		eventBus: eventBus,
		handlers: make(map[EventType][]Handler),
	}
}

// Handle registers h for events of type t. Registrations after Start are ignored
// until the router is restarted.
func (er *EventRouter) Handle(t EventType, h Handler) {
	er.mu.Lock()
	defer er.mu.Unlock()
	er.handlers[t] = append(er.handlers[t], h)
}

// Start subscribes to the handled event types and begins dispatching.
func (er *EventRouter) Start() {
	er.mu.Lock()
	defer er.mu.Unlock()
	if er.running {
		return
	}

	types := make([]EventType, 0, len(er.handlers))
	for t := range er.handlers {
		types = append(types, t)
	}
	id, ch := er.eventBus.SubscribeTypes(types...)
	er.id = id
	er.running = true
	er.done = make(chan struct{})

	done := er.done
	exception.SafeGo("events.EventRouter", func() {
		defer close(done)
		for ev := range ch {
			er.dispatch(ev)
		}
	})
}

func (er *EventRouter) dispatch(ev ChainEvent) {
	er.mu.RLock()
	hs := er.handlers[ev.Type()]
	er.mu.RUnlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logx.Error("EVENTROUTER", fmt.Sprintf("handler for %s panicked: %v", ev.Type(), r))
				}
			}()
			h(ev)
		}()
	}
}

// Stop unsubscribes and waits for in-flight handlers to finish.
func (er *EventRouter) Stop() {
	er.mu.Lock()
	if !er.running {
		er.mu.Unlock()
		return
	}
	er.running = false
	id, done := er.id, er.done
	er.mu.Unlock()

	er.eventBus.Unsubscribe(id)
	<-done
}
