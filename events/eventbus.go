package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/mnlight/logx"
	"github.com/mezonai/mnlight/monitoring"
)

const DefaultBufferSize = 50

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan ChainEvent
	filter  map[EventType]struct{}
}

func (s *Subscriber) wants(t EventType) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[t]
	return ok
}

// EventBus fans events out to buffered subscriber channels. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	bufferSize  int
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return NewEventBusWithBuffer(DefaultBufferSize)
}

func NewEventBusWithBuffer(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
		bufferSize:  bufferSize,
	}
}

func (eb *EventBus) generateUUIDID() SubscriberID {
	id := uuid.Must(uuid.NewV7())
	return SubscriberID(id.String())
}

// Subscribe receives every event.
func (eb *EventBus) Subscribe() (SubscriberID, chan ChainEvent) {
	return eb.SubscribeTypes()
}

// SubscribeTypes receives only the given event types; none means all.
func (eb *EventBus) SubscribeTypes(types ...EventType) (SubscriberID, chan ChainEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.generateUUIDID()

	ch := make(chan ChainEvent, eb.bufferSize)
	subscriber := &Subscriber{
		ID:      id,
		Channel: ch,
	}
	if len(types) > 0 {
		subscriber.filter = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			subscriber.filter[t] = struct{}{}
		}
	}

	eb.subscribers[id] = subscriber

	logx.Info("EVENTBUS", fmt.Sprintf("Client subscribed to chain events | subscriber_id=%s | types=%v | total_subscribers=%d", id, types, len(eb.subscribers)))

	return id, ch
}

// Unsubscribe removes a subscription by ID
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("EVENTBUS", fmt.Sprintf("Attempted to unsubscribe non-existent subscriber | subscriber_id=%s", id))
		return false
	}

	delete(eb.subscribers, id)
	close(subscriber.Channel)

	logx.Info("EVENTBUS", fmt.Sprintf("Client unsubscribed from events | subscriber_id=%s | remaining_subscribers=%d", id, len(eb.subscribers)))
	return true
}

// Publish publishes an event to all interested subscribers
func (eb *EventBus) Publish(event ChainEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subscribers) == 0 {
		logx.Debug("EVENTBUS", fmt.Sprintf("No subscribers for event | event_type=%s | height=%d", event.Type(), event.Height()))
		return
	}

	logx.Debug("EVENTBUS", fmt.Sprintf("Publishing event | event_type=%s | height=%d | block=%s | subscribers=%d",
		event.Type(), event.Height(), event.BlockHash(), len(eb.subscribers)))

	for id, subscriber := range eb.subscribers {
		if !subscriber.wants(event.Type()) {
			continue
		}
		select {
		case subscriber.Channel <- event:
		default:
			monitoring.IncreaseDroppedEvents()
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full | subscriber_id=%s | event_type=%s | height=%d", id, event.Type(), event.Height()))
		}
	}
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers)
}

// GetSubscriberIDs returns a slice of all active subscriber IDs
func (eb *EventBus) GetSubscriberIDs() []SubscriberID {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	ids := make([]SubscriberID, 0, len(eb.subscribers))
	for id := range eb.subscribers {
		ids = append(ids, id)
	}
	return ids
}

// HasSubscriber checks if a subscriber with the given ID exists
func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	_, exists := eb.subscribers[id]
	return exists
}
