// Package events is the in-process pub/sub fabric: investigation outcomes
// and blacklist hits flow through one EventBus and fan out to the webhook
// dispatcher and the websocket stream.
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names published by the investigation pipeline and agent runtime.
const (
	InvestigationCompleted = "investigation.completed"
	InvestigationDegraded  = "investigation.degraded"
	BlacklistHit           = "blacklist.hit"
	AgentStateChanged      = "agent.state_changed"
)

// Event is the envelope every subscriber receives.
type Event struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Source  string      `json:"source"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}

// JSON serializes the event.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventBus is an in-process pub/sub bus. Delivery is best-effort: a slow
// subscriber with a full channel is skipped, never blocked on.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *Event // event type -> channels
	allSubs     []chan *Event
	logger      *log.Logger
	bufferSize  int
	source      string
}

// NewEventBus creates an event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan *Event),
		logger:      log.New(log.Writer(), "[EVENTS] ", log.LstdFlags),
		bufferSize:  100,
		source:      "ghost-wallet-hunter",
	}
}

// Subscribe creates a channel that receives events of the given types.
// Pass no types to receive everything.
func (eb *EventBus) Subscribe(eventTypes ...string) chan *Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan *Event, eb.bufferSize)
	if len(eventTypes) == 0 {
		eb.allSubs = append(eb.allSubs, ch)
	} else {
		for _, et := range eventTypes {
			eb.subscribers[et] = append(eb.subscribers[et], ch)
		}
	}
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (eb *EventBus) Unsubscribe(ch chan *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for et, subs := range eb.subscribers {
		filtered := subs[:0]
		for _, s := range subs {
			if s != ch {
				filtered = append(filtered, s)
			}
		}
		eb.subscribers[et] = filtered
	}

	filtered := eb.allSubs[:0]
	for _, s := range eb.allSubs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	eb.allSubs = filtered

	close(ch)
}

// Publish wraps the payload in an envelope and fans it out. Satisfies the
// publisher interface the strategy pipeline expects; never blocks.
func (eb *EventBus) Publish(eventType string, payload interface{}) {
	event := &Event{
		ID:      "evt-" + uuid.NewString(),
		Type:    eventType,
		Source:  eb.source,
		Time:    time.Now().UTC(),
		Payload: payload,
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[eventType] {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full, drop for this subscriber.
		}
	}
	for _, ch := range eb.allSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscription channels.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	count := len(eb.allSubs)
	for _, subs := range eb.subscribers {
		count += len(subs)
	}
	return count
}
