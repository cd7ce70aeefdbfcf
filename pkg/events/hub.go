package events

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before new events are dropped for it.
const subscriberBuffer = 64

type stateKey struct {
	name string
	key  string
}

// EventHub fans events out to SSE subscribers. Events published with
// PublishState are also retained, one per name and key, so that a subscriber
// joining late can be brought up to date.
type EventHub struct {
	mu    sync.RWMutex
	subs  map[chan Event]struct{}
	state map[stateKey]Event
}

func NewEventHub() *EventHub {
	return &EventHub{
		subs:  make(map[chan Event]struct{}),
		state: make(map[stateKey]Event),
	}
}

// Subscribe returns a channel receiving every event published from now on.
func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// SubscribeWithState is like Subscribe, but the channel starts with the
// retained state events, ordered by name and key.
func (h *EventHub) SubscribeWithState() chan Event {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range h.stateLocked() {
		select {
		case ch <- ev:
		default:
		}
	}
	h.subs[ch] = struct{}{}

	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of active subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// State returns the retained state events, ordered by name and key.
func (h *EventHub) State() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stateLocked()
}

func (h *EventHub) stateLocked() []Event {
	keys := make([]stateKey, 0, len(h.state))
	for k := range h.state {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].key < keys[j].key
	})

	out := make([]Event, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.state[k])
	}
	return out
}

// Publish sends an event to every subscriber.
func (h *EventHub) Publish(name string, payload any) {
	h.publish(name, nil, payload)
}

// PublishState sends an event to every subscriber and keeps it as the
// current state for name and key, replacing the previous one.
func (h *EventHub) PublishState(name, key string, payload any) {
	h.publish(name, &key, payload)
}

func (h *EventHub) publish(name string, key *string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("event", name).Errorf("failed to marshal event payload: %v", err)
		return
	}
	msg := Event{Name: name, Data: b}

	if key != nil {
		h.mu.Lock()
		h.state[stateKey{name: name, key: *key}] = msg
		h.mu.Unlock()
	}

	h.mu.RLock()
	for ch := range h.subs {
		// Non-blocking send; drop if subscriber is slow
		select {
		case ch <- msg:
		default:
		}
	}
	h.mu.RUnlock()
}
