package behavior

import (
	"time"

	"github.com/splitkb/battext/pkg/keycode"
	"github.com/splitkb/battext/pkg/queue"
)

// Emitter queues key press taps on behalf of one triggering event.
type Emitter struct {
	event queue.Event
	sink  queue.Sink
}

// NewEmitter returns an Emitter queueing into sink for ev.
func NewEmitter(ev queue.Event, sink queue.Sink) *Emitter {
	return &Emitter{event: ev, sink: sink}
}

// EmitChar queues a press of kc held for hold, then its release followed by
// gap. Both items are submitted together so nothing lands between them.
func (e *Emitter) EmitChar(kc keycode.Keycode, hold, gap time.Duration) error {
	b := queue.Binding{BehaviorDev: queue.KeyPress, Param1: kc}
	return e.sink.Add(
		queue.Item{Event: e.event, Binding: b, Pressed: true, Wait: hold},
		queue.Item{Event: e.event, Binding: b, Pressed: false, Wait: gap},
	)
}

var _ queue.Sink = &Sequence{}

// Sequence buffers the items of one trigger so they can be submitted to the
// real queue in a single all-or-nothing call.
type Sequence struct {
	items []queue.Item
}

func (s *Sequence) Add(items ...queue.Item) error {
	s.items = append(s.items, items...)
	return nil
}

// Items returns the buffered items.
func (s *Sequence) Items() []queue.Item {
	return s.items
}

// Len returns the number of buffered items.
func (s *Sequence) Len() int {
	return len(s.items)
}

// Flush submits everything buffered to sink.
func (s *Sequence) Flush(sink queue.Sink) error {
	if len(s.items) == 0 {
		return nil
	}
	return sink.Add(s.items...)
}
