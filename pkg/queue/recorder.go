package queue

import (
	"context"
	"sync"

	"github.com/splitkb/battext/pkg/keycode"
)

var _ Dispatcher = &Recorder{}
var _ Sink = &Recorder{}

// Recorder keeps every item it receives and decodes the pressed key press
// bindings into text. It can stand in for both ends of the queue.
type Recorder struct {
	mu    sync.Mutex
	items []Item
	// Err, if set, is returned from Add without recording anything.
	Err error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(_ context.Context, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, item)
	return nil
}

func (r *Recorder) Add(items ...Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.items = append(r.items, items...)
	return nil
}

// Items returns a copy of everything recorded so far.
func (r *Recorder) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Text returns the characters typed by the recorded key presses.
func (r *Recorder) Text() string {
	return TypedText(r.Items())
}

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = nil
}

// TypedText decodes the presses of key press bindings in items.
func TypedText(items []Item) string {
	var codes []keycode.Keycode
	for _, it := range items {
		if it.Pressed && it.Binding.BehaviorDev == KeyPress {
			codes = append(codes, it.Binding.Param1)
		}
	}
	return keycode.Text(codes)
}
