// Package queue implements the behavior queue: a bounded FIFO of binding
// press/release items drained by a single worker, which waits each item's
// duration before dispatching the next.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/keycode"
)

// DefaultSize matches the firmware's default behavior queue depth.
const DefaultSize = 64

var (
	// ErrQueueFull is returned when the submitted items do not fit.
	ErrQueueFull = errors.New("behavior queue is full")

	// ErrClosed is returned when adding to a closed queue.
	ErrClosed = errors.New("behavior queue is closed")
)

// KeyPress is the behavior device name of the plain key press behavior.
const KeyPress = "kp"

// Binding names the behavior to invoke and its parameter.
type Binding struct {
	BehaviorDev string          `json:"behaviorDev"`
	Param1      keycode.Keycode `json:"param1"`
}

// Event describes the key event that caused items to be queued.
type Event struct {
	Position  int       `json:"position"`
	Layer     int       `json:"layer"`
	Timestamp time.Time `json:"timestamp"`
	// TraceID groups every item queued by one trigger.
	TraceID string `json:"traceId,omitempty"`
}

// Item is one queued press or release. Wait is the time the worker pauses
// after dispatching it: the hold time on a press, the gap on a release.
type Item struct {
	Event   Event         `json:"event"`
	Binding Binding       `json:"binding"`
	Pressed bool          `json:"pressed"`
	Wait    time.Duration `json:"wait"`
}

// Sink accepts queued items.
type Sink interface {
	Add(items ...Item) error
}

// Dispatcher consumes items drained from the queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, item Item) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, item Item) error

func (f DispatcherFunc) Dispatch(ctx context.Context, item Item) error {
	return f(ctx, item)
}

var _ Sink = &Queue{}

// Queue is a bounded FIFO safe for concurrent producers.
type Queue struct {
	mu     *sync.Mutex
	items  []Item
	size   int
	closed bool
	// notify is signalled whenever items are added or the queue is closed.
	notify chan struct{}
	logger logrus.FieldLogger
}

// New returns an empty queue holding at most size items. A non-positive size
// selects DefaultSize.
func New(size int, logger logrus.FieldLogger) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Queue{
		mu:     &sync.Mutex{},
		items:  make([]Item, 0, size),
		size:   size,
		notify: make(chan struct{}, 1),
		logger: logger,
	}
}

// Add appends items in order. Either all items are queued or none are.
func (q *Queue) Add(items ...Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if len(q.items)+len(items) > q.size {
		q.logger.WithFields(logrus.Fields{
			"queued":    len(q.items),
			"submitted": len(items),
			"size":      q.size,
		}).Warn("rejecting items, behavior queue is full")
		return ErrQueueFull
	}

	q.items = append(q.items, items...)
	q.signal()

	return nil
}

// Len returns the number of items waiting to be dispatched.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Size returns the capacity of the queue.
func (q *Queue) Size() int {
	return q.size
}

// Close stops accepting items. Run returns once the remaining items drain.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (Item, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false, q.closed
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, q.closed
}

// Run drains the queue until ctx is cancelled, or until the queue is closed
// and empty. Dispatch errors are logged and do not stop the worker.
func (q *Queue) Run(ctx context.Context, d Dispatcher) {
	q.logger.Debug("behavior queue worker starts")
	defer q.logger.Debug("behavior queue worker exits")

	for {
		item, ok, closed := q.pop()
		if !ok {
			if closed {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-q.notify:
			}
			continue
		}

		if err := d.Dispatch(ctx, item); err != nil {
			q.logger.WithFields(logrus.Fields{
				"behaviorDev": item.Binding.BehaviorDev,
				"param1":      item.Binding.Param1.String(),
				"pressed":     item.Pressed,
				"traceId":     item.Event.TraceID,
			}).Errorf("failed to dispatch queued item: %v", err)
		}

		if item.Wait <= 0 {
			continue
		}
		timer := time.NewTimer(item.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
