package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/events"
	"github.com/splitkb/battext/pkg/keycode"
	"github.com/splitkb/battext/pkg/queue"
)

// maxOutputLines is how many typed lines the daemon remembers.
const maxOutputLines = 50

// OutputLine is the text typed by one trigger.
type OutputLine struct {
	TraceID string    `json:"traceId"`
	Text    string    `json:"text"`
	Started time.Time `json:"started"`
	// Items counts the queue items output so far, presses and releases alike.
	Items int `json:"items"`
	// Expected is the number of items the trigger queued, 0 until known.
	Expected int  `json:"expected,omitempty"`
	Complete bool `json:"complete"`
}

var _ queue.Dispatcher = &Output{}

// Output stands in for the keyboard's HID output: it decodes the key presses
// drained from the behavior queue into text and publishes every character.
type Output struct {
	mu     *sync.Mutex
	lines  []OutputLine
	hub    *events.EventHub
	logger logrus.FieldLogger
}

// NewOutput returns an Output publishing to hub, which may be nil.
func NewOutput(hub *events.EventHub, logger logrus.FieldLogger) *Output {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Output{
		mu:     &sync.Mutex{},
		hub:    hub,
		logger: logger,
	}
}

// lineLocked returns the line of traceID, appending one if there is none.
func (o *Output) lineLocked(traceID string) *OutputLine {
	for i := len(o.lines) - 1; i >= 0; i-- {
		if o.lines[i].TraceID == traceID {
			return &o.lines[i]
		}
	}

	o.lines = append(o.lines, OutputLine{TraceID: traceID, Started: time.Now()})
	if len(o.lines) > maxOutputLines {
		o.lines = o.lines[len(o.lines)-maxOutputLines:]
	}
	return &o.lines[len(o.lines)-1]
}

// completeLocked marks l complete once all expected items were output. It
// returns whether l just became complete.
func completeLocked(l *OutputLine) bool {
	if l.Complete || l.Expected == 0 || l.Items < l.Expected {
		return false
	}
	l.Complete = true
	return true
}

func (o *Output) publishCompleted(l OutputLine) {
	o.logger.WithFields(logrus.Fields{
		"traceId": l.TraceID,
		"items":   l.Items,
	}).Debugf("line completed: %s", l.Text)

	o.hub.Publish(events.LineCompleted, events.LineCompletedEvent{
		TraceID: l.TraceID,
		Text:    l.Text,
		Items:   l.Items,
		Ts:      time.Now().UnixMilli(),
	})
}

// Expect records that the trigger traceID queued n items. The worker may
// already have output some or all of them.
func (o *Output) Expect(traceID string, n int) {
	if n <= 0 {
		return
	}

	o.mu.Lock()
	l := o.lineLocked(traceID)
	l.Expected = n
	done := completeLocked(l)
	line := *l
	o.mu.Unlock()

	if done {
		o.publishCompleted(line)
	}
}

func (o *Output) Dispatch(_ context.Context, item queue.Item) error {
	var (
		r       rune
		printed bool
	)
	if item.Pressed && item.Binding.BehaviorDev == queue.KeyPress {
		r, printed = keycode.Rune(item.Binding.Param1)
		if !printed {
			o.logger.WithField("keycode", item.Binding.Param1.String()).Debug("keycode has no printable character, skipping")
		}
	}

	o.mu.Lock()
	l := o.lineLocked(item.Event.TraceID)
	l.Items++
	if printed {
		l.Text += string(r)
	}
	done := completeLocked(l)
	line := *l
	o.mu.Unlock()

	if printed {
		o.logger.WithFields(logrus.Fields{
			"traceId": item.Event.TraceID,
			"char":    string(r),
		}).Trace("key output")

		o.hub.Publish(events.KeyOutput, events.KeyOutputEvent{
			TraceID: item.Event.TraceID,
			Keycode: uint32(item.Binding.Param1),
			Char:    string(r),
			Ts:      time.Now().UnixMilli(),
		})
	}
	if done {
		o.publishCompleted(line)
	}

	return nil
}

// Lines returns the remembered lines, oldest first.
func (o *Output) Lines() []OutputLine {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]OutputLine, len(o.lines))
	copy(out, o.lines)
	return out
}
