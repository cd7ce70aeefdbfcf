package behavior

import (
	"context"
	"fmt"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/queue"
)

// Triggered describes one completed press of a battery text binding.
type Triggered struct {
	Binding    string
	Event      queue.Event
	Local      battery.Reading
	Peripheral battery.Reading
	// Items is how many queue items the press produced.
	Items int
}

// Text is the status line the press typed.
func (t Triggered) Text() string {
	return fmt.Sprintf("L:%d%% R:%d%%", t.Local.Percentage, t.Peripheral.Percentage)
}

// BatteryTextOptions configures a BatteryText.
type BatteryTextOptions struct {
	Name     string
	Acquirer *battery.Acquirer
	Sink     queue.Sink
	Timing   Timing
	// Atomic buffers the whole status line and submits it with one call, so a
	// full queue rejects the line instead of truncating it.
	Atomic bool
	Logger logrus.FieldLogger
	// OnTriggered, if set, is called after a press queued its status line.
	OnTriggered func(Triggered)
}

var _ Behavior = &BatteryText{}

// BatteryText types the local and peripheral battery levels when pressed.
type BatteryText struct {
	name        string
	acquirer    *battery.Acquirer
	sink        queue.Sink
	timing      Timing
	atomic      bool
	logger      logrus.FieldLogger
	onTriggered func(Triggered)
	inFlight    atomic.Int32
}

// NewBatteryText returns a battery text behavior.
func NewBatteryText(opts BatteryTextOptions) (*BatteryText, error) {
	if opts.Acquirer == nil || opts.Acquirer.Local == nil {
		return nil, pkgerrors.New("battery text behavior needs a local battery accessor")
	}
	if opts.Sink == nil {
		return nil, pkgerrors.New("battery text behavior needs a behavior queue")
	}
	if opts.Timing.Tap < 0 || opts.Timing.Wait < 0 {
		return nil, pkgerrors.Errorf("tap and wait must not be negative, got %v/%v", opts.Timing.Tap, opts.Timing.Wait)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Name != "" {
		logger = logger.WithField("binding", opts.Name)
	}

	return &BatteryText{
		name:        opts.Name,
		acquirer:    opts.Acquirer,
		sink:        opts.Sink,
		timing:      opts.Timing,
		atomic:      opts.Atomic,
		logger:      logger,
		onTriggered: opts.OnTriggered,
	}, nil
}

// Name returns the binding name.
func (b *BatteryText) Name() string {
	return b.name
}

// Timing returns the tap timing.
func (b *BatteryText) Timing() Timing {
	return b.timing
}

// Triggering reports whether a press is being handled.
func (b *BatteryText) Triggering() bool {
	return b.inFlight.Load() > 0
}

// Pressed reads both battery levels and queues the status line. A queue
// rejection aborts the line and is returned; the result is Opaque either way.
func (b *BatteryText) Pressed(ctx context.Context, ev queue.Event) (Result, error) {
	b.inFlight.Add(1)
	defer b.inFlight.Add(-1)

	logger := b.logger
	if ev.TraceID != "" {
		logger = logger.WithField("traceId", ev.TraceID)
	}
	logger.Debug("battery text behavior pressed")

	local, peripheral := b.acquirer.Acquire(ctx)

	var (
		seq    *Sequence
		stream = &countingSink{sink: b.sink}
		sink   queue.Sink = stream
	)
	if b.atomic {
		seq = &Sequence{}
		sink = seq
	}

	if err := Assemble(NewEmitter(ev, sink), local.Percentage, peripheral.Percentage, b.timing); err != nil {
		return Opaque, pkgerrors.Wrapf(err, "failed to queue battery text after %d items", stream.n)
	}

	items := stream.n
	if seq != nil {
		if err := seq.Flush(b.sink); err != nil {
			return Opaque, pkgerrors.Wrapf(err, "failed to queue battery text (%d items)", seq.Len())
		}
		items = seq.Len()
	}

	t := Triggered{
		Binding:    b.name,
		Event:      ev,
		Local:      local,
		Peripheral: peripheral,
		Items:      items,
	}
	logger.WithFields(logrus.Fields{
		"local":      local.Percentage,
		"peripheral": peripheral.Percentage,
		"degraded":   peripheral.Degraded,
	}).Debugf("battery text output queued: %s", t.Text())

	if b.onTriggered != nil {
		b.onTriggered(t)
	}

	return Opaque, nil
}

// Released does nothing.
func (b *BatteryText) Released(_ context.Context, _ queue.Event) (Result, error) {
	return Opaque, nil
}

type countingSink struct {
	sink queue.Sink
	n    int
}

func (c *countingSink) Add(items ...queue.Item) error {
	if err := c.sink.Add(items...); err != nil {
		return err
	}
	c.n += len(items)
	return nil
}
