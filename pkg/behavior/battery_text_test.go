package behavior

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/keycode"
	"github.com/splitkb/battext/pkg/queue"
)

type fakePeripheral struct {
	level int
	err   error
	calls int
}

func (f *fakePeripheral) PeripheralBatteryLevel(_ context.Context, _ int) (int, error) {
	f.calls++
	return f.level, f.err
}

// failAfter accepts n Add calls, then rejects everything.
type failAfter struct {
	n   int
	rec *queue.Recorder
}

func (f *failAfter) Add(items ...queue.Item) error {
	if f.n <= 0 {
		return queue.ErrQueueFull
	}
	f.n--
	return f.rec.Add(items...)
}

func newBatteryText(t *testing.T, local int, p *fakePeripheral, mode battery.FetchMode, sink queue.Sink, atomic bool) *BatteryText {
	t.Helper()
	b, err := NewBatteryText(BatteryTextOptions{
		Name: "battery_text",
		Acquirer: &battery.Acquirer{
			Local:      battery.NewStatic(local),
			Peripheral: p,
			Mode:       mode,
		},
		Sink:   sink,
		Timing: DefaultTiming(),
		Atomic: atomic,
	})
	if err != nil {
		t.Fatalf("NewBatteryText returned error: %v", err)
	}
	return b
}

func TestBatteryTextScenarios(t *testing.T) {
	tests := []struct {
		name       string
		local      int
		peripheral fakePeripheral
		mode       battery.FetchMode
		want       string
		wantCalls  int
	}{
		{
			name:       "peripheral single digit",
			local:      87,
			peripheral: fakePeripheral{level: 5},
			mode:       battery.FetchEnabled,
			want:       "L:87% R:5%",
			wantCalls:  1,
		},
		{
			name:       "both full",
			local:      100,
			peripheral: fakePeripheral{level: 100},
			mode:       battery.FetchEnabled,
			want:       "L:100% R:100%",
			wantCalls:  1,
		},
		{
			name:       "peripheral fetch fails",
			local:      3,
			peripheral: fakePeripheral{err: battery.ErrNotConnected},
			mode:       battery.FetchEnabled,
			want:       "L:3% R:0%",
			wantCalls:  1,
		},
		{
			name:       "peripheral fetching disabled",
			local:      42,
			peripheral: fakePeripheral{level: 99},
			mode:       battery.FetchDisabled,
			want:       "L:42% R:0%",
			wantCalls:  0,
		},
	}
	for _, tt := range tests {
		for _, atomic := range []bool{true, false} {
			name := tt.name + " streaming"
			if atomic {
				name = tt.name + " atomic"
			}
			t.Run(name, func(t *testing.T) {
				peripheral := tt.peripheral
				rec := queue.NewRecorder()
				b := newBatteryText(t, tt.local, &peripheral, tt.mode, rec, atomic)

				res, err := b.Pressed(context.Background(), queue.Event{Position: 3})
				if err != nil {
					t.Fatalf("Pressed returned error: %v", err)
				}
				if res != Opaque {
					t.Errorf("Pressed returned %v, want opaque", res)
				}
				if got := rec.Text(); got != tt.want {
					t.Errorf("typed %q, want %q", got, tt.want)
				}
				if peripheral.calls != tt.wantCalls {
					t.Errorf("peripheral fetched %d times, want %d", peripheral.calls, tt.wantCalls)
				}
				if b.Triggering() {
					t.Errorf("binding still triggering after Pressed returned")
				}
			})
		}
	}
}

func TestBatteryTextEventPairing(t *testing.T) {
	rec := queue.NewRecorder()
	b := newBatteryText(t, 87, &fakePeripheral{level: 5}, battery.FetchEnabled, rec, true)

	ev := queue.Event{Position: 12, Layer: 1, TraceID: "abc"}
	if _, err := b.Pressed(context.Background(), ev); err != nil {
		t.Fatalf("Pressed returned error: %v", err)
	}

	items := rec.Items()
	// L : 8 7 % space R : 5 %
	if len(items) != 2*10 {
		t.Fatalf("got %d items, want 20", len(items))
	}

	want := []keycode.Keycode{
		keycode.LS(keycode.L), keycode.Colon, keycode.N8, keycode.N7, keycode.Percent,
		keycode.Space, keycode.LS(keycode.R), keycode.Colon, keycode.N5, keycode.Percent,
	}
	for i, k := range want {
		press, release := items[2*i], items[2*i+1]
		if !press.Pressed || release.Pressed {
			t.Fatalf("items %d/%d are not press then release", 2*i, 2*i+1)
		}
		if press.Binding.Param1 != k || release.Binding.Param1 != k {
			t.Errorf("pair %d is %v/%v, want %v", i, press.Binding.Param1, release.Binding.Param1, k)
		}
		if press.Binding.BehaviorDev != queue.KeyPress {
			t.Errorf("pair %d uses behavior %q", i, press.Binding.BehaviorDev)
		}
		if press.Wait != DefaultTap || release.Wait != DefaultWait {
			t.Errorf("pair %d waits %v/%v", i, press.Wait, release.Wait)
		}
		if press.Event != ev || release.Event != ev {
			t.Errorf("pair %d lost the triggering event", i)
		}
	}

	if items[0].Binding.Param1 == keycode.L {
		t.Errorf("capital L must be shifted")
	}
}

func TestBatteryTextRelease(t *testing.T) {
	rec := queue.NewRecorder()
	p := &fakePeripheral{level: 50}
	b := newBatteryText(t, 50, p, battery.FetchEnabled, rec, true)

	res, err := b.Released(context.Background(), queue.Event{})
	if err != nil {
		t.Fatalf("Released returned error: %v", err)
	}
	if res != Opaque {
		t.Errorf("Released returned %v, want opaque", res)
	}
	if n := len(rec.Items()); n != 0 {
		t.Errorf("Released queued %d items", n)
	}
	if p.calls != 0 {
		t.Errorf("Released fetched the peripheral level")
	}
}

func TestBatteryTextQueueFullAtomic(t *testing.T) {
	q := queue.New(10, nil)
	b := newBatteryText(t, 87, &fakePeripheral{level: 5}, battery.FetchEnabled, q, true)

	res, err := b.Pressed(context.Background(), queue.Event{})
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if res != Opaque {
		t.Errorf("Pressed returned %v, want opaque", res)
	}
	if q.Len() != 0 {
		t.Errorf("rejected status line left %d items in the queue", q.Len())
	}
}

func TestBatteryTextQueueFullStreaming(t *testing.T) {
	rec := queue.NewRecorder()
	sink := &failAfter{n: 3, rec: rec}
	b := newBatteryText(t, 87, &fakePeripheral{level: 5}, battery.FetchEnabled, sink, false)

	_, err := b.Pressed(context.Background(), queue.Event{})
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if got := rec.Text(); got != "L:8" {
		t.Errorf("streaming mode should stop at the first rejection, typed %q", got)
	}
}

func TestBatteryTextOnTriggered(t *testing.T) {
	var got []Triggered
	b, err := NewBatteryText(BatteryTextOptions{
		Name: "bat",
		Acquirer: &battery.Acquirer{
			Local:      battery.NewStatic(64),
			Peripheral: &fakePeripheral{err: errors.New("gone")},
			Mode:       battery.FetchEnabled,
		},
		Sink:        queue.NewRecorder(),
		Timing:      Timing{Tap: time.Millisecond, Wait: time.Millisecond},
		Atomic:      true,
		OnTriggered: func(t Triggered) { got = append(got, t) },
	})
	if err != nil {
		t.Fatalf("NewBatteryText returned error: %v", err)
	}

	if _, err := b.Pressed(context.Background(), queue.Event{TraceID: "x"}); err != nil {
		t.Fatalf("Pressed returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("OnTriggered called %d times", len(got))
	}
	if got[0].Text() != "L:64% R:0%" || !got[0].Peripheral.Degraded || got[0].Items != 2*10 {
		t.Errorf("unexpected trigger %+v", got[0])
	}
	if got[0].Binding != "bat" || got[0].Event.TraceID != "x" {
		t.Errorf("trigger lost its binding or event: %+v", got[0])
	}
}

func TestNewBatteryTextValidation(t *testing.T) {
	acq := &battery.Acquirer{Local: battery.NewStatic(1)}
	tests := []struct {
		name string
		opts BatteryTextOptions
	}{
		{name: "no acquirer", opts: BatteryTextOptions{Sink: queue.NewRecorder()}},
		{name: "no local accessor", opts: BatteryTextOptions{Acquirer: &battery.Acquirer{}, Sink: queue.NewRecorder()}},
		{name: "no sink", opts: BatteryTextOptions{Acquirer: acq}},
		{name: "negative tap", opts: BatteryTextOptions{Acquirer: acq, Sink: queue.NewRecorder(), Timing: Timing{Tap: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBatteryText(tt.opts); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}
