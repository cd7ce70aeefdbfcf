package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splitkb/battext/pkg/keycode"
)

func tap(k keycode.Keycode, hold, gap time.Duration) []Item {
	b := Binding{BehaviorDev: KeyPress, Param1: k}
	return []Item{
		{Binding: b, Pressed: true, Wait: hold},
		{Binding: b, Pressed: false, Wait: gap},
	}
}

func TestQueueAddAtomic(t *testing.T) {
	q := New(4, nil)

	if err := q.Add(tap(keycode.N1, 0, 0)...); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	items := append(tap(keycode.N2, 0, 0), tap(keycode.N3, 0, 0)...)
	err := q.Add(items...)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("rejected submission must not be partially queued, len=%d", q.Len())
	}

	if err := q.Add(tap(keycode.N2, 0, 0)...); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if q.Len() != 4 {
		t.Fatalf("expected 4 items, got %d", q.Len())
	}
}

func TestQueueDefaultSize(t *testing.T) {
	if got := New(0, nil).Size(); got != DefaultSize {
		t.Errorf("Size() = %d, want %d", got, DefaultSize)
	}
}

func TestQueueClosed(t *testing.T) {
	q := New(8, nil)
	q.Close()
	if err := q.Add(tap(keycode.N1, 0, 0)...); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestQueueRunPreservesOrder(t *testing.T) {
	q := New(DefaultSize, nil)
	rec := NewRecorder()

	var items []Item
	for _, k := range []keycode.Keycode{keycode.LS(keycode.L), keycode.Colon, keycode.N4, keycode.N2, keycode.Percent} {
		items = append(items, tap(k, 0, 0)...)
	}
	if err := q.Add(items...); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		q.Run(context.Background(), rec)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not drain in time")
	}

	if got := rec.Text(); got != "L:42%" {
		t.Errorf("Text() = %q, want %q", got, "L:42%")
	}
	if got := len(rec.Items()); got != len(items) {
		t.Errorf("dispatched %d items, want %d", got, len(items))
	}
}

func TestQueueRunHonorsWait(t *testing.T) {
	q := New(DefaultSize, nil)
	rec := NewRecorder()

	if err := q.Add(tap(keycode.N1, 30*time.Millisecond, 30*time.Millisecond)...); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	q.Close()

	start := time.Now()
	q.Run(context.Background(), rec)
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("worker returned after %v, expected it to wait at least 60ms", elapsed)
	}
}

func TestQueueRunStopsOnCancel(t *testing.T) {
	q := New(DefaultSize, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx, NewRecorder())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
}

func TestQueueRunContinuesAfterDispatchError(t *testing.T) {
	q := New(DefaultSize, nil)
	rec := NewRecorder()
	calls := 0
	d := DispatcherFunc(func(ctx context.Context, item Item) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return rec.Dispatch(ctx, item)
	})

	if err := q.Add(tap(keycode.N7, 0, 0)...); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	q.Close()
	q.Run(context.Background(), d)

	if calls != 2 {
		t.Fatalf("expected 2 dispatch calls, got %d", calls)
	}
	if got := len(rec.Items()); got != 1 {
		t.Errorf("expected 1 recorded item, got %d", got)
	}
}
