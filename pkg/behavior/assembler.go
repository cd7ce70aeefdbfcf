package behavior

import (
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/splitkb/battext/pkg/keycode"
)

// Default tap timing of the battery text behavior.
const (
	DefaultTap  = 10 * time.Millisecond
	DefaultWait = 10 * time.Millisecond
)

// Timing is the hold time of each tap and the gap after its release.
type Timing struct {
	Tap  time.Duration
	Wait time.Duration
}

// DefaultTiming returns the default tap timing.
func DefaultTiming() Timing {
	return Timing{Tap: DefaultTap, Wait: DefaultWait}
}

// Assemble types "L:<local>% R:<peripheral>%".
func Assemble(e *Emitter, local, peripheral int, t Timing) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"L", func() error { return e.EmitChar(keycode.LS(keycode.L), t.Tap, t.Wait) }},
		{":", func() error { return e.EmitChar(keycode.Colon, t.Tap, t.Wait) }},
		{"local percentage", func() error { return EncodePercentage(e, local, t.Tap, t.Wait) }},
		{"%", func() error { return e.EmitChar(keycode.Percent, t.Tap, t.Wait) }},
		{"space", func() error { return e.EmitChar(keycode.Space, t.Tap, t.Wait) }},
		{"R", func() error { return e.EmitChar(keycode.LS(keycode.R), t.Tap, t.Wait) }},
		{":", func() error { return e.EmitChar(keycode.Colon, t.Tap, t.Wait) }},
		{"peripheral percentage", func() error { return EncodePercentage(e, peripheral, t.Tap, t.Wait) }},
		{"%", func() error { return e.EmitChar(keycode.Percent, t.Tap, t.Wait) }},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			return pkgerrors.Wrapf(err, "failed to queue %s", s.name)
		}
	}
	return nil
}
