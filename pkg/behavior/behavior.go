// Package behavior implements key behaviors bound in the keymap, most
// notably the battery text behavior, which types "L:XX% R:YY%" when pressed.
package behavior

import (
	"context"

	"github.com/splitkb/battext/pkg/queue"
)

// Result tells the keymap what to do after a behavior handled an event.
type Result int

const (
	// Opaque means the event was fully handled and no further default
	// processing should happen.
	Opaque Result = iota
	// Transparent lets the keymap fall through to lower layers.
	Transparent
)

func (r Result) String() string {
	switch r {
	case Opaque:
		return "opaque"
	case Transparent:
		return "transparent"
	default:
		return "unknown"
	}
}

// Behavior is a keymap binding's press/release handler.
type Behavior interface {
	Pressed(ctx context.Context, ev queue.Event) (Result, error)
	Released(ctx context.Context, ev queue.Event) (Result, error)
}
