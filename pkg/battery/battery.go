// Package battery provides the battery readings typed by the battery text
// behavior: the local (central) state of charge, which is always available,
// and the levels reported by split peripherals, which may not be.
package battery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidPeripheral is returned for a peripheral index that does not exist.
	ErrInvalidPeripheral = errors.New("invalid peripheral index")

	// ErrNotConnected is returned when a peripheral has not reported a level.
	ErrNotConnected = errors.New("peripheral battery level not available")
)

// Source tells where a reading came from.
type Source int

const (
	Local Source = iota
	Peripheral
)

func (s Source) String() string {
	switch s {
	case Local:
		return "local"
	case Peripheral:
		return "peripheral"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Reading is a single state of charge sample.
type Reading struct {
	Source     Source `json:"source"`
	Percentage int    `json:"percentage"`
	// Degraded is set when the real value could not be read and Percentage
	// holds the substitute 0.
	Degraded bool `json:"degraded,omitempty"`
}

// LocalAccessor returns the local state of charge in percent. It has no
// failure path.
type LocalAccessor interface {
	StateOfCharge() int
}

// PeripheralAccessor fetches the battery level of the peripheral at index.
type PeripheralAccessor interface {
	PeripheralBatteryLevel(ctx context.Context, index int) (int, error)
}

// FetchMode controls whether peripheral levels are fetched at all.
type FetchMode string

const (
	// FetchEnabled attempts a fetch and falls back to 0 on failure.
	FetchEnabled FetchMode = "enabled"
	// FetchDisabled always uses 0 without attempting a fetch.
	FetchDisabled FetchMode = "disabled"
)

// ParseFetchMode parses "enabled" or "disabled". The empty string is enabled.
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FetchEnabled:
		return FetchEnabled, nil
	case FetchDisabled:
		return FetchDisabled, nil
	default:
		return "", pkgerrors.Errorf("invalid peripheral fetch mode %q, must be %q or %q", s, FetchEnabled, FetchDisabled)
	}
}

// Clamp limits a percentage to [0, 100].
func Clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
