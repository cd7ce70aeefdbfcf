package config

import "github.com/splitkb/battext/pkg/battery"

// Binding is a resolved binding entry with defaults applied.
type Binding struct {
	Name   string `json:"name"`
	TapMs  int    `json:"tapMs"`
	WaitMs int    `json:"waitMs"`
}

// Local battery sources.
const (
	LocalSourceHost   = "host"
	LocalSourceStatic = "static"
)

type Config interface {
	TapMs() int
	WaitMs() int
	PeripheralFetching() battery.FetchMode
	PeripheralCount() int
	QueueSize() int
	AtomicFlush() bool
	LocalSource() string
	StaticLocalLevel() int
	Bindings() []Binding

	SetTapMs(int)
	SetWaitMs(int)
	SetPeripheralFetching(battery.FetchMode)
	SetAtomicFlush(bool)
	SetStaticLocalLevel(int)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
