package battery

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

var _ PeripheralAccessor = &PeripheralCache{}

// PeripheralCache holds the last level reported by each connected
// peripheral, the way a split central tracks its peripherals' battery
// notifications.
type PeripheralCache struct {
	mu     *sync.RWMutex
	levels []*int
}

// NewPeripheralCache returns a cache for count peripherals, none connected.
func NewPeripheralCache(count int) *PeripheralCache {
	if count < 0 {
		count = 0
	}
	return &PeripheralCache{
		mu:     &sync.RWMutex{},
		levels: make([]*int, count),
	}
}

// Count returns the number of peripheral slots.
func (c *PeripheralCache) Count() int {
	return len(c.levels)
}

func (c *PeripheralCache) PeripheralBatteryLevel(_ context.Context, index int) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index < 0 || index >= len(c.levels) {
		return 0, pkgerrors.Wrapf(ErrInvalidPeripheral, "peripheral %d (have %d)", index, len(c.levels))
	}
	if c.levels[index] == nil {
		return 0, pkgerrors.Wrapf(ErrNotConnected, "peripheral %d", index)
	}

	return *c.levels[index], nil
}

// Report stores a level reported by the peripheral at index.
func (c *PeripheralCache) Report(index int, level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.levels) {
		return pkgerrors.Wrapf(ErrInvalidPeripheral, "peripheral %d (have %d)", index, len(c.levels))
	}
	l := Clamp(level)
	c.levels[index] = &l

	return nil
}

// Disconnect forgets the level of the peripheral at index.
func (c *PeripheralCache) Disconnect(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.levels) {
		return pkgerrors.Wrapf(ErrInvalidPeripheral, "peripheral %d (have %d)", index, len(c.levels))
	}
	c.levels[index] = nil

	return nil
}

// Levels returns a snapshot of all slots; nil means not connected.
func (c *PeripheralCache) Levels() []*int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*int, len(c.levels))
	for i, l := range c.levels {
		if l != nil {
			v := *l
			out[i] = &v
		}
	}
	return out
}
