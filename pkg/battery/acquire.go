package battery

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PeripheralIndex is the peripheral whose level is typed.
const PeripheralIndex = 0

// Acquirer reads both halves' battery levels for one trigger.
type Acquirer struct {
	Local      LocalAccessor
	Peripheral PeripheralAccessor
	Mode       FetchMode
	Logger     logrus.FieldLogger
}

// Acquire returns the local and peripheral readings. It never fails: an
// unavailable peripheral reading is replaced with 0 and marked degraded.
func (a *Acquirer) Acquire(ctx context.Context) (Reading, Reading) {
	logger := a.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	local := Reading{Source: Local, Percentage: a.Local.StateOfCharge()}
	if p := Clamp(local.Percentage); p != local.Percentage {
		logger.Warnf("local battery level %d%% out of range, clamped to %d%%", local.Percentage, p)
		local.Percentage = p
	}
	logger.Debugf("local battery level: %d%%", local.Percentage)

	peripheral := Reading{Source: Peripheral}

	if a.Mode == FetchDisabled || a.Peripheral == nil {
		logger.Debug("peripheral battery fetching not enabled, peripheral will show 0%")
		peripheral.Degraded = true
		return local, peripheral
	}

	level, err := a.Peripheral.PeripheralBatteryLevel(ctx, PeripheralIndex)
	if err != nil {
		logger.Warnf("failed to get peripheral battery level: %v", err)
		peripheral.Degraded = true
		return local, peripheral
	}

	if p := Clamp(level); p != level {
		logger.Warnf("peripheral battery level %d%% out of range, clamped to %d%%", level, p)
		level = p
	}
	peripheral.Percentage = level
	logger.Debugf("peripheral battery level: %d%%", level)

	return local, peripheral
}
