package behavior

import (
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/splitkb/battext/pkg/keycode"
)

// Digits returns the decimal digits of a percentage without leading zeros.
// Values above 100 render as 100 and negative values as 0.
func Digits(percentage int) []int {
	switch {
	case percentage >= 100:
		return []int{1, 0, 0}
	case percentage >= 10:
		return []int{percentage / 10, percentage % 10}
	case percentage > 0:
		return []int{percentage}
	default:
		return []int{0}
	}
}

// EncodePercentage types a percentage as one tap per digit.
func EncodePercentage(e *Emitter, percentage int, hold, gap time.Duration) error {
	for _, d := range Digits(percentage) {
		if err := e.EmitChar(keycode.DigitToKeycode(d), hold, gap); err != nil {
			return pkgerrors.Wrapf(err, "failed to queue digit %d of %d%%", d, percentage)
		}
	}
	return nil
}
