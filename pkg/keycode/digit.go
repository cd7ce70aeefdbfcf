package keycode

var digits = [10]Keycode{N0, N1, N2, N3, N4, N5, N6, N7, N8, N9}

// DigitToKeycode returns the number-row keycode for a decimal digit.
// Anything outside 0-9 maps to N0.
func DigitToKeycode(digit int) Keycode {
	if digit < 0 || digit > 9 {
		return N0
	}
	return digits[digit]
}
