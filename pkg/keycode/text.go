package keycode

// US layout characters for keyboard page usages, unshifted and shifted.
var (
	plainChars   = map[Keycode]rune{}
	shiftedChars = map[Keycode]rune{}
)

func init() {
	for i := 0; i < 26; i++ {
		k := keyboard(0x04 + uint16(i))
		plainChars[k] = rune('a' + i)
		shiftedChars[k] = rune('A' + i)
	}

	shiftedDigits := []rune{'!', '@', '#', '$', '%', '^', '&', '*', '('}
	for i := 1; i <= 9; i++ {
		k := DigitToKeycode(i)
		plainChars[k] = rune('0' + i)
		shiftedChars[k] = shiftedDigits[i-1]
	}
	plainChars[N0] = '0'
	shiftedChars[N0] = ')'

	for k, pair := range map[Keycode][2]rune{
		Enter:     {'\n', '\n'},
		Space:     {' ', ' '},
		Minus:     {'-', '_'},
		Equal:     {'=', '+'},
		Semicolon: {';', ':'},
		Comma:     {',', '<'},
		Dot:       {'.', '>'},
		Slash:     {'/', '?'},
	} {
		plainChars[k] = pair[0]
		shiftedChars[k] = pair[1]
	}
}

// Rune returns the character k types on a US layout host. Implicit shift is
// honored; other modifiers are ignored.
func Rune(k Keycode) (rune, bool) {
	table := plainChars
	if k.Shifted() {
		table = shiftedChars
	}
	r, ok := table[k.Base()]
	return r, ok
}

// Text decodes a run of keycodes into the string they type. Keycodes without
// a printable mapping are skipped.
func Text(codes []Keycode) string {
	out := make([]rune, 0, len(codes))
	for _, k := range codes {
		if r, ok := Rune(k); ok {
			out = append(out, r)
		}
	}
	return string(out)
}
