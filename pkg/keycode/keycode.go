// Package keycode defines the keystroke identifiers queued by key behaviors.
//
// A Keycode packs a HID usage the same way the keyboard firmware does:
//
//	bits 24-31  implicit modifiers (left ctrl, left shift, ...)
//	bits 16-23  HID usage page
//	bits  0-15  HID usage id
package keycode

import "fmt"

// Keycode is a HID usage with optional implicit modifiers.
type Keycode uint32

// HID usage pages.
const (
	PageKeyboard = 0x07
)

// Implicit modifier bits, stored in the top byte of a Keycode.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

const (
	modifierShift = 24
	pageShift     = 16
)

// Usage returns the keycode for a usage on a usage page.
func Usage(page uint8, id uint16) Keycode {
	return Keycode(uint32(page)<<pageShift | uint32(id))
}

func keyboard(id uint16) Keycode { return Usage(PageKeyboard, id) }

// Keyboard page usages used by the battery text behavior, plus the rest of
// the alphanumerics so decoded output stays readable.
var (
	A = keyboard(0x04)
	B = keyboard(0x05)
	C = keyboard(0x06)
	D = keyboard(0x07)
	E = keyboard(0x08)
	F = keyboard(0x09)
	G = keyboard(0x0A)
	H = keyboard(0x0B)
	I = keyboard(0x0C)
	J = keyboard(0x0D)
	K = keyboard(0x0E)
	L = keyboard(0x0F)
	M = keyboard(0x10)
	N = keyboard(0x11)
	O = keyboard(0x12)
	P = keyboard(0x13)
	Q = keyboard(0x14)
	R = keyboard(0x15)
	S = keyboard(0x16)
	T = keyboard(0x17)
	U = keyboard(0x18)
	V = keyboard(0x19)
	W = keyboard(0x1A)
	X = keyboard(0x1B)
	Y = keyboard(0x1C)
	Z = keyboard(0x1D)

	N1 = keyboard(0x1E)
	N2 = keyboard(0x1F)
	N3 = keyboard(0x20)
	N4 = keyboard(0x21)
	N5 = keyboard(0x22)
	N6 = keyboard(0x23)
	N7 = keyboard(0x24)
	N8 = keyboard(0x25)
	N9 = keyboard(0x26)
	N0 = keyboard(0x27)

	Enter     = keyboard(0x28)
	Space     = keyboard(0x2C)
	Minus     = keyboard(0x2D)
	Equal     = keyboard(0x2E)
	Semicolon = keyboard(0x33)
	Comma     = keyboard(0x36)
	Dot       = keyboard(0x37)
	Slash     = keyboard(0x38)

	Colon   = LS(Semicolon)
	Percent = LS(N5)
)

// WithModifiers returns k with the given implicit modifiers added.
func WithModifiers(mods uint8, k Keycode) Keycode {
	return k | Keycode(uint32(mods)<<modifierShift)
}

// LS wraps k with left shift, e.g. LS(L) types a capital L.
func LS(k Keycode) Keycode {
	return WithModifiers(ModLeftShift, k)
}

// Modifiers returns the implicit modifier bits of k.
func (k Keycode) Modifiers() uint8 {
	return uint8(k >> modifierShift)
}

// Page returns the HID usage page of k.
func (k Keycode) Page() uint8 {
	return uint8(k >> pageShift)
}

// ID returns the HID usage id of k.
func (k Keycode) ID() uint16 {
	return uint16(k)
}

// Base returns k without implicit modifiers.
func (k Keycode) Base() Keycode {
	return k & (1<<modifierShift - 1)
}

// Shifted reports whether k carries either shift modifier.
func (k Keycode) Shifted() bool {
	return k.Modifiers()&(ModLeftShift|ModRightShift) != 0
}

func (k Keycode) String() string {
	if r, ok := Rune(k); ok {
		switch r {
		case ' ':
			return "SPACE"
		case '\n':
			return "ENTER"
		}
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("0x%08X", uint32(k))
}
