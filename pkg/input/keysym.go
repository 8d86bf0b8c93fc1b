package input

import "unicode/utf8"

// namedKeysyms maps named key identifiers (arrows, function keys,
// navigation keys, modifiers) to X11 keysyms. Printable characters are
// handled separately through their code point.
var namedKeysyms = map[string]uint32{
	"Escape":      0xff1b,
	"Tab":         0xff09,
	"Backspace":   0xff08,
	"Enter":       0xff0d,
	"Pause":       0xff13,
	"ScrollLock":  0xff14,
	"PrintScreen": 0xff61,
	"Insert":      0xff63,
	"Delete":      0xffff,
	"Home":        0xff50,
	"End":         0xff57,
	"PageUp":      0xff55,
	"PageDown":    0xff56,
	"ArrowLeft":   0xff51,
	"ArrowUp":     0xff52,
	"ArrowRight":  0xff53,
	"ArrowDown":   0xff54,
	"CapsLock":    0xffe5,
	"NumLock":     0xff7f,
	"Shift":       0xffe1,
	"Control":     0xffe3,
	"Alt":         0xffe9,
	"AltGraph":    0xffea,
	"Meta":        0xffe7,
	"ContextMenu": 0xff67,
	"F1":          0xffbe,
	"F2":          0xffbf,
	"F3":          0xffc0,
	"F4":          0xffc1,
	"F5":          0xffc2,
	"F6":          0xffc3,
	"F7":          0xffc4,
	"F8":          0xffc5,
	"F9":          0xffc6,
	"F10":         0xffc7,
	"F11":         0xffc8,
	"F12":         0xffc9,
}

// KeysymFor maps a named key or printable character to its keysym.
// Printable single characters map via their code point; code points above
// Latin-1 use the Unicode keysym range. Unmapped keys return false and
// produce no event.
func KeysymFor(key string) (uint32, bool) {
	if sym, ok := namedKeysyms[key]; ok {
		return sym, true
	}
	if utf8.RuneCountInString(key) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return 0, false
	}
	if r > 0xff {
		return 0x01000000 | uint32(r), true
	}
	return uint32(r), true
}
