package vm

import (
	"fmt"
	"strings"
	"unicode"
)

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// KeyLayout maps each logical key (by index) to the character on a QWERTY
// keyboard that stands in for it:
//
//	Physical                Logical
//	================        =================
//	| 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
//	| q | w | e | r |       | 4 | 5 | 6 | D |
//	| a | s | d | f |  <=>  | 7 | 8 | 9 | E |
//	| z | x | c | v |       | A | 0 | B | F |
//	================        =================
const KeyLayout = "x123qweasdzc4rfv"

// KeyForRune returns the logical key bound to a typed character.
func KeyForRune(r rune) (Key, bool) {
	i := strings.IndexRune(KeyLayout, unicode.ToLower(r))
	if i < 0 {
		return 0, false
	}
	return Key(i), true
}

func (k Key) String() string {
	return fmt.Sprintf("%X", uint8(k))
}
