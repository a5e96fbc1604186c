package stimulus

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is a keyboard key code. Printable keys use the code point of their
// uppercase ASCII character; special keys use the raylib numbering.
type Key int

const (
	KeyNull      Key = 0
	KeySpace     Key = 32
	KeyEscape    Key = 256
	KeyEnter     Key = 257
	KeyTab       Key = 258
	KeyBackspace Key = 259
	KeyRight     Key = 262
	KeyLeft      Key = 263
	KeyDown      Key = 264
	KeyUp        Key = 265
)

var keyNames = map[Key]string{
	KeySpace:     "space",
	KeyEscape:    "escape",
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyBackspace: "backspace",
	KeyRight:     "right",
	KeyLeft:      "left",
	KeyDown:      "down",
	KeyUp:        "up",
}

var keyAliases = map[string]Key{
	"esc":    KeyEscape,
	"return": KeyEnter,
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k > 32 && k < 127 {
		return string(rune(k))
	}
	return "key(" + strconv.Itoa(int(k)) + ")"
}

// ParseKey accepts a key name ("enter", "space", "esc"), a single printable
// character, or a numeric key code.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeyNull, fmt.Errorf("empty key")
	}
	lower := strings.ToLower(s)
	for k, name := range keyNames {
		if name == lower {
			return k, nil
		}
	}
	if k, ok := keyAliases[lower]; ok {
		return k, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return KeyNull, fmt.Errorf("invalid key code %d", n)
		}
		return Key(n), nil
	}
	if len(s) == 1 && s[0] > 32 && s[0] < 127 {
		return Key(strings.ToUpper(s)[0]), nil
	}
	return KeyNull, fmt.Errorf("unknown key %q", s)
}
