package stimulus

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color as consumed by the rendering surface.
type Color struct {
	R, G, B, A uint8
}

// Named colors. Values follow the raylib palette the stimuli were designed against.
var (
	LightGray = Color{200, 200, 200, 255}
	Gray      = Color{130, 130, 130, 255}
	DarkGray  = Color{80, 80, 80, 255}
	Yellow    = Color{253, 249, 0, 255}
	Gold      = Color{255, 203, 0, 255}
	Orange    = Color{255, 161, 0, 255}
	Pink      = Color{255, 109, 194, 255}
	Red       = Color{230, 41, 55, 255}
	Maroon    = Color{190, 33, 55, 255}
	Green     = Color{0, 228, 48, 255}
	Lime      = Color{0, 158, 47, 255}
	Blue      = Color{0, 121, 241, 255}
	Purple    = Color{200, 122, 255, 255}
	Violet    = Color{135, 60, 190, 255}
	Beige     = Color{211, 176, 131, 255}
	Brown     = Color{127, 106, 79, 255}
	White     = Color{255, 255, 255, 255}
	Black     = Color{0, 0, 0, 255}
	Magenta   = Color{255, 0, 255, 255}
	RayWhite  = Color{245, 245, 245, 255}
)

var namedColors = map[string]Color{
	"lightgray": LightGray,
	"gray":      Gray,
	"darkgray":  DarkGray,
	"yellow":    Yellow,
	"gold":      Gold,
	"orange":    Orange,
	"pink":      Pink,
	"red":       Red,
	"maroon":    Maroon,
	"green":     Green,
	"lime":      Lime,
	"blue":      Blue,
	"purple":    Purple,
	"violet":    Violet,
	"beige":     Beige,
	"brown":     Brown,
	"white":     White,
	"black":     Black,
	"magenta":   Magenta,
	"raywhite":  RayWhite,
}

// Hex returns the color in its canonical "#rrggbbaa" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// ParseColor accepts "#rrggbb", "#rrggbbaa" or one of the named colors
// (case-insensitive).
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if named, ok := namedColors[strings.ToLower(s)]; ok {
		return named, nil
	}
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("invalid color %q: expected #rrggbb[aa] or a color name", s)
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: expected 6 or 8 hex digits", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
