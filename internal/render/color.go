package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Color represents an RGB color.
type Color struct {
	R, G, B uint8
}

var (
	Black  = Color{0, 0, 0}
	Yellow = Color{255, 235, 59}
)

// ParseColor accepts "#rgb" and "#rrggbb", with or without the hash.
func ParseColor(s string) (Color, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return Color{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// colorOr parses s, returning def when s is empty or malformed.
func colorOr(s string, def Color) Color {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}

// optionalColor parses s, returning nil when s is empty or malformed.
func optionalColor(s string) *Color {
	if c, ok := ParseColor(s); ok {
		return &c
	}
	return nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, ok := ParseColor(string(b))
	if !ok {
		return fmt.Errorf("invalid color %q", b)
	}
	*c = parsed
	return nil
}
