package css

import (
	"fmt"
	"strconv"
	"strings"
)

// namedColors are the color names we understand, as 0xffrrggbb.
//
// TODO use the CSS level 1 palette instead of this short list
var namedColors = map[string]uint32{
	"black": 0xff000000,
	"white": 0xffffffff,
	"red":   0xffff0000,
	"green": 0xff00ff00,
	"blue":  0xff0000ff,
	"gray":  0xff808080,
	"grey":  0xff808080,
}

// parseHex parses "#rgb", "#rrggbb" and "#aarrggbb".
func parseHex(s string) (uint32, error) {
	code := strings.TrimPrefix(s, "#")
	switch len(code) {
	case 3:
		code = string([]byte{code[0], code[0], code[1], code[1], code[2], code[2]})
		fallthrough
	case 6:
		code = "ff" + code
	case 8:
	default:
		return 0, fmt.Errorf("hex color %q must have 3, 6 or 8 digits", s)
	}
	c, err := strconv.ParseUint(code, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hex color %q: %w", s, err)
	}
	return uint32(c), nil
}

// parseRGB parses "rgb(r,g,b)". Note that the result carries no alpha
// channel.
func parseRGB(s string) (uint32, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "rgb("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return 0, fmt.Errorf("rgb color %q needs three components", s)
	}
	var c uint32
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return 0, fmt.Errorf("rgb color %q: bad component %q", s, strings.TrimSpace(p))
		}
		c = c*256 + uint32(n)
	}
	return c, nil
}

// ColorString formats a packed color for debugging output.
func ColorString(c uint32) string {
	for name, v := range namedColors {
		if v == c && name != "grey" {
			return name
		}
	}
	return fmt.Sprintf("#%08x", c)
}
