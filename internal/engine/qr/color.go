package qr

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"qrlink/internal/pkg/errors"
)

// RGB is an opaque colour parsed from user input.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
)

func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor accepts #rgb, #rrggbb, rgb(r, g, b) and CSS colour names.
func ParseColor(s string) (RGB, error) {
	v := strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(v, "#"):
		if c, ok := parseHex(v[1:]); ok {
			return c, nil
		}
	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		if c, ok := parseFunctional(v[4 : len(v)-1]); ok {
			return c, nil
		}
	default:
		if named, ok := colornames.Map[v]; ok {
			return RGB{named.R, named.G, named.B}, nil
		}
	}

	return RGB{}, errors.Newf(errors.InvalidColor, "qr.ParseColor", fmt.Sprintf("invalid color %q", s))
}

// ParseColorOr parses s, returning def when s is blank.
func ParseColorOr(s string, def RGB) (RGB, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseColor(s)
}

func parseHex(h string) (RGB, bool) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return RGB{}, false
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{uint8(n >> 16), uint8(n >> 8), uint8(n)}, true
}

func parseFunctional(body string) (RGB, bool) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return RGB{}, false
	}
	var out [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return RGB{}, false
		}
		out[i] = uint8(n)
	}
	return RGB{out[0], out[1], out[2]}, true
}
