package preview

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// fallbackColor paints pixels whose color token is not recognized.
var fallbackColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// ParseColor maps a client color token to RGBA. It understands #rgb,
// #rrggbb, #rrggbbaa and CSS color names. Anything else reports false.
func ParseColor(token string) (color.RGBA, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return color.RGBA{}, false
	}

	if hex, ok := strings.CutPrefix(token, "#"); ok {
		return parseHex(hex)
	}

	c, ok := colornames.Map[token]
	return c, ok
}

func parseHex(hex string) (color.RGBA, bool) {
	switch len(hex) {
	case 3:
		v, err := strconv.ParseUint(hex, 16, 16)
		if err != nil {
			return color.RGBA{}, false
		}
		r, g, b := uint8(v>>8&0xf), uint8(v>>4&0xf), uint8(v&0xf)
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 0xff}, true
	case 6, 8:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		if len(hex) == 6 {
			v = v<<8 | 0xff
		}
		// Premultiply so the value is a valid color.RGBA.
		a := uint32(v & 0xff)
		r := uint32(v>>24&0xff) * a / 0xff
		g := uint32(v>>16&0xff) * a / 0xff
		b := uint32(v>>8&0xff) * a / 0xff
		return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, true
	default:
		return color.RGBA{}, false
	}
}
