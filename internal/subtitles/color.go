package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an opaque RGB colour as used by captions and overlays.
type Color struct {
	R, G, B uint8
}

// ParseColor accepts "#RRGGBB", "RRGGBB", "0xRRGGBB" and the short "#RGB".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimSpace(s)
	hex = strings.TrimPrefix(hex, "#")
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustColor parses s and falls back to def when s is not a valid colour.
func MustColor(s string, def Color) Color {
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

// ASS returns the style-table form &HAABBGGRR (alpha 00 = opaque).
func (c Color) ASS() string {
	return fmt.Sprintf("&H00%02X%02X%02X", c.B, c.G, c.R)
}

// ASSInline returns the override-tag form &HBBGGRR& used by \1c and friends.
func (c Color) ASSInline() string {
	return fmt.Sprintf("&H%02X%02X%02X&", c.B, c.G, c.R)
}

// FFmpeg returns the 0xRRGGBB form accepted by ffmpeg colour options.
func (c Color) FFmpeg() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

// Hex returns #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	White = Color{0xFF, 0xFF, 0xFF}
	Black = Color{0x00, 0x00, 0x00}
)
