package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Colour is a linear RGBA colour with float components in [0, 1].
type Colour struct {
	R, G, B, A float32
}

var (
	ColourWhite       = Colour{1, 1, 1, 1}
	ColourBlack       = Colour{0, 0, 0, 1}
	ColourRed         = Colour{1, 0, 0, 1}
	ColourGreen       = Colour{0, 1, 0, 1}
	ColourBlue        = Colour{0, 0, 1, 1}
	ColourYellow      = Colour{1, 1, 0, 1}
	ColourCyan        = Colour{0, 1, 1, 1}
	ColourMagenta     = Colour{1, 0, 1, 1}
	ColourOrange      = Colour{1, 0.5, 0, 1}
	ColourPurple      = Colour{0.5, 0, 0.5, 1}
	ColourGrey        = Colour{0.5, 0.5, 0.5, 1}
	ColourTransparent = Colour{0, 0, 0, 0}
)

func NewColourRGB(r, g, b float32) Colour {
	return Colour{R: r, G: g, B: b, A: 1}
}

func NewColourBytes(r, g, b, a uint8) Colour {
	return Colour{R: float32(r) / 255, G: float32(g) / 255, B: float32(b) / 255, A: float32(a) / 255}
}

// NewColourARGB unpacks a 0xAARRGGBB value.
func NewColourARGB(c uint32) Colour {
	return NewColourBytes(uint8(c>>16), uint8(c>>8), uint8(c), uint8(c>>24))
}

// ParseColourHex accepts "#RRGGBB" or "#AARRGGBB", with or without the hash.
// Six digit values are opaque.
func ParseColourHex(hex string) (Colour, error) {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Colour{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	switch len(hex) {
	case 6:
		return NewColourARGB(uint32(v) | 0xFF000000), nil
	case 8:
		return NewColourARGB(uint32(v)), nil
	}
	return Colour{}, fmt.Errorf("invalid colour %q: want 6 or 8 hex digits", hex)
}

// RGBA8 converts to 8-bit channels, clamping out-of-range components.
func (c Colour) RGBA8() [4]uint8 {
	conv := func(f float32) uint8 {
		if f <= 0 {
			return 0
		}
		if f >= 1 {
			return 255
		}
		return uint8(f*255 + 0.5)
	}
	return [4]uint8{conv(c.R), conv(c.G), conv(c.B), conv(c.A)}
}

func (c Colour) Scale(s float32) Colour {
	return Colour{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A}
}

func (c Colour) String() string {
	return fmt.Sprintf("Colour(R: %g, G: %g, B: %g, A: %g)", c.R, c.G, c.B, c.A)
}
