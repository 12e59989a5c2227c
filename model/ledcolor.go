package model

// MAX_BRIGHTNESS is the brightness ceiling. Anything above it is clamped.
const MAX_BRIGHTNESS uint8 = 128

// DFLT_BRIGHTNESS is the brightness the strip starts with.
const DFLT_BRIGHTNESS uint8 = 64

const (
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// RGB is a packed 0xRRGGBB color.
type RGB uint32

const (
	Off     RGB = 0x000000
	Red     RGB = 0xFF0000
	Green   RGB = 0x00FF00
	Blue    RGB = 0x0000FF
	White   RGB = 0xFFFFFF
	Yellow  RGB = 0xFFFF00
	Cyan    RGB = 0x00FFFF
	Magenta RGB = 0xFF00FF
)

// NewRGB packs three channels into an RGB.
func NewRGB(r, g, b uint8) RGB {
	var c uint32
	c = setcolor(c, r, RED_OFFSET)
	c = setcolor(c, g, GREEN_OFFSET)
	c = setcolor(c, b, BLUE_OFFSET)
	return RGB(c)
}

// Gray returns a color with all three channels set to v.
func Gray(v uint8) RGB {
	return NewRGB(v, v, v)
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

func (c RGB) R() uint8 { return getcolor(uint32(c), RED_OFFSET) }
func (c RGB) G() uint8 { return getcolor(uint32(c), GREEN_OFFSET) }
func (c RGB) B() uint8 { return getcolor(uint32(c), BLUE_OFFSET) }

// Channels returns the color as three separate channels.
func (c RGB) Channels() (r, g, b uint8) {
	return c.R(), c.G(), c.B()
}

// Scale multiplies each channel by f, truncating. f is clamped to [0,1].
func (c RGB) Scale(f float64) RGB {
	if f <= 0 {
		return Off
	}
	if f >= 1 {
		return c
	}
	return NewRGB(
		uint8(float64(c.R())*f),
		uint8(float64(c.G())*f),
		uint8(float64(c.B())*f),
	)
}

// ApplyBrightness scales every channel by brightness/MAX_BRIGHTNESS. Values
// above MAX_BRIGHTNESS behave as MAX_BRIGHTNESS.
func ApplyBrightness(c RGB, brightness uint8) RGB {
	if brightness > MAX_BRIGHTNESS {
		brightness = MAX_BRIGHTNESS
	}
	b := uint32(brightness)
	return NewRGB(
		uint8(uint32(c.R())*b/uint32(MAX_BRIGHTNESS)),
		uint8(uint32(c.G())*b/uint32(MAX_BRIGHTNESS)),
		uint8(uint32(c.B())*b/uint32(MAX_BRIGHTNESS)),
	)
}

// HSVToRGB converts hue/saturation/value using six integer regions of 43
// hue steps each. Hues past the fifth region all land in the last one, so a
// 0..359 hue wraps back toward red. Brightness is not applied here.
func HSVToRGB(h uint16, s, v uint8) RGB {
	if s == 0 {
		return Gray(v)
	}

	region := uint32(h / 43)
	remainder := uint32(uint8((uint32(h) - region*43) * 6))

	vv := uint32(v)
	ss := uint32(s)
	p := uint8((vv * (255 - ss)) >> 8)
	q := uint8((vv * (255 - ((ss * remainder) >> 8))) >> 8)
	t := uint8((vv * (255 - ((ss * (255 - remainder)) >> 8))) >> 8)

	switch region {
	case 0:
		return NewRGB(v, t, p)
	case 1:
		return NewRGB(q, v, p)
	case 2:
		return NewRGB(p, v, t)
	case 3:
		return NewRGB(p, q, v)
	case 4:
		return NewRGB(t, p, v)
	default:
		return NewRGB(v, p, q)
	}
}
