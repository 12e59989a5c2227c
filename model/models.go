package model

import "strings"

const (
	StripLength  = 40
	GlyphCount   = 36
	ButtonCount  = 4
	InvalidIndex = -1
)

// Pixel indices of the four button indicators, at the tail of the strip.
const (
	LED_PEACE = 36
	LED_SUP   = 37
	LED_CAP   = 38
	LED_SLAP  = 39
)

// Button identifies one of the four touch buttons. The numeric value doubles
// as the touch channel and as the index into the render engine's button flags.
type Button int

const (
	ButtonNone  Button = -1
	ButtonSlap  Button = 0
	ButtonCap   Button = 1
	ButtonSup   Button = 2
	ButtonPeace Button = 3
)

// Buttons lists the buttons in touch priority order.
var Buttons = [ButtonCount]Button{ButtonSlap, ButtonCap, ButtonSup, ButtonPeace}

var buttonLeds = [ButtonCount]int{LED_SLAP, LED_CAP, LED_SUP, LED_PEACE}
var buttonColors = [ButtonCount]RGB{Red, Cyan, Yellow, Green}
var buttonNames = [ButtonCount]string{"SLAP", "CAP", "SUP", "PEACE"}

// Valid reports whether b is one of the four real buttons.
func (b Button) Valid() bool {
	return b >= 0 && int(b) < ButtonCount
}

// Index returns the pixel the button lights, or InvalidIndex.
func (b Button) Index() int {
	if !b.Valid() {
		return InvalidIndex
	}
	return buttonLeds[b]
}

// Color returns the button's base color. ButtonNone is Off.
func (b Button) Color() RGB {
	if !b.Valid() {
		return Off
	}
	return buttonColors[b]
}

func (b Button) String() string {
	if !b.Valid() {
		if b == ButtonNone {
			return "NONE"
		}
		return "UNKNOWN"
	}
	return buttonNames[b]
}

// ParseButton is the inverse of Button.String. Unknown names give ButtonNone.
func ParseButton(name string) Button {
	for i, n := range buttonNames {
		if strings.EqualFold(n, name) {
			return Button(i)
		}
	}
	return ButtonNone
}

// ValidIndex reports whether i addresses a pixel on the strip.
func ValidIndex(i int) bool {
	return i >= 0 && i < StripLength
}

// PixelStrip is the full 40 pixel frame.
type PixelStrip [StripLength]RGB

// Clear sets every pixel to Off.
func (s *PixelStrip) Clear() {
	for i := range s {
		s[i] = Off
	}
}

// Fill sets every pixel to c.
func (s *PixelStrip) Fill(c RGB) {
	for i := range s {
		s[i] = c
	}
}

// Set writes c at i. Out of range indices are ignored and reported.
func (s *PixelStrip) Set(i int, c RGB) bool {
	if !ValidIndex(i) {
		return false
	}
	s[i] = c
	return true
}

// Serialize returns the strip as packed R,G,B bytes in pixel order.
func (s *PixelStrip) Serialize() []byte {
	buf := make([]byte, 0, 3*StripLength)
	for _, c := range s {
		buf = append(buf, c.R(), c.G(), c.B())
	}
	return buf
}
