package render

import "github.com/coreman2200/funtimes-glyphstrip/model"

// Sweep lights the glyph pixels one per Step with hues spread evenly around
// the wheel. Pixels already lit stay lit.
type Sweep struct {
	step int
}

// SweepLen is the number of steps in a full sweep.
const SweepLen = model.GlyphCount

// SweepHue returns the hue used for glyph pixel i.
func SweepHue(i int) uint16 {
	return uint16(i * 360 / SweepLen)
}

// PixelWriter sets a single pixel with brightness applied.
type PixelWriter interface {
	ShowPixel(i int, c model.RGB) error
}

// Step lights the next pixel and returns false once every pixel is lit.
func (s *Sweep) Step(e PixelWriter) (bool, error) {
	if s.step >= SweepLen {
		return false, nil
	}
	i := s.step
	s.step++
	return true, e.ShowPixel(i, model.HSVToRGB(SweepHue(i), 255, 255))
}

// Done reports whether the sweep has lit every pixel.
func (s *Sweep) Done() bool { return s.step >= SweepLen }

// Reset starts the sweep over.
func (s *Sweep) Reset() { s.step = 0 }
