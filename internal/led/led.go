// Package led holds the strip outputs: in-memory, WS2812 over SPI, a serial
// bridge to a microcontroller, and a tee that mirrors one strip to several.
package led

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// ErrIndex is returned by SetPixel for an index outside the strip.
var ErrIndex = errors.New("led: pixel index out of range")

// staging holds pixel values between SetPixel and Refresh.
type staging struct {
	mu  sync.Mutex
	pix model.PixelStrip
}

func (s *staging) SetPixel(i int, r, g, b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pix.Set(i, model.NewRGB(r, g, b)) {
		return ErrIndex
	}
	return nil
}

// frame returns a copy of the staged pixels.
func (s *staging) frame() model.PixelStrip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pix
}
