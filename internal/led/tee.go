package led

import (
	"io"

	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
)

// Tee writes every pixel to each strip. The first error is returned after
// all strips have been written.
type Tee []render.Strip

func (t Tee) SetPixel(i int, r, g, b uint8) error {
	var first error
	for _, s := range t {
		if err := s.SetPixel(i, r, g, b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) Refresh() error {
	var first error
	for _, s := range t {
		if err := s.Refresh(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every strip that can be closed.
func (t Tee) Close() error {
	var first error
	for _, s := range t {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
