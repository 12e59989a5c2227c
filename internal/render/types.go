package render

import (
	"errors"
	"time"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

var (
	// ErrInvalidArgument is returned for out of range indices and empty text.
	// The engine state is left untouched.
	ErrInvalidArgument = errors.New("render: invalid argument")
	// ErrInvalidState is returned when the engine has no strip attached.
	ErrInvalidState = errors.New("render: display not initialized")
	// ErrAlreadyRunning is returned by Run when the frame loop is active.
	ErrAlreadyRunning = errors.New("render: frame loop already running")
)

const (
	// FramePeriod targets roughly 30 frames per second.
	FramePeriod = 33 * time.Millisecond
	// CharDuration is how long each overlay character is shown.
	CharDuration = 1000 * time.Millisecond
	// MaxOverlayLen is the longest overlay text kept, in bytes.
	MaxOverlayLen = 63
)

// Strip abstracts the LED transport. SetPixel only stages a value; Refresh
// commits the whole buffer to the physical output.
type Strip interface {
	SetPixel(index int, r, g, b uint8) error
	Refresh() error
}

// TextOverlay is a timed message shown one character per CharDuration. It is
// never mutated once stored.
type TextOverlay struct {
	Text     string
	Color    model.RGB
	Start    time.Time
	Duration time.Duration
}

// Expired reports whether the overlay has run its full duration at now.
func (o *TextOverlay) Expired(now time.Time) bool {
	return o.elapsed(now) >= o.Duration
}

func (o *TextOverlay) elapsed(now time.Time) time.Duration {
	d := now.Sub(o.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Slot returns the index into Text of the character active at now. The rate
// is fixed at CharDuration per character, independent of Duration.
func (o *TextOverlay) Slot(now time.Time) (int, bool) {
	if o == nil || len(o.Text) == 0 || o.Expired(now) {
		return 0, false
	}
	i := int(o.elapsed(now) / CharDuration)
	if i > len(o.Text)-1 {
		i = len(o.Text) - 1
	}
	return i, true
}

// EffectState is the set of layers the compositor reads every frame.
type EffectState struct {
	Ambient       bool
	ButtonShimmer bool
	Highlighted   [model.ButtonCount]bool
	Pulsing       [model.ButtonCount]bool
	Overlay       *TextOverlay
}
