// Package touch polls the four capacitive buttons.
package touch

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// DefaultThreshold is the smoothed reading above which a channel counts as
// pressed, unless the sensor supplies its own.
const DefaultThreshold uint32 = 70000

// ErrInvalidChannel is returned by sensors for a channel outside [0,4).
var ErrInvalidChannel = errors.New("touch: invalid channel")

// Sensor reads the capacitive channels. Channel numbers are model.Button
// values.
type Sensor interface {
	Init() error
	ReadSmoothed(ch int) (uint32, error)
	ReadRaw(ch int) (uint32, error)
}

// thresholder is implemented by sensors whose scale differs from the
// default threshold.
type thresholder interface {
	DefaultThreshold() uint32
}

// Reading is one channel's state as reported by Monitor.
type Reading struct {
	Button   model.Button
	Raw      uint32
	Smoothed uint32
	Pressed  bool
	Err      error
}

// Input turns sensor readings into button presses. Read failures count as
// not pressed.
type Input struct {
	sensor    Sensor
	threshold uint32
	log       zerolog.Logger
}

// NewInput wraps s. A zero threshold uses the sensor's own default, or
// DefaultThreshold.
func NewInput(s Sensor, threshold uint32, logger zerolog.Logger) *Input {
	if threshold == 0 {
		threshold = DefaultThreshold
		if t, ok := s.(thresholder); ok {
			threshold = t.DefaultThreshold()
		}
	}
	return &Input{
		sensor:    s,
		threshold: threshold,
		log:       logger.With().Str("component", "touch").Logger(),
	}
}

// Threshold returns the press threshold in use.
func (in *Input) Threshold() uint32 { return in.threshold }

// Init brings up the sensor.
func (in *Input) Init() error {
	in.log.Info().Uint32("threshold", in.threshold).Msg("initializing touch sensors")
	if err := in.sensor.Init(); err != nil {
		return errors.Wrap(err, "touch init")
	}
	in.log.Info().Msg("touch sensors ready")
	return nil
}

// Close releases the sensor if it holds resources.
func (in *Input) Close() error {
	if c, ok := in.sensor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Poll reports whether channel ch reads above the threshold.
func (in *Input) Poll(ch int) bool {
	v, err := in.sensor.ReadSmoothed(ch)
	if err != nil {
		in.log.Debug().Err(err).Int("channel", ch).Msg("touch read failed")
		return false
	}
	pressed := v > in.threshold
	if pressed {
		in.log.Debug().Int("channel", ch).Uint32("value", v).Msg("touch pressed")
	}
	return pressed
}

// PressedButton returns the first pressed button in priority order, or
// ButtonNone.
func (in *Input) PressedButton() model.Button {
	for _, b := range model.Buttons {
		if in.Poll(int(b)) {
			in.log.Info().Stringer("button", b).Msg("button pressed")
			return b
		}
	}
	return model.ButtonNone
}

// Monitor logs raw and smoothed values of every channel.
func (in *Input) Monitor() []Reading {
	out := make([]Reading, 0, model.ButtonCount)
	for _, b := range model.Buttons {
		r := Reading{Button: b}
		raw, rerr := in.sensor.ReadRaw(int(b))
		smooth, serr := in.sensor.ReadSmoothed(int(b))
		if rerr != nil || serr != nil {
			r.Err = rerr
			if r.Err == nil {
				r.Err = serr
			}
			in.log.Error().Stringer("button", b).AnErr("raw", rerr).AnErr("smoothed", serr).Msg("touch monitor read failed")
			out = append(out, r)
			continue
		}
		r.Raw, r.Smoothed = raw, smooth
		r.Pressed = smooth > in.threshold
		in.log.Info().
			Stringer("button", b).
			Uint32("raw", raw).
			Uint32("smoothed", smooth).
			Bool("pressed", r.Pressed).
			Msg("touch monitor")
		out = append(out, r)
	}
	return out
}

func checkChannel(ch int) error {
	if !model.Button(ch).Valid() {
		return ErrInvalidChannel
	}
	return nil
}
