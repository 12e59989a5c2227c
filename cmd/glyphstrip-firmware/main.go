//go:build tinygo

// Command glyphstrip-firmware runs the button flow on a microcontroller with
// the strip on a ws2812 data pin and one digital touch module per button.
package main

import (
	"context"
	"image/color"
	"machine"
	"runtime/interrupt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"tinygo.org/x/drivers/ws2812"

	"github.com/coreman2200/funtimes-glyphstrip/internal/app"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

const brightness = 50

var errIndex = errors.New("pixel index out of range")

var (
	dataPin  = machine.D6
	touchPin = [model.ButtonCount]machine.Pin{
		model.ButtonSlap:  machine.D2,
		model.ButtonCap:   machine.D3,
		model.ButtonSup:   machine.D4,
		model.ButtonPeace: machine.D5,
	}
)

// strip buffers pixels for one ws2812 write per refresh.
type strip struct {
	dev ws2812.Device
	buf [model.StripLength]color.RGBA
}

func newStrip(pin machine.Pin) *strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &strip{dev: ws2812.New(pin)}
}

func (s *strip) SetPixel(i int, r, g, b uint8) error {
	if !model.ValidIndex(i) {
		return errIndex
	}
	s.buf[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	return nil
}

func (s *strip) Refresh() error {
	// the bit timing must not be interrupted
	state := interrupt.Disable()
	err := s.dev.WriteColors(s.buf[:])
	interrupt.Restore(state)
	return err
}

// pins reads digital touch modules. High is pressed.
type pins [model.ButtonCount]machine.Pin

func (p *pins) Init() error {
	for _, pin := range p {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	}
	return nil
}

func (p *pins) ReadSmoothed(ch int) (uint32, error) {
	if !model.Button(ch).Valid() {
		return 0, touch.ErrInvalidChannel
	}
	if p[ch].Get() {
		return touch.FullScale, nil
	}
	return 0, nil
}

func (p *pins) ReadRaw(ch int) (uint32, error) { return p.ReadSmoothed(ch) }

func main() {
	time.Sleep(time.Second) // let the USB console attach

	logger := zerolog.New(machine.Serial).With().Timestamp().Logger()
	t := pins(touchPin)
	core, err := app.InitCore(app.HWConfig{
		Strip:      newStrip(dataPin),
		Sensor:     &t,
		Brightness: brightness,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init")
	}
	// Run only returns on a failed touch init, which is not retried
	err = core.Run(context.Background())
	logger.Error().Err(err).Msg("core stopped, halting")
	select {}
}
