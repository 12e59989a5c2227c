package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/config"
	"github.com/coreman2200/funtimes-glyphstrip/internal/led"
	"github.com/coreman2200/funtimes-glyphstrip/internal/preview"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/internal/sim"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// hardware is everything opened from the config.
type hardware struct {
	strip  render.Strip
	sensor touch.Sensor

	// optional tasks
	term    *sim.Terminal
	serial  *led.Serial
	preview *preview.Server

	closers []io.Closer
	log     zerolog.Logger
}

func openHardware(cfg *config.Config, clk clock.Clock, logger zerolog.Logger) (*hardware, error) {
	hw := &hardware{log: logger}
	if needsHost(cfg) {
		if _, err := host.Init(); err != nil {
			return nil, errors.Wrap(err, "periph host init")
		}
	}
	if err := hw.openStrip(cfg, clk, logger); err != nil {
		hw.Close()
		return nil, err
	}
	if err := hw.openSensor(cfg, clk); err != nil {
		hw.Close()
		return nil, err
	}

	if cfg.Preview.Addr != "" {
		hw.preview = preview.New(logger)
		// presses from the browser are momentary, like a finger on the pad
		switch s := hw.sensor.(type) {
		case *touch.Sim:
			hw.preview.OnPress = s.Tap
		case keys:
			hw.preview.OnPress = s.Press
		default:
			logger.Warn().Str("touch", cfg.Touch.Driver).Msg("preview presses ignored by this touch driver")
		}
		hw.strip = led.Tee{hw.strip, hw.preview}
	}
	return hw, nil
}

func needsHost(cfg *config.Config) bool {
	return cfg.Strip.Driver == config.StripNRZ ||
		cfg.Touch.Driver == config.TouchMPR121 ||
		cfg.Touch.Driver == config.TouchGPIO
}

func (hw *hardware) openStrip(cfg *config.Config, clk clock.Clock, logger zerolog.Logger) error {
	switch cfg.Strip.Driver {
	case config.StripNRZ:
		freq := physic.Frequency(cfg.Strip.SPI.FreqHz) * physic.Hertz
		n, err := led.OpenNRZ(cfg.Strip.SPI.Port, freq)
		if err != nil {
			return err
		}
		hw.strip = n
		hw.closers = append(hw.closers, n)
	case config.StripSerial:
		s, err := led.OpenSerial(cfg.Strip.Serial.Device, cfg.Strip.Serial.Baud, logger)
		if err != nil {
			return err
		}
		hw.strip, hw.serial = s, s
		hw.closers = append(hw.closers, s)
	case config.StripTerminal:
		t, err := sim.Open(clk, logger)
		if err != nil {
			return err
		}
		hw.strip, hw.term = t, t
		hw.closers = append(hw.closers, t)
	case config.StripSim:
		hw.strip = led.NewMemory(0)
	default:
		return errors.Errorf("unknown strip driver %q", cfg.Strip.Driver)
	}
	return nil
}

// openSensor picks the touch driver. The touch input closes hardware sensors
// when the core stops.
func (hw *hardware) openSensor(cfg *config.Config, clk clock.Clock) error {
	switch cfg.Touch.Driver {
	case config.TouchMPR121:
		m, err := touch.OpenMPR121(cfg.Touch.I2CBus, cfg.Touch.I2CAddr)
		if err != nil {
			return err
		}
		hw.sensor = m
	case config.TouchGPIO:
		hw.sensor = touch.NewGPIO(cfg.Touch.Pins.Array())
	case config.TouchTerminal:
		if hw.term == nil {
			return errors.New("terminal touch needs the terminal strip")
		}
		// wrapped so the touch input does not close the screen
		hw.sensor = keys{hw.term}
	case config.TouchSim:
		hw.sensor = touch.NewSimClock(clk)
	default:
		return errors.Errorf("unknown touch driver %q", cfg.Touch.Driver)
	}
	return nil
}

// status feeds f to the terminal status line and to /health.
func (hw *hardware) status(f func() map[string]any) {
	if hw.preview != nil {
		hw.preview.Status = f
	}
	if hw.term != nil {
		hw.term.Status = func() string {
			s := f()
			return fmt.Sprintf("state %v  pressed %v  frames %v", s["state"], s["pressed"], s["frames"])
		}
	}
}

// Close releases the outputs in reverse order of opening.
func (hw *hardware) Close() {
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i].Close(); err != nil {
			hw.log.Warn().Err(err).Msg("close")
		}
	}
	hw.closers = nil
}

// keys exposes the terminal's touch side only.
type keys struct {
	t *sim.Terminal
}

func (k keys) Init() error                         { return k.t.Init() }
func (k keys) ReadSmoothed(ch int) (uint32, error) { return k.t.ReadSmoothed(ch) }
func (k keys) ReadRaw(ch int) (uint32, error)      { return k.t.ReadRaw(ch) }
func (k keys) Press(b model.Button)                { k.t.Press(b) }
