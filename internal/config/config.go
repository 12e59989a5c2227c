package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// Strip drivers.
const (
	StripSim      = "sim"
	StripNRZ      = "nrz"
	StripSerial   = "serial"
	StripTerminal = "terminal"
)

// Touch drivers.
const (
	TouchSim      = "sim"
	TouchMPR121   = "mpr121"
	TouchGPIO     = "gpio"
	TouchTerminal = "terminal"
)

// Modes.
const (
	ModeButtons = "buttons"
	ModeTokens  = "tokens"
)

type SPI struct {
	Port   string `yaml:"port"`    // periph name, "" for the first port
	FreqHz int64  `yaml:"freq_hz"` // 0 for 800kHz
}

type Serial struct {
	Device string `yaml:"device"` // e.g. /dev/ttyACM0
	Baud   int    `yaml:"baud"`
}

type Strip struct {
	Driver string `yaml:"driver"` // "sim" | "nrz" | "serial" | "terminal"
	SPI    SPI    `yaml:"spi,omitempty"`
	Serial Serial `yaml:"serial,omitempty"`
}

// Pins names one GPIO per button.
type Pins struct {
	Slap  string `yaml:"slap"`
	Cap   string `yaml:"cap"`
	Sup   string `yaml:"sup"`
	Peace string `yaml:"peace"`
}

// Array returns the pins in button order.
func (p Pins) Array() [model.ButtonCount]string {
	return [model.ButtonCount]string{
		model.ButtonSlap:  p.Slap,
		model.ButtonCap:   p.Cap,
		model.ButtonSup:   p.Sup,
		model.ButtonPeace: p.Peace,
	}
}

type Touch struct {
	Driver    string `yaml:"driver"` // "sim" | "mpr121" | "gpio" | "terminal"
	I2CBus    string `yaml:"i2c_bus,omitempty"`
	I2CAddr   uint16 `yaml:"i2c_addr,omitempty"`
	Pins      Pins   `yaml:"pins,omitempty"`
	Threshold uint32 `yaml:"threshold,omitempty"` // 0 for the driver default
}

type Preview struct {
	Addr string `yaml:"addr,omitempty"` // "" disables the preview server
}

type Config struct {
	Mode       string        `yaml:"mode"` // "buttons" | "tokens"
	Brightness uint8         `yaml:"brightness"`
	FPS        int           `yaml:"fps"`
	LoopDelay  time.Duration `yaml:"loop_delay"`

	Strip   Strip   `yaml:"strip"`
	Touch   Touch   `yaml:"touch"`
	Preview Preview `yaml:"preview,omitempty"`
}

// Default is a simulated device at the firmware's startup settings.
func Default() *Config {
	return &Config{
		Mode:       ModeButtons,
		Brightness: 50,
		FPS:        30,
		LoopDelay:  50 * time.Millisecond,
		Strip: Strip{
			Driver: StripSim,
			Serial: Serial{Baud: 115200},
		},
		Touch: Touch{
			Driver:  TouchSim,
			I2CAddr: 0x5A,
		},
	}
}

// FramePeriod is the render period for FPS, truncated to whole milliseconds.
func (c *Config) FramePeriod() time.Duration {
	if c.FPS <= 0 {
		return 0
	}
	return (time.Second / time.Duration(c.FPS)).Truncate(time.Millisecond)
}

// Validate checks driver names and ranges. Brightness above the ceiling is
// clamped rather than rejected.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeButtons, ModeTokens:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if c.Brightness > model.MAX_BRIGHTNESS {
		c.Brightness = model.MAX_BRIGHTNESS
	}
	if c.FPS < 1 || c.FPS > 120 {
		return errors.Errorf("fps %d out of range 1..120", c.FPS)
	}
	if c.LoopDelay <= 0 {
		return errors.New("loop_delay must be positive")
	}

	switch c.Strip.Driver {
	case StripSim, StripNRZ, StripTerminal:
	case StripSerial:
		if c.Strip.Serial.Device == "" {
			return errors.New("serial strip needs strip.serial.device")
		}
		if c.Strip.Serial.Baud <= 0 {
			return errors.New("serial strip needs a positive baud rate")
		}
	default:
		return errors.Errorf("unknown strip driver %q", c.Strip.Driver)
	}

	switch c.Touch.Driver {
	case TouchSim, TouchMPR121, TouchTerminal:
	case TouchGPIO:
		for i, p := range c.Touch.Pins.Array() {
			if p == "" {
				return errors.Errorf("gpio touch needs a pin for %s", model.Button(i))
			}
		}
	default:
		return errors.Errorf("unknown touch driver %q", c.Touch.Driver)
	}
	if c.Touch.Driver == TouchTerminal && c.Strip.Driver != StripTerminal {
		return errors.New("terminal touch needs the terminal strip")
	}
	return nil
}

// Load reads path over Default, so missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
