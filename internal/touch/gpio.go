package touch

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// GPIO reads digital touch modules, one pin per button. A high pin reads as
// FullScale, a low pin as zero.
type GPIO struct {
	names [model.ButtonCount]string
	pins  [model.ButtonCount]gpio.PinIO
}

// NewGPIO looks the pins up by name at Init, in SLAP, CAP, SUP, PEACE order.
func NewGPIO(names [model.ButtonCount]string) *GPIO {
	return &GPIO{names: names}
}

// NewGPIOPins uses already resolved pins.
func NewGPIOPins(pins [model.ButtonCount]gpio.PinIO) *GPIO {
	g := &GPIO{pins: pins}
	for i, p := range pins {
		if p != nil {
			g.names[i] = p.Name()
		}
	}
	return g
}

func (g *GPIO) Init() error {
	for i := range g.pins {
		if g.pins[i] == nil {
			p := gpioreg.ByName(g.names[i])
			if p == nil {
				return errors.Errorf("gpio pin %q not found", g.names[i])
			}
			g.pins[i] = p
		}
		if err := g.pins[i].In(gpio.PullDown, gpio.NoEdge); err != nil {
			return errors.Wrapf(err, "configure %s", g.pins[i])
		}
	}
	return nil
}

func (g *GPIO) ReadSmoothed(ch int) (uint32, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	p := g.pins[ch]
	if p == nil {
		return 0, errors.Errorf("gpio channel %d not initialized", ch)
	}
	if p.Read() == gpio.High {
		return FullScale, nil
	}
	return 0, nil
}

func (g *GPIO) ReadRaw(ch int) (uint32, error) {
	return g.ReadSmoothed(ch)
}
