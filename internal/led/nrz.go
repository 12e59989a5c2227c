package led

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// DefaultNRZFreq is the WS2812 bit rate.
const DefaultNRZFreq = 800 * physic.KiloHertz

// NRZ drives a WS2812 strip through an SPI port.
type NRZ struct {
	staging
	port spi.PortCloser
	dev  *nrzled.Dev
}

// OpenNRZ opens the named SPI port. An empty name picks the first port.
func OpenNRZ(name string, freq physic.Frequency) (*NRZ, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open spi port")
	}
	n, err := NewNRZ(p, freq)
	if err != nil {
		p.Close()
		return nil, err
	}
	n.port = p
	return n, nil
}

// NewNRZ uses an already opened port. The port is not closed by Close.
func NewNRZ(p spi.Port, freq physic.Frequency) (*NRZ, error) {
	if freq == 0 {
		freq = DefaultNRZFreq
	}
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: model.StripLength,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, errors.Wrap(err, "nrzled")
	}
	return &NRZ{dev: dev}, nil
}

func (n *NRZ) Refresh() error {
	f := n.frame()
	_, err := n.dev.Write(f.Serialize())
	return errors.Wrap(err, "nrz write")
}

// Close blanks the strip and releases the port.
func (n *NRZ) Close() error {
	err := n.dev.Halt()
	if n.port != nil {
		if cerr := n.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
