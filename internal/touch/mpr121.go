package touch

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// MPR121 register map, the subset used here.
const (
	mprFiltered   = 0x04 // 2 bytes per electrode, little endian, 10 bits
	mprBaseline   = 0x1E // 1 byte per electrode, value >> 2
	mprTouchThr   = 0x41 // touch/release thresholds, 2 bytes per electrode
	mprMHDR       = 0x2B
	mprDebounce   = 0x5B
	mprConfig1    = 0x5C
	mprConfig2    = 0x5D
	mprECR        = 0x5E
	mprSoftReset  = 0x80
	mprResetValue = 0x63

	// MPR121Addr is the default address with ADDR tied to ground.
	MPR121Addr = 0x5A

	mprTouch   = 12
	mprRelease = 6
)

// MPR121 reads four electrodes of an MPR121 over I2C. The smoothed value is
// baseline minus filtered data, which grows as a finger approaches.
type MPR121 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenMPR121 opens the named I2C bus. An empty name picks the first bus.
func OpenMPR121(busName string, addr uint16) (*MPR121, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrap(err, "open i2c bus")
	}
	return &MPR121{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: addr}}, nil
}

// NewMPR121 uses an already opened bus. The bus is not closed by Close.
func NewMPR121(bus i2c.Bus, addr uint16) *MPR121 {
	return &MPR121{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// DefaultThreshold is in baseline-minus-filtered counts.
func (m *MPR121) DefaultThreshold() uint32 { return mprTouch }

func (m *MPR121) write(reg, v byte) error {
	return m.dev.Tx([]byte{reg, v}, nil)
}

func (m *MPR121) read(reg byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := m.dev.Tx([]byte{reg}, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Init resets the chip and starts measuring electrodes 0-3.
func (m *MPR121) Init() error {
	seq := [][2]byte{
		{mprSoftReset, mprResetValue},
		{mprECR, 0x00},
	}
	for ch := 0; ch < 4; ch++ {
		seq = append(seq,
			[2]byte{byte(mprTouchThr + 2*ch), mprTouch},
			[2]byte{byte(mprTouchThr + 2*ch + 1), mprRelease},
		)
	}
	seq = append(seq,
		[2]byte{mprMHDR, 0x01},
		[2]byte{mprDebounce, 0x00},
		[2]byte{mprConfig1, 0x10},
		[2]byte{mprConfig2, 0x20},
		[2]byte{mprECR, 0x84},
	)
	for _, w := range seq {
		if err := m.write(w[0], w[1]); err != nil {
			return errors.Wrapf(err, "mpr121 write 0x%02x", w[0])
		}
	}
	return nil
}

// ReadRaw returns the filtered electrode data.
func (m *MPR121) ReadRaw(ch int) (uint32, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	b, err := m.read(byte(mprFiltered+2*ch), 2)
	if err != nil {
		return 0, errors.Wrap(err, "mpr121 filtered")
	}
	return uint32(binary.LittleEndian.Uint16(b) & 0x3FF), nil
}

// ReadSmoothed returns how far the electrode sits below its baseline.
func (m *MPR121) ReadSmoothed(ch int) (uint32, error) {
	filtered, err := m.ReadRaw(ch)
	if err != nil {
		return 0, err
	}
	b, err := m.read(byte(mprBaseline+ch), 1)
	if err != nil {
		return 0, errors.Wrap(err, "mpr121 baseline")
	}
	baseline := uint32(b[0]) << 2
	if filtered >= baseline {
		return 0, nil
	}
	return baseline - filtered, nil
}

// Close stops measurement and releases the bus if it was opened here.
func (m *MPR121) Close() error {
	err := m.write(mprECR, 0x00)
	if m.bus != nil {
		if cerr := m.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
