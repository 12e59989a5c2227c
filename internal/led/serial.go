package led

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/coreman2200/funtimes-glyphstrip/internal/ledserial"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

const readTimeout = 250 * time.Millisecond

// Serial sends frames to a microcontroller speaking ledserial.
type Serial struct {
	staging
	rw  io.ReadWriter
	log zerolog.Logger
}

// OpenSerial opens device at baud and initializes the remote strip.
func OpenSerial(device string, baud int, logger zerolog.Logger) (*Serial, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}
	// Listen polls so it can notice cancellation
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}
	s, err := NewSerial(port, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSerial initializes the remote strip over rw.
func NewSerial(rw io.ReadWriter, logger zerolog.Logger) (*Serial, error) {
	s := &Serial{rw: rw, log: logger.With().Str("component", "ledserial").Logger()}
	if err := ledserial.WriteHostPacket(rw, ledserial.InitializePacket{NumLEDs: model.StripLength}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize LEDs")
	}
	return s, nil
}

func (s *Serial) Refresh() error {
	f := s.frame()
	return ledserial.WriteHostPacket(s.rw, ledserial.SetPacket{Pix: f.Serialize()})
}

// Listen logs packets from the device until ctx is done or the port fails.
// An error packet from the device ends it with an error.
func (s *Serial) Listen(ctx context.Context) error {
	var first [1]byte
	for ctx.Err() == nil {
		// an idle port times out with (0, nil), which io.ReadFull would retry
		// forever, so wait for the first byte here
		n, err := s.rw.Read(first[:])
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to read packet")
		}
		p, err := ledserial.ReadDevicePacket(io.MultiReader(bytes.NewReader(first[:]), s.rw))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to read packet")
		}
		switch p := p.(type) {
		case ledserial.AckPacket:
			s.log.Debug().Stringer("for", p.For).Msg("ack")
		case ledserial.LogPacket:
			s.log.Info().Str("message", p.Message).Msg("controller log")
		case ledserial.ErrorPacket:
			s.log.Warn().Str("message", p.Message).Msg("controller error")
			return errors.Errorf("controller reported error: %s", p.Message)
		}
	}
	return nil
}

// Close clears the remote strip and closes the port if it can be closed.
func (s *Serial) Close() error {
	err := ledserial.WriteHostPacket(s.rw, ledserial.ClearPacket{})
	if c, ok := s.rw.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
