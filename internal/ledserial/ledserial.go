// Package ledserial is the framed protocol between the host and a
// microcontroller driving the strip. Every packet is a type byte, a payload
// and a little endian CRC32 (IEEE) of the type and payload.
package ledserial

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Endianness of every multi-byte field.
var Endianness = binary.LittleEndian

// ErrChecksum is returned when a packet's CRC does not match.
var ErrChecksum = errors.New("ledserial: checksum mismatch")

// MaxMessageLen bounds error and log messages.
const MaxMessageLen = 1024

// HostPacketType identifies packets sent by the host.
type HostPacketType uint8

const (
	TypeInitialize HostPacketType = iota
	TypeClear
	TypeSet
)

func (t HostPacketType) String() string {
	switch t {
	case TypeInitialize:
		return "initialize"
	case TypeClear:
		return "clear"
	case TypeSet:
		return "set"
	default:
		return fmt.Sprintf("HostPacketType(%d)", t)
	}
}

// HostPacket is a packet sent by the host.
type HostPacket interface {
	Type() HostPacketType
}

// InitializePacket sizes the strip.
type InitializePacket struct {
	NumLEDs uint16
}

// ClearPacket turns every pixel off.
type ClearPacket struct{}

// SetPacket carries packed R,G,B bytes for every pixel.
type SetPacket struct {
	Pix []uint8
}

func (InitializePacket) Type() HostPacketType { return TypeInitialize }
func (ClearPacket) Type() HostPacketType      { return TypeClear }
func (SetPacket) Type() HostPacketType        { return TypeSet }

// DevicePacketType identifies packets sent by the microcontroller.
type DevicePacketType uint8

const (
	TypeAck DevicePacketType = iota
	TypeError
	TypeLog
)

func (t DevicePacketType) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeError:
		return "error"
	case TypeLog:
		return "log"
	default:
		return fmt.Sprintf("DevicePacketType(%d)", t)
	}
}

// DevicePacket is a packet sent by the microcontroller.
type DevicePacket interface {
	Type() DevicePacketType
}

// AckPacket confirms a host packet was applied.
type AckPacket struct {
	For HostPacketType
}

// ErrorPacket reports a failure on the device.
type ErrorPacket struct {
	Message string
}

// LogPacket forwards a device log line.
type LogPacket struct {
	Message string
}

func (AckPacket) Type() DevicePacketType   { return TypeAck }
func (ErrorPacket) Type() DevicePacketType { return TypeError }
func (LogPacket) Type() DevicePacketType   { return TypeLog }

// ReadContext carries what the reader must know to size payloads.
type ReadContext struct {
	NumLEDs uint16
}

func frame(w io.Writer, typ uint8, payload []byte) error {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, typ)
	buf = append(buf, payload...)
	buf = Endianness.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	_, err := w.Write(buf)
	return err
}

func checkCRC(r io.Reader, hash uint32) error {
	var sum uint32
	if err := binary.Read(r, Endianness, &sum); err != nil {
		return errors.Wrap(err, "read checksum")
	}
	if sum != hash {
		return ErrChecksum
	}
	return nil
}

func message(m string) []byte {
	if len(m) > MaxMessageLen {
		m = m[:MaxMessageLen]
	}
	b := Endianness.AppendUint16(nil, uint16(len(m)))
	return append(b, m...)
}

// WriteHostPacket encodes p to w in a single write.
func WriteHostPacket(w io.Writer, p HostPacket) error {
	var payload []byte
	switch p := p.(type) {
	case InitializePacket:
		payload = Endianness.AppendUint16(nil, p.NumLEDs)
	case ClearPacket:
	case SetPacket:
		payload = p.Pix
	default:
		return errors.Errorf("unknown host packet %T", p)
	}
	return errors.Wrapf(frame(w, uint8(p.Type()), payload), "write %s packet", p.Type())
}

// ReadHostPacket decodes one host packet from r.
func ReadHostPacket(r io.Reader, rc ReadContext) (HostPacket, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var typ [1]byte
	if _, err := io.ReadFull(tr, typ[:]); err != nil {
		return nil, errors.Wrap(err, "read packet type")
	}

	var p HostPacket
	switch t := HostPacketType(typ[0]); t {
	case TypeInitialize:
		var ip InitializePacket
		if err := binary.Read(tr, Endianness, &ip.NumLEDs); err != nil {
			return nil, errors.Wrap(err, "read led count")
		}
		p = ip
	case TypeClear:
		p = ClearPacket{}
	case TypeSet:
		sp := SetPacket{Pix: make([]uint8, 3*int(rc.NumLEDs))}
		if _, err := io.ReadFull(tr, sp.Pix); err != nil {
			return nil, errors.Wrap(err, "read pixels")
		}
		p = sp
	default:
		return nil, errors.Errorf("unknown host packet type %s", t)
	}

	if err := checkCRC(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteDevicePacket encodes p to w in a single write.
func WriteDevicePacket(w io.Writer, p DevicePacket) error {
	var payload []byte
	switch p := p.(type) {
	case AckPacket:
		payload = []byte{uint8(p.For)}
	case ErrorPacket:
		payload = message(p.Message)
	case LogPacket:
		payload = message(p.Message)
	default:
		return errors.Errorf("unknown device packet %T", p)
	}
	return errors.Wrapf(frame(w, uint8(p.Type()), payload), "write %s packet", p.Type())
}

// ReadDevicePacket decodes one device packet from r.
func ReadDevicePacket(r io.Reader) (DevicePacket, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var typ [1]byte
	if _, err := io.ReadFull(tr, typ[:]); err != nil {
		return nil, errors.Wrap(err, "read packet type")
	}

	readMessage := func() (string, error) {
		var n uint16
		if err := binary.Read(tr, Endianness, &n); err != nil {
			return "", errors.Wrap(err, "read message length")
		}
		if n > MaxMessageLen {
			return "", errors.Errorf("message length %d too long", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(tr, buf); err != nil {
			return "", errors.Wrap(err, "read message")
		}
		return string(bytes.ToValidUTF8(buf, []byte("?"))), nil
	}

	var p DevicePacket
	switch t := DevicePacketType(typ[0]); t {
	case TypeAck:
		var b [1]byte
		if _, err := io.ReadFull(tr, b[:]); err != nil {
			return nil, errors.Wrap(err, "read ack")
		}
		p = AckPacket{For: HostPacketType(b[0])}
	case TypeError:
		m, err := readMessage()
		if err != nil {
			return nil, err
		}
		p = ErrorPacket{Message: m}
	case TypeLog:
		m, err := readMessage()
		if err != nil {
			return nil, err
		}
		p = LogPacket{Message: m}
	default:
		return nil, errors.Errorf("unknown device packet type %s", t)
	}

	if err := checkCRC(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return p, nil
}
