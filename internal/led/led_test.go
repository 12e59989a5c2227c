package led

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-glyphstrip/internal/ledserial"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

var (
	_ render.Strip = (*Memory)(nil)
	_ render.Strip = (*NRZ)(nil)
	_ render.Strip = (*Serial)(nil)
	_ render.Strip = Tee(nil)
)

func TestMemoryHistory(t *testing.T) {
	m := NewMemory(2)
	for v := uint8(1); v <= 3; v++ {
		require.NoError(t, m.SetPixel(0, v, 0, 0))
		require.NoError(t, m.Refresh())
	}
	h := m.History()
	require.Len(t, h, 2)
	assert.Equal(t, uint8(2), h[0][0].R())
	assert.Equal(t, uint8(3), h[1][0].R())
	assert.Equal(t, uint8(3), m.Last()[0].R())
	assert.Equal(t, 3, m.Count())

	assert.ErrorIs(t, m.SetPixel(model.StripLength, 1, 1, 1), ErrIndex)
}

func TestStagedUntilRefresh(t *testing.T) {
	m := NewMemory(0)
	require.NoError(t, m.SetPixel(5, 9, 9, 9))
	assert.Equal(t, model.Off, m.Last()[5])
	require.NoError(t, m.Refresh())
	assert.Equal(t, model.Gray(9), m.Last()[5])
	assert.Empty(t, m.History())
}

type failStrip struct{ Memory }

func (*failStrip) Refresh() error { return errors.New("unplugged") }

func TestTee(t *testing.T) {
	a, b := NewMemory(0), NewMemory(0)
	tee := Tee{a, &failStrip{}, b}
	require.NoError(t, tee.SetPixel(1, 0, 0, 255))
	assert.EqualError(t, tee.Refresh(), "unplugged")
	assert.Equal(t, model.Blue, a.Last()[1])
	assert.Equal(t, model.Blue, b.Last()[1], "later strips still refresh")
	assert.NoError(t, tee.Close())
}

func TestSerialFrames(t *testing.T) {
	var wire bytes.Buffer
	s, err := NewSerial(&wire, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.SetPixel(model.LED_SLAP, 255, 0, 0))
	require.NoError(t, s.Refresh())

	p, err := ledserial.ReadHostPacket(&wire, ledserial.ReadContext{})
	require.NoError(t, err)
	assert.Equal(t, ledserial.InitializePacket{NumLEDs: model.StripLength}, p)

	p, err = ledserial.ReadHostPacket(&wire, ledserial.ReadContext{NumLEDs: model.StripLength})
	require.NoError(t, err)
	set, ok := p.(ledserial.SetPacket)
	require.True(t, ok)
	require.Len(t, set.Pix, 3*model.StripLength)
	assert.Equal(t, []uint8{255, 0, 0}, set.Pix[3*model.LED_SLAP:3*model.LED_SLAP+3])

	require.NoError(t, s.Close())
	p, err = ledserial.ReadHostPacket(&wire, ledserial.ReadContext{})
	require.NoError(t, err)
	assert.Equal(t, ledserial.ClearPacket{}, p)
}

func TestSerialListenStopsOnDeviceError(t *testing.T) {
	var wire bytes.Buffer
	s, err := NewSerial(&wire, zerolog.Nop())
	require.NoError(t, err)
	wire.Reset()

	require.NoError(t, ledserial.WriteDevicePacket(&wire, ledserial.AckPacket{For: ledserial.TypeSet}))
	require.NoError(t, ledserial.WriteDevicePacket(&wire, ledserial.LogPacket{Message: "hello"}))
	require.NoError(t, ledserial.WriteDevicePacket(&wire, ledserial.ErrorPacket{Message: "brownout"}))

	err = s.Listen(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brownout")
}

// idlePort times out every read without data, like a serial port with a
// read timeout and a quiet device.
type idlePort struct {
	bytes.Buffer
}

func (*idlePort) Read(p []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func TestSerialListenStopsOnIdlePort(t *testing.T) {
	s, err := NewSerial(&idlePort{}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestNRZWritesSPI(t *testing.T) {
	var wire bytes.Buffer
	port := spitest.NewRecordRaw(&wire)
	n, err := NewNRZ(port, 0)
	require.NoError(t, err)

	require.NoError(t, n.SetPixel(0, 255, 255, 255))
	require.NoError(t, n.Refresh())
	assert.NotZero(t, wire.Len())
}
