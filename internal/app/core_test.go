package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// lastStrip keeps the last refreshed frame.
type lastStrip struct {
	mu      sync.Mutex
	pending model.PixelStrip
	shown   model.PixelStrip
}

func (s *lastStrip) SetPixel(i int, r, g, b uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Set(i, model.NewRGB(r, g, b))
	return nil
}

func (s *lastStrip) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = s.pending
	return nil
}

func TestInitCoreRequiresHardware(t *testing.T) {
	_, err := InitCore(HWConfig{Sensor: touch.NewSim()}, zerolog.Nop())
	assert.Error(t, err)
	_, err = InitCore(HWConfig{Strip: nullStrip{}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitCoreAppliesZeroBrightness(t *testing.T) {
	c, err := InitCore(HWConfig{Strip: nullStrip{}, Sensor: touch.NewSim(), Brightness: 0}, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, c.Eng.Brightness())
}

func TestCoreRunStartsRenderAndClearsOnExit(t *testing.T) {
	strip := &lastStrip{}
	c, err := InitCore(HWConfig{
		Strip:      strip,
		Sensor:     touch.NewSim(),
		Brightness: 50,
		Clock:      clock.NewMock(epoch),
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, uint8(50), c.Eng.Brightness())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, c.Eng.Running, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return c.Status()["state"] == StateButtonPressed.String()
	}, time.Second, time.Millisecond)
	assert.Equal(t, "NONE", c.Status()["pressed"])
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop")
	}

	strip.mu.Lock()
	defer strip.mu.Unlock()
	assert.Equal(t, model.PixelStrip{}, strip.shown)
	assert.False(t, c.Eng.Snapshot().Ambient)
}

func TestCoreRunFailsOnTouchInit(t *testing.T) {
	sensor := touch.NewSim()
	sensor.InitErr = assert.AnError
	c, err := InitCore(HWConfig{Strip: nullStrip{}, Sensor: sensor, Clock: clock.NewMock(epoch)}, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, c.Run(context.Background()))
	assert.False(t, c.Eng.Running())

	sensor.InitErr = nil
	assert.ErrorIs(t, c.Run(context.Background()), ErrCoreStopped, "a failed init is not retried")
}
