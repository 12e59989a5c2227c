package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 33*time.Millisecond, c.FramePeriod())
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glyphstrip.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
brightness: 90
loop_delay: 20ms
strip:
  driver: serial
  serial:
    device: /dev/ttyACM0
touch:
  driver: mpr121
  threshold: 8
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, uint8(90), c.Brightness)
	assert.Equal(t, 20*time.Millisecond, c.LoopDelay)
	assert.Equal(t, 30, c.FPS)
	assert.Equal(t, 115200, c.Strip.Serial.Baud)
	assert.Equal(t, uint16(0x5A), c.Touch.I2CAddr)
	assert.Equal(t, uint32(8), c.Touch.Threshold)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	c := Default()
	c.Touch.Driver = TouchGPIO
	c.Touch.Pins = Pins{Slap: "GPIO5", Cap: "GPIO6", Sup: "GPIO13", Peace: "GPIO19"}
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"fps":            func(c *Config) { c.FPS = 0 },
		"mode":           func(c *Config) { c.Mode = "party" },
		"strip driver":   func(c *Config) { c.Strip.Driver = "pwm" },
		"serial device":  func(c *Config) { c.Strip.Driver = StripSerial },
		"touch driver":   func(c *Config) { c.Touch.Driver = "ir" },
		"gpio pins":      func(c *Config) { c.Touch.Driver = TouchGPIO },
		"terminal touch": func(c *Config) { c.Touch.Driver = TouchTerminal },
		"loop delay":     func(c *Config) { c.LoopDelay = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateClampsBrightness(t *testing.T) {
	c := Default()
	c.Brightness = 200
	require.NoError(t, c.Validate())
	assert.Equal(t, uint8(128), c.Brightness)

	c.Brightness = 0
	require.NoError(t, c.Validate())
	assert.Zero(t, c.Brightness)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}
