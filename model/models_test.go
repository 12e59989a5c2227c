package model_test

import (
	"strconv"
	"testing"

	. "github.com/coreman2200/funtimes-glyphstrip/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var TestRGBIsExpectedColor = []struct {
	R      uint8
	G      uint8
	B      uint8
	Expect RGB
}{
	{0x11, 0x22, 0x33, 0x112233},
	{0x44, 0x2A, 0x34, 0x442A34},
	{0xFF, 0x00, 0x00, Red},
	{0x00, 0xFF, 0xFF, Cyan},
}

func TestColorsRGB(t *testing.T) {
	for k, v := range TestRGBIsExpectedColor {
		t.Run("Given RGB"+strconv.Itoa(k), func(t *testing.T) {
			col := NewRGB(v.R, v.G, v.B)
			assert.Equal(t, v.Expect, col, "should be same val")
			r, g, b := col.Channels()
			assert.Equal(t, []uint8{v.R, v.G, v.B}, []uint8{r, g, b})
		})
	}
}

func TestApplyBrightnessMonotonic(t *testing.T) {
	colors := []RGB{White, Red, Cyan, NewRGB(200, 100, 7), NewRGB(1, 2, 3)}
	for _, c := range colors {
		prev := ApplyBrightness(c, 0)
		assert.Equal(t, Off, prev)
		for b := 1; b <= 255; b++ {
			cur := ApplyBrightness(c, uint8(b))
			assert.GreaterOrEqual(t, cur.R(), prev.R())
			assert.GreaterOrEqual(t, cur.G(), prev.G())
			assert.GreaterOrEqual(t, cur.B(), prev.B())
			prev = cur
		}
	}
}

func TestApplyBrightnessClamps(t *testing.T) {
	c := NewRGB(250, 128, 3)
	ceiling := ApplyBrightness(c, MAX_BRIGHTNESS)
	assert.Equal(t, c, ceiling, "full brightness keeps the color")
	for _, b := range []uint8{129, 200, 255} {
		assert.Equal(t, ceiling, ApplyBrightness(c, b))
	}
	assert.Equal(t, NewRGB(127, 127, 127), ApplyBrightness(White, 64))
}

func TestHSVRegionBoundaries(t *testing.T) {
	on := func(v uint8) bool { return v >= 250 }
	off := func(v uint8) bool { return v <= 5 }

	expect := []struct {
		h       uint16
		r, g, b bool
	}{
		{0, true, false, false},   // red
		{43, true, true, false},   // yellow
		{86, false, true, false},  // green
		{129, false, true, true},  // cyan
		{172, false, false, true}, // blue
		{215, true, false, true},  // magenta
	}

	for _, e := range expect {
		c := HSVToRGB(e.h, 255, 255)
		for i, want := range []bool{e.r, e.g, e.b} {
			ch := []uint8{c.R(), c.G(), c.B()}[i]
			if want {
				assert.True(t, on(ch), "h=%d channel %d = %d, want on", e.h, i, ch)
			} else {
				assert.True(t, off(ch), "h=%d channel %d = %d, want off", e.h, i, ch)
			}
		}
	}
}

func TestHSVGray(t *testing.T) {
	for _, v := range []uint8{0, 17, 255} {
		assert.Equal(t, Gray(v), HSVToRGB(123, 0, v))
	}
}

func TestCharToIndexBijection(t *testing.T) {
	seen := map[int]rune{}
	for c := 'A'; c <= 'Z'; c++ {
		i := CharToIndex(c)
		require.NotEqual(t, InvalidIndex, i)
		assert.Equal(t, i, CharToIndex(c+('a'-'A')), "case insensitive for %c", c)
		seen[i] = c
	}
	for c := '0'; c <= '9'; c++ {
		seen[CharToIndex(c)] = c
	}
	require.Len(t, seen, GlyphCount)
	for i := 0; i < GlyphCount; i++ {
		c, ok := seen[i]
		require.True(t, ok, "index %d unmapped", i)
		back, ok := IndexToChar(i)
		require.True(t, ok)
		assert.Equal(t, c, back)
	}

	for _, c := range []rune{' ', '!', '\'', '-', '@', 'é', '\n', 0, '\u0131', '\u017f', '\u212a', '\uff21'} {
		assert.Equal(t, InvalidIndex, CharToIndex(c), "%q", c)
	}
}

func TestWordToIndex(t *testing.T) {
	assert.Equal(t, LED_SLAP, WordToIndex("SLAP"))
	assert.Equal(t, LED_SUP, WordToIndex("WasSup"))
	assert.Equal(t, LED_CAP, WordToIndex("I'M OUT"))
	assert.Equal(t, LED_PEACE, WordToIndex("cap"))
	assert.Equal(t, InvalidIndex, WordToIndex("peace"))
	assert.Equal(t, InvalidIndex, WordToIndex(""))
}

func TestButtons(t *testing.T) {
	indices := map[int]bool{}
	for _, b := range Buttons {
		require.True(t, b.Valid())
		i := b.Index()
		assert.True(t, i >= GlyphCount && i < StripLength)
		indices[i] = true
		assert.Equal(t, b, ParseButton(b.String()))
	}
	assert.Len(t, indices, ButtonCount)
	assert.Equal(t, Red, ButtonSlap.Color())
	assert.Equal(t, InvalidIndex, ButtonNone.Index())
	assert.Equal(t, "NONE", ButtonNone.String())
}

func TestStripClearIdempotent(t *testing.T) {
	var s PixelStrip
	s.Fill(Magenta)
	assert.False(t, s.Set(StripLength, White))
	s.Clear()
	once := s
	s.Clear()
	assert.Equal(t, once, s)
	assert.Len(t, s.Serialize(), 3*StripLength)
}

func TestSkippable(t *testing.T) {
	for _, c := range " \t.,!?'$+" {
		assert.True(t, IsSkippable(c), "%q", c)
	}
	for _, c := range "aZ09" {
		assert.False(t, IsSkippable(c), "%q", c)
	}
}
