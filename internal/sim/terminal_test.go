package sim

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

func newTestTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen, *clock.Mock) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 10)
	clk := clock.NewMock(time.Unix(0, 0))
	term := NewTerminal(screen, clk, zerolog.Nop())
	t.Cleanup(func() { _ = term.Close() })
	return term, screen, clk
}

func TestRefreshDrawsGlyphs(t *testing.T) {
	term, screen, _ := newTestTerminal(t)
	require.NoError(t, term.SetPixel(model.CharToIndex('C'), 0, 255, 0))
	require.NoError(t, term.Refresh())

	x := model.CharToIndex('C') * cellWidth
	c, _, style, _ := screen.GetContent(x, glyphRow)
	assert.Equal(t, 'C', c)
	_, bg, _ := style.Decompose()
	r, g, b := bg.RGB()
	assert.Equal(t, []int32{0, 255, 0}, []int32{r, g, b})

	c, _, _, _ = screen.GetContent(0, glyphRow)
	assert.Equal(t, 'A', c)
	assert.Error(t, term.SetPixel(model.StripLength, 1, 1, 1))
}

func TestPressExpiresAfterHold(t *testing.T) {
	term, _, clk := newTestTerminal(t)
	term.Press(model.ButtonCap)

	v, err := term.ReadSmoothed(int(model.ButtonCap))
	require.NoError(t, err)
	assert.Equal(t, touch.FullScale, v)

	v, _ = term.ReadSmoothed(int(model.ButtonSup))
	assert.Zero(t, v)

	clk.Advance(term.Hold)
	v, _ = term.ReadSmoothed(int(model.ButtonCap))
	assert.Zero(t, v)

	_, err = term.ReadRaw(7)
	assert.ErrorIs(t, err, touch.ErrInvalidChannel)
}

func TestRunMapsKeys(t *testing.T) {
	term, screen, _ := newTestTerminal(t)
	in := touch.NewInput(term, 0, zerolog.Nop())

	errc := make(chan error, 1)
	go func() { errc <- term.Run(context.Background()) }()

	screen.InjectKey(tcell.KeyRune, 'u', tcell.ModNone)
	require.Eventually(t, func() bool {
		return in.PressedButton() == model.ButtonSup
	}, time.Second, 5*time.Millisecond)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrQuit)
	case <-time.After(time.Second):
		t.Fatal("Run did not return on q")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	term, _, _ := newTestTerminal(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- term.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return on cancel")
	}
}
