// Package sim renders the strip in a terminal and turns key presses into
// touches, so the device can be run without hardware.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// ErrQuit is returned by Run when the user asks to leave.
var ErrQuit = errors.New("sim: quit")

// DefaultHold is how long a key press reads as a held button.
const DefaultHold = touch.PressHold

const (
	cellWidth = 2
	glyphRow  = 1
	buttonRow = 3
	statusRow = 5
	helpRow   = 6
)

var keyButtons = map[rune]model.Button{
	'1': model.ButtonSlap, 's': model.ButtonSlap,
	'2': model.ButtonCap, 'c': model.ButtonCap,
	'3': model.ButtonSup, 'u': model.ButtonSup,
	'4': model.ButtonPeace, 'p': model.ButtonPeace,
}

// Terminal is both a strip and a touch sensor. Pixels are drawn as colored
// cells on Refresh; keys 1-4 (or s, c, u, p) press a button for Hold.
type Terminal struct {
	Hold time.Duration
	// Status, if set, is drawn under the buttons on every refresh.
	Status func() string

	screen tcell.Screen
	clk    clock.Clock
	log    zerolog.Logger

	mu      sync.Mutex
	pix     model.PixelStrip
	pressed [model.ButtonCount]time.Time
}

// NewTerminal draws on screen, which must already be initialized.
func NewTerminal(screen tcell.Screen, clk clock.Clock, logger zerolog.Logger) *Terminal {
	if clk == nil {
		clk = clock.New()
	}
	return &Terminal{
		Hold:   DefaultHold,
		screen: screen,
		clk:    clk,
		log:    logger.With().Str("component", "sim").Logger(),
	}
}

// Open creates and initializes a terminal screen.
func Open(clk clock.Clock, logger zerolog.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "create screen")
	}
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "init screen")
	}
	screen.HideCursor()
	return NewTerminal(screen, clk, logger), nil
}

func (t *Terminal) SetPixel(i int, r, g, b uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pix.Set(i, model.NewRGB(r, g, b)) {
		return errors.Errorf("sim: pixel %d out of range", i)
	}
	return nil
}

// Refresh redraws the whole strip.
func (t *Terminal) Refresh() error {
	t.mu.Lock()
	pix := t.pix
	t.mu.Unlock()

	t.screen.Clear()
	for i := 0; i < model.GlyphCount; i++ {
		c, _ := model.IndexToChar(i)
		t.drawCell(i*cellWidth, glyphRow, c, pix[i])
	}
	x := 0
	for _, b := range model.Buttons {
		name := b.String()
		for j, c := range name {
			t.drawCell(x+j, buttonRow, c, pix[b.Index()])
		}
		x += len(name) + 2
	}
	if t.Status != nil {
		t.drawText(0, statusRow, t.Status())
	}
	t.drawText(0, helpRow, "1-4 or s/c/u/p press a button, q quits")
	t.screen.Show()
	return nil
}

func (t *Terminal) drawCell(x, y int, c rune, color model.RGB) {
	r, g, b := color.Channels()
	fg := tcell.ColorGray
	if color != model.Off {
		fg = tcell.ColorBlack
	}
	style := tcell.StyleDefault.
		Background(tcell.NewRGBColor(int32(r), int32(g), int32(b))).
		Foreground(fg)
	t.screen.SetContent(x, y, c, nil, style)
}

func (t *Terminal) drawText(x, y int, s string) {
	for i, c := range s {
		t.screen.SetContent(x+i, y, c, nil, tcell.StyleDefault)
	}
}

// Pixel returns the last value set at i.
func (t *Terminal) Pixel(i int) model.RGB {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !model.ValidIndex(i) {
		return model.Off
	}
	return t.pix[i]
}

func (t *Terminal) Init() error { return nil }

// Press holds b for Hold from now.
func (t *Terminal) Press(b model.Button) {
	if !b.Valid() {
		return
	}
	t.mu.Lock()
	t.pressed[b] = t.clk.Now()
	t.mu.Unlock()
	t.log.Debug().Stringer("button", b).Msg("key press")
}

func (t *Terminal) ReadSmoothed(ch int) (uint32, error) {
	if !model.Button(ch).Valid() {
		return 0, touch.ErrInvalidChannel
	}
	t.mu.Lock()
	at := t.pressed[ch]
	t.mu.Unlock()
	if at.IsZero() || t.clk.Now().Sub(at) >= t.Hold {
		return 0, nil
	}
	return touch.FullScale, nil
}

func (t *Terminal) ReadRaw(ch int) (uint32, error) {
	return t.ReadSmoothed(ch)
}

// Run handles keyboard events until ctx ends or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if quitKey(ev) {
					return ErrQuit
				}
				if ev.Key() != tcell.KeyRune {
					continue
				}
				if b, ok := keyButtons[ev.Rune()]; ok {
					t.Press(b)
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		}
	}
}

func quitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}

func (t *Terminal) String() string {
	return fmt.Sprintf("terminal(hold=%s)", t.Hold)
}
