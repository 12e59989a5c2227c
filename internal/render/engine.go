package render

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// Engine owns the strip. The frame loop composites EffectState into a frame
// every Period; the direct-drive calls in direct.go write the strip straight
// through. Both paths serialize on stripMu.
type Engine struct {
	Period time.Duration

	log zerolog.Logger
	clk clock.Clock

	stripMu sync.Mutex
	strip   Strip
	shown   model.PixelStrip

	mu           sync.Mutex
	state        EffectState
	brightness   uint8
	ambientCycle int
	shimmerCycle int
	pulseCycle   int
	frames       uint64

	running atomic.Bool
}

// NewEngine returns an engine writing to strip. A nil clk uses wall time.
// A nil strip is allowed; every strip operation then fails with
// ErrInvalidState.
func NewEngine(strip Strip, clk clock.Clock, logger zerolog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		Period:     FramePeriod,
		log:        logger.With().Str("component", "render").Logger(),
		clk:        clk,
		strip:      strip,
		brightness: model.DFLT_BRIGHTNESS,
	}
}

// Clock returns the engine's time source.
func (e *Engine) Clock() clock.Clock { return e.clk }

// SetBrightness stores b, clamped to MAX_BRIGHTNESS.
func (e *Engine) SetBrightness(b uint8) {
	if b > model.MAX_BRIGHTNESS {
		b = model.MAX_BRIGHTNESS
	}
	e.mu.Lock()
	e.brightness = b
	e.mu.Unlock()
	e.log.Info().Uint8("brightness", b).Msg("brightness set")
}

// Brightness returns the current global brightness.
func (e *Engine) Brightness() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brightness
}

// SetAmbient toggles the low white wave across the glyph pixels.
func (e *Engine) SetAmbient(on bool) {
	e.mu.Lock()
	e.state.Ambient = on
	e.mu.Unlock()
	e.log.Info().Bool("on", on).Msg("ambient")
}

// SetButtonShimmer toggles the white wave over the button pixels.
func (e *Engine) SetButtonShimmer(on bool) {
	e.mu.Lock()
	e.state.ButtonShimmer = on
	e.mu.Unlock()
	e.log.Info().Bool("on", on).Msg("button shimmer")
}

// SetButtonHighlight shows button b in its own color when on.
func (e *Engine) SetButtonHighlight(b model.Button, on bool) error {
	if !b.Valid() {
		return ErrInvalidArgument
	}
	e.mu.Lock()
	e.state.Highlighted[b] = on
	e.mu.Unlock()
	e.log.Info().Stringer("button", b).Bool("on", on).Msg("highlight")
	return nil
}

// SetButtonPulse makes button b pulse white when on. Pulse wins over
// highlight for the same button.
func (e *Engine) SetButtonPulse(b model.Button, on bool) error {
	if !b.Valid() {
		return ErrInvalidArgument
	}
	e.mu.Lock()
	e.state.Pulsing[b] = on
	e.mu.Unlock()
	e.log.Info().Stringer("button", b).Bool("on", on).Msg("pulse")
	return nil
}

// SetTextOverlay replaces any active overlay. Text longer than
// MaxOverlayLen bytes is truncated. The overlay lasts one CharDuration per
// byte of the stored text.
func (e *Engine) SetTextOverlay(text string, c model.RGB) error {
	if text == "" {
		return ErrInvalidArgument
	}
	if len(text) > MaxOverlayLen {
		text = text[:MaxOverlayLen]
	}
	o := &TextOverlay{
		Text:     text,
		Color:    c,
		Start:    e.clk.Now(),
		Duration: time.Duration(len(text)) * CharDuration,
	}
	e.mu.Lock()
	e.state.Overlay = o
	e.mu.Unlock()
	e.log.Info().Str("text", text).Dur("duration", o.Duration).Msg("text overlay")
	return nil
}

// ClearTextOverlay drops the overlay, if any.
func (e *Engine) ClearTextOverlay() {
	e.mu.Lock()
	e.state.Overlay = nil
	e.mu.Unlock()
}

// Snapshot returns a copy of the effect state. The overlay pointer is
// shared; overlays are immutable.
func (e *Engine) Snapshot() EffectState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Frames is the number of frames composited so far.
func (e *Engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Shown returns the last values written to the strip.
func (e *Engine) Shown() model.PixelStrip {
	e.stripMu.Lock()
	defer e.stripMu.Unlock()
	return e.shown
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

type frameInput struct {
	state      EffectState
	brightness uint8
	ambient    int
	shimmer    int
	pulse      int
}

// RenderFrame composites one frame from the current state and writes it to
// the strip.
func (e *Engine) RenderFrame() error {
	if e.strip == nil {
		return ErrInvalidState
	}
	now := e.clk.Now()

	e.mu.Lock()
	// ambient and shimmer only move while shown; pulse moves every frame
	if e.state.Ambient {
		e.ambientCycle++
	}
	if e.state.ButtonShimmer {
		e.shimmerCycle++
	}
	e.pulseCycle++
	e.frames++
	in := frameInput{
		state:      e.state,
		brightness: e.brightness,
		ambient:    e.ambientCycle,
		shimmer:    e.shimmerCycle,
		pulse:      e.pulseCycle,
	}
	e.mu.Unlock()

	if o := in.state.Overlay; o != nil && o.Expired(now) {
		e.expireOverlay(o)
		in.state.Overlay = nil
	}

	var frame model.PixelStrip
	composite(&frame, &in, now)

	e.stripMu.Lock()
	defer e.stripMu.Unlock()
	return e.flush(&frame)
}

// expireOverlay clears o unless it has already been replaced.
func (e *Engine) expireOverlay(o *TextOverlay) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Overlay == o {
		e.state.Overlay = nil
		e.log.Debug().Str("text", o.Text).Msg("text overlay done")
	}
}

// flush writes frame and refreshes. Callers hold stripMu.
func (e *Engine) flush(frame *model.PixelStrip) error {
	for i, c := range frame {
		r, g, b := c.Channels()
		if err := e.strip.SetPixel(i, r, g, b); err != nil {
			return err
		}
	}
	if err := e.strip.Refresh(); err != nil {
		return err
	}
	e.shown = *frame
	return nil
}

// Run composites frames until ctx is done. It returns ErrAlreadyRunning if
// another Run is active. Write failures are logged and the loop keeps going.
func (e *Engine) Run(ctx context.Context) error {
	if e.strip == nil {
		return ErrInvalidState
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	period := e.Period
	if period <= 0 {
		period = FramePeriod
	}
	e.log.Info().Dur("period", period).Msg("frame loop started")
	defer e.log.Info().Msg("frame loop stopped")

	for {
		if err := e.RenderFrame(); err != nil {
			e.log.Warn().Err(err).Msg("frame write failed")
		}
		if err := e.clk.Sleep(ctx, period); err != nil {
			return nil
		}
	}
}
