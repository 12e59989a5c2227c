package render

import (
	"context"
	"time"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

const (
	fadeStep      = 5
	fadeSlices    = 100
	settleDelay   = 100 * time.Millisecond
	charFade      = 1000 * time.Millisecond
	sweepClear    = 200 * time.Millisecond
	sweepInterval = 50 * time.Millisecond
	sweepHold     = 1000 * time.Millisecond
)

// write applies fn to a copy of the shown frame and commits it.
func (e *Engine) write(fn func(f *model.PixelStrip)) error {
	if e.strip == nil {
		return ErrInvalidState
	}
	e.stripMu.Lock()
	defer e.stripMu.Unlock()
	frame := e.shown
	fn(&frame)
	return e.flush(&frame)
}

// ClearAll turns every pixel off.
func (e *Engine) ClearAll() error {
	return e.write(func(f *model.PixelStrip) { f.Clear() })
}

// SetColor fills the strip with c at the current brightness.
func (e *Engine) SetColor(c model.RGB) error {
	c = model.ApplyBrightness(c, e.Brightness())
	return e.write(func(f *model.PixelStrip) { f.Fill(c) })
}

// ShowPixel sets pixel i to c at the current brightness. Other pixels keep
// their last value.
func (e *Engine) ShowPixel(i int, c model.RGB) error {
	if !model.ValidIndex(i) {
		return ErrInvalidArgument
	}
	c = model.ApplyBrightness(c, e.Brightness())
	return e.write(func(f *model.PixelStrip) { f.Set(i, c) })
}

func (e *Engine) setRaw(i int, c model.RGB) error {
	return e.write(func(f *model.PixelStrip) { f.Set(i, c) })
}

// FadeInOut ramps pixel i from off up to c and back down in steps of 5 out
// of 255, pausing d/100 between steps.
func (e *Engine) FadeInOut(ctx context.Context, i int, c model.RGB, d time.Duration) error {
	if !model.ValidIndex(i) {
		return ErrInvalidArgument
	}
	if e.strip == nil {
		return ErrInvalidState
	}
	base := model.ApplyBrightness(c, e.Brightness())
	step := d / fadeSlices

	level := func(b int) error {
		scaled := model.NewRGB(
			uint8(int(base.R())*b/255),
			uint8(int(base.G())*b/255),
			uint8(int(base.B())*b/255),
		)
		if err := e.setRaw(i, scaled); err != nil {
			return err
		}
		return e.clk.Sleep(ctx, step)
	}

	for b := 0; b <= 255; b += fadeStep {
		if err := level(b); err != nil {
			return err
		}
	}
	for b := 255; b >= 0; b -= fadeStep {
		if err := level(b); err != nil {
			return err
		}
	}
	return nil
}

// ShowCharacter clears the strip and fades the glyph for c in white.
func (e *Engine) ShowCharacter(ctx context.Context, c rune) error {
	idx := model.CharToIndex(c)
	if idx == model.InvalidIndex {
		return ErrInvalidArgument
	}
	return e.flash(ctx, idx, model.White, charFade)
}

// ShowWord clears the strip and fades the keyword's pixel in cyan.
func (e *Engine) ShowWord(ctx context.Context, word string) error {
	idx := model.WordToIndex(word)
	if idx == model.InvalidIndex {
		return ErrInvalidArgument
	}
	return e.flash(ctx, idx, model.Cyan, charFade)
}

func (e *Engine) flash(ctx context.Context, idx int, c model.RGB, d time.Duration) error {
	if err := e.ClearAll(); err != nil {
		return err
	}
	if err := e.clk.Sleep(ctx, settleDelay); err != nil {
		return err
	}
	return e.FadeInOut(ctx, idx, c, d)
}

// ShowTextSequence fades each displayable character of text in turn, one
// second apiece, and clears the strip at the end. Whitespace, punctuation
// and control characters are skipped.
func (e *Engine) ShowTextSequence(ctx context.Context, text string, c model.RGB) error {
	return e.AnimateText(ctx, text, c, charFade)
}

// AnimateText is ShowTextSequence with a caller chosen time per character.
// A non-positive perChar uses one second.
func (e *Engine) AnimateText(ctx context.Context, text string, c model.RGB, perChar time.Duration) error {
	if e.strip == nil {
		return ErrInvalidState
	}
	if perChar <= 0 {
		perChar = charFade
	}
	for _, r := range text {
		if r < ' ' || r > '~' || model.IsSkippable(r) {
			continue
		}
		idx := model.CharToIndex(r)
		if idx == model.InvalidIndex {
			e.log.Debug().Str("char", string(r)).Msg("no glyph")
			continue
		}
		if err := e.flash(ctx, idx, c, perChar); err != nil {
			return err
		}
	}
	return e.ClearAll()
}

// LoadingSweep runs the boot animation: a rainbow filling the glyph pixels
// one by one, a hold, then a clear.
func (e *Engine) LoadingSweep(ctx context.Context) error {
	if err := e.ClearAll(); err != nil {
		return err
	}
	if err := e.clk.Sleep(ctx, sweepClear); err != nil {
		return err
	}
	var s Sweep
	for {
		more, err := s.Step(e)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if err := e.clk.Sleep(ctx, sweepInterval); err != nil {
			return err
		}
	}
	if err := e.clk.Sleep(ctx, sweepHold); err != nil {
		return err
	}
	if err := e.ClearAll(); err != nil {
		return err
	}
	return e.clk.Sleep(ctx, sweepClear)
}

// HighlightButtons clears the strip and shows every button in its color.
func (e *Engine) HighlightButtons(ctx context.Context) error {
	if err := e.ClearAll(); err != nil {
		return err
	}
	if err := e.clk.Sleep(ctx, sweepClear); err != nil {
		return err
	}
	for _, b := range model.Buttons {
		if err := e.ShowPixel(b.Index(), b.Color()); err != nil {
			return err
		}
	}
	return nil
}
