package render

import (
	"time"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// Wave parameters for the animated layers. Positions are in radians.
const (
	ambientRate   = 0.1
	ambientSpread = 0.3
	ambientPeak   = 20

	shimmerRate   = 0.15
	shimmerSpread = 0.5
	shimmerPeak   = 80

	pulseRate   = 0.05
	pulseSpread = 0.2
	pulsePeak   = 80
)

// composite paints the layers bottom to top: clear, ambient, shimmer,
// highlight, pulse, overlay. Later layers overwrite earlier ones per pixel.
func composite(frame *model.PixelStrip, in *frameInput, now time.Time) {
	frame.Clear()
	st := &in.state

	if st.Ambient {
		for i := 0; i < model.GlyphCount; i++ {
			v := wave(float64(in.ambient)*ambientRate + float64(i)*ambientSpread)
			frame[i] = model.Gray(uint8(v * ambientPeak))
		}
	}

	if st.ButtonShimmer {
		for i, b := range model.Buttons {
			v := wave(float64(in.shimmer)*shimmerRate + float64(i)*shimmerSpread)
			frame[b.Index()] = model.Gray(uint8(v * shimmerPeak))
		}
	}

	for _, b := range model.Buttons {
		if st.Highlighted[b] && !st.Pulsing[b] {
			frame[b.Index()] = model.ApplyBrightness(b.Color(), in.brightness)
		}
	}

	for i, b := range model.Buttons {
		if st.Pulsing[b] {
			v := wave(float64(in.pulse)*pulseRate + float64(i)*pulseSpread)
			frame[b.Index()] = model.Gray(uint8(v * pulsePeak))
		}
	}

	if o := st.Overlay; o != nil {
		paintOverlay(frame, o, in.brightness, now)
	}
}

// paintOverlay lights the glyph of the active overlay character with a
// triangular fade over its slot. Whitespace and punctuation light nothing.
func paintOverlay(frame *model.PixelStrip, o *TextOverlay, brightness uint8, now time.Time) {
	slot, ok := o.Slot(now)
	if !ok {
		return
	}
	c := rune(o.Text[slot])
	if model.IsSkippable(c) {
		return
	}
	idx := model.CharToIndex(c)
	if idx == model.InvalidIndex {
		return
	}
	into := o.elapsed(now) % CharDuration
	progress := float64(into) / float64(CharDuration)
	intensity := Triangle.Eval(progress)
	frame[idx] = model.ApplyBrightness(o.Color, brightness).Scale(intensity)
}
