package render

import "math"

// Keyframe is a value at time T. Segments between keyframes are linear.
type Keyframe struct {
	T float64
	V float64
}

// Envelope is a list of keyframes sorted by T.
type Envelope struct {
	Keys []Keyframe
}

// Triangle rises linearly from 0 to 1 over the first half of [0,1] and falls
// back to 0 over the second half.
var Triangle = Envelope{Keys: []Keyframe{{T: 0, V: 0}, {T: 0.5, V: 1}, {T: 1, V: 0}}}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Eval returns the envelope value at t. Outside the keys it holds the first
// or last value.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	if n == 0 {
		return 0
	}
	if n == 1 || t <= e.Keys[0].T {
		return e.Keys[0].V
	}
	if t >= e.Keys[n-1].T {
		return e.Keys[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e.Keys[i], e.Keys[i+1]
		if t >= a.T && t <= b.T {
			den := b.T - a.T
			if den <= 0 {
				return b.V
			}
			u := clamp01((t - a.T) / den)
			return a.V + (b.V-a.V)*u
		}
	}
	return e.Keys[n-1].V
}

// wave maps sin(pos) from [-1,1] onto [0,1].
func wave(pos float64) float64 {
	return (math.Sin(pos) + 1) / 2
}
