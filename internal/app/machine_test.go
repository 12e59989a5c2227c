package app

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// nullStrip accepts every write.
type nullStrip struct{}

func (nullStrip) SetPixel(int, uint8, uint8, uint8) error { return nil }
func (nullStrip) Refresh() error                          { return nil }

// countingTouch counts monitor dumps.
type countingTouch struct {
	*touch.Input
	monitors int
}

func (c *countingTouch) Monitor() []touch.Reading {
	c.monitors++
	return c.Input.Monitor()
}

type rig struct {
	m       *Machine
	eng     *render.Engine
	sensor  *touch.Sim
	touch   *countingTouch
	clk     *clock.Mock
	path    []State
	renders int
}

func newRig() *rig {
	clk := clock.NewMock(epoch)
	r := &rig{sensor: touch.NewSimClock(clk), clk: clk}
	r.eng = render.NewEngine(nullStrip{}, r.clk, zerolog.Nop())
	r.touch = &countingTouch{Input: touch.NewInput(r.sensor, 0, zerolog.Nop())}
	r.m = NewMachine(r.eng, r.touch, r.clk, zerolog.Nop(), Hooks{
		StartRender:  func() { r.renders++ },
		OnTransition: func(_, to State) { r.path = append(r.path, to) },
	})
	return r
}

// step runs one Step and advances the mock clock by the returned wait.
func (r *rig) step(t *testing.T) {
	wait, err := r.m.Step(r.clk.Now())
	require.NoError(t, err)
	r.clk.Advance(wait)
}

// until steps until cond holds, failing after max steps.
func (r *rig) until(t *testing.T, max int, cond func() bool) {
	for i := 0; i < max; i++ {
		if cond() {
			return
		}
		r.step(t)
	}
	require.True(t, cond(), "condition not reached in %d steps, state %s", max, r.m.State())
}

func (r *rig) inState(s State) func() bool {
	return func() bool { return r.m.State() == s }
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from State
		on   Event
		to   State
	}{
		{StateInit, EventInitOK, StateLoading},
		{StateLoading, EventLoaded, StateButtonShimmer},
		{StateButtonShimmer, EventShimmerStarted, StateButtonPressed},
		{StateButtonPressed, EventPressed, StateShowingMessage},
		{StateShowingMessage, EventMessageDone, StateReturnToButtons},
		{StateReturnToButtons, EventReturned, StateButtonShimmer},
	}
	for _, c := range cases {
		t.Run(c.from.String()+"/"+c.on.String(), func(t *testing.T) {
			next, ok := Transition(c.from, c.on)
			require.True(t, ok)
			assert.Equal(t, c.to, next)
		})
	}

	next, ok := Transition(StateButtonPressed, EventLoaded)
	assert.False(t, ok)
	assert.Equal(t, StateButtonPressed, next)

	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestBootReachesShimmer(t *testing.T) {
	r := newRig()
	r.until(t, 100, r.inState(StateButtonShimmer))

	// init iteration, settle, 36 sweep steps, hold, settle, loop delay
	want := LoopDelay + 200*time.Millisecond + render.SweepLen*50*time.Millisecond +
		time.Second + 200*time.Millisecond + LoopDelay
	assert.Equal(t, want, r.clk.Now().Sub(epoch))
	assert.Equal(t, []State{StateLoading, StateButtonShimmer}, r.path)

	r.step(t)
	assert.Equal(t, StateButtonPressed, r.m.State())
	assert.Equal(t, 1, r.renders)
	st := r.eng.Snapshot()
	assert.True(t, st.Ambient)
	assert.True(t, st.ButtonShimmer)
}

func TestTapShowsOneMessage(t *testing.T) {
	r := newRig()
	r.until(t, 100, r.inState(StateButtonPressed))
	r.path = nil

	r.sensor.Tap(model.ButtonCap)
	for i := 0; i < 2000; i++ {
		r.step(t)
	}

	shown := 0
	for _, s := range r.path {
		if s == StateShowingMessage {
			shown++
		}
	}
	assert.Equal(t, 1, shown, "path %v", r.path)
	assert.Equal(t, StateButtonPressed, r.m.State())
	assert.Equal(t, model.ButtonCap, r.m.Pressed())
}

func TestSupPressShowsSupMessage(t *testing.T) {
	r := newRig()
	r.until(t, 100, r.inState(StateButtonPressed))
	r.path = nil

	for i := 0; i < 10; i++ {
		r.step(t)
	}
	assert.Equal(t, StateButtonPressed, r.m.State(), "no press, no change")

	r.sensor.Press(model.ButtonSup)
	r.step(t)
	require.Equal(t, StateShowingMessage, r.m.State())
	assert.Equal(t, model.ButtonSup, r.m.Pressed())
	r.sensor.Release(model.ButtonSup)

	r.step(t)
	st := r.eng.Snapshot()
	assert.False(t, st.Ambient)
	assert.False(t, st.ButtonShimmer)
	assert.True(t, st.Pulsing[model.ButtonSup])

	r.until(t, 20, r.inState(StateButtonShimmer))
	assert.Equal(t, []State{StateShowingMessage, StateReturnToButtons, StateButtonShimmer}, r.path)
	assert.Contains(t, Messages(model.ButtonSup), r.m.Message())

	st = r.eng.Snapshot()
	assert.False(t, st.Pulsing[model.ButtonSup])
	assert.True(t, st.Ambient)
	assert.True(t, st.ButtonShimmer)

	r.step(t)
	assert.Equal(t, StateButtonPressed, r.m.State())
	assert.Equal(t, 1, r.renders, "render task started once")
}

func TestMessageWaitMatchesLength(t *testing.T) {
	r := newRig()
	r.m.SetRand(rand.New(rand.NewSource(7)))
	want := pickMessage(rand.New(rand.NewSource(7)), model.ButtonPeace)

	r.until(t, 100, r.inState(StateButtonPressed))
	r.sensor.Press(model.ButtonPeace)
	r.step(t)
	r.sensor.ReleaseAll()

	r.step(t) // pulse, then the 500 ms lead
	start := r.clk.Now()
	r.step(t) // overlay set
	assert.Equal(t, want, r.m.Message())
	o := r.eng.Snapshot().Overlay
	require.NotNil(t, o)
	assert.Equal(t, want, o.Text)
	assert.Equal(t, time.Duration(len(want))*time.Second, r.clk.Now().Sub(start))
}

func TestStepEarlyReturnsRemaining(t *testing.T) {
	r := newRig()
	r.step(t) // INIT
	wait, err := r.m.Step(r.clk.Now())
	require.NoError(t, err)
	require.Equal(t, 200*time.Millisecond, wait)

	wait, err = r.m.Step(r.clk.Now().Add(50 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, wait)
	assert.Equal(t, StateLoading, r.m.State())
}

func TestInitFailureIsFatal(t *testing.T) {
	r := newRig()
	r.sensor.InitErr = errors.New("pads missing")
	_, err := r.m.Step(r.clk.Now())
	require.Error(t, err)
	assert.Equal(t, r.sensor.InitErr, errors.Cause(err))
	assert.Equal(t, StateInit, r.m.State())

	assert.Error(t, r.m.Run(context.Background()))
}

func TestMonitorEveryHundredIterations(t *testing.T) {
	r := newRig()
	r.until(t, 100, r.inState(StateButtonPressed))
	for r.m.Iterations() < 300 {
		r.step(t)
	}
	// one dump at init plus one per hundred iterations
	assert.Equal(t, 1+3, r.touch.monitors)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.m.Run(ctx) }()

	require.Eventually(t, func() bool { return r.m.State() == StateButtonPressed }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestMessageSets(t *testing.T) {
	for _, b := range model.Buttons {
		set := Messages(b)
		require.Len(t, set, MessagesPerButton, b.String())
		for _, msg := range set {
			assert.NotEmpty(t, msg)
			assert.LessOrEqual(t, len(msg), render.MaxOverlayLen, msg)
		}
	}
	assert.Contains(t, Messages(model.ButtonSup), "WASSUP THIS IS BINH")
	assert.Nil(t, Messages(model.ButtonNone))
}
