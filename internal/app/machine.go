// Package app drives the device through its states: boot sweep, idle
// shimmer, waiting for a press, and showing a message.
package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

const (
	// LoopDelay separates loop iterations regardless of state.
	LoopDelay = 50 * time.Millisecond
	// MonitorEvery is the number of iterations between touch monitor dumps.
	MonitorEvery = 100

	loadingSettle = 200 * time.Millisecond
	loadingStep   = 50 * time.Millisecond
	sweepHold     = 1000 * time.Millisecond
	pulseLead     = 500 * time.Millisecond
	messageColor  = model.White
)

// Display is what the machine needs from the render engine.
type Display interface {
	render.PixelWriter
	ClearAll() error
	SetAmbient(on bool)
	SetButtonShimmer(on bool)
	SetButtonHighlight(b model.Button, on bool) error
	SetButtonPulse(b model.Button, on bool) error
	SetTextOverlay(text string, c model.RGB) error
}

// Touch is what the machine needs from the touch input.
type Touch interface {
	Init() error
	PressedButton() model.Button
	Monitor() []touch.Reading
}

// Hooks lets the owner react to machine events. All are optional. They run
// with the machine locked and must not call back into it.
type Hooks struct {
	// StartRender is called the first time the machine enters BUTTON_SHIMMER.
	StartRender func()
	// OnTransition is called after every state change.
	OnTransition func(from, to State)
	// OnMessage is called when a message is chosen.
	OnMessage func(b model.Button, msg string)
}

// step is the outcome of one sub-step of a state script.
type step struct {
	wait  time.Duration // suspend before continuing
	stay  bool          // rerun the same sub-step after wait
	event Event         // ends the script and fires a transition
	idle  bool          // ends the iteration without a transition
}

type subStep func(now time.Time) (step, error)

// Machine is a cooperative state machine. Each Step runs until the current
// state's script suspends or the loop iteration ends.
type Machine struct {
	LoopDelay    time.Duration
	MonitorEvery int

	display Display
	touch   Touch
	clk     clock.Clock
	hooks   Hooks
	log     zerolog.Logger
	rnd     *rand.Rand

	mu       sync.Mutex
	state    State
	sub      int
	resumeAt time.Time
	iter     int
	pressed  model.Button
	message  string
	sweep    render.Sweep
	rendered bool

	scripts map[State][]subStep
}

// NewMachine returns a machine in INIT. A nil clk uses wall time.
func NewMachine(d Display, t Touch, clk clock.Clock, logger zerolog.Logger, h Hooks) *Machine {
	if clk == nil {
		clk = clock.New()
	}
	m := &Machine{
		LoopDelay:    LoopDelay,
		MonitorEvery: MonitorEvery,
		display:      d,
		touch:        t,
		clk:          clk,
		hooks:        h,
		log:          logger.With().Str("component", "app").Logger(),
		rnd:          rand.New(rand.NewSource(clk.Now().UnixNano())),
		state:        StateInit,
		pressed:      model.ButtonNone,
	}
	m.scripts = map[State][]subStep{
		StateInit:            {m.initTouch},
		StateLoading:         {m.loadingClear, m.loadingSweep, m.loadingHold, m.loadingClear, m.loadingDone},
		StateButtonShimmer:   {m.startShimmer},
		StateButtonPressed:   {m.pollPress},
		StateShowingMessage:  {m.startPulse, m.showMessage, m.finishMessage},
		StateReturnToButtons: {m.resetButtons},
	}
	return m
}

// SetRand replaces the message picker's random source.
func (m *Machine) SetRand(r *rand.Rand) {
	m.mu.Lock()
	m.rnd = r
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pressed returns the last pressed button, or ButtonNone.
func (m *Machine) Pressed() model.Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pressed
}

// Message returns the last chosen message.
func (m *Machine) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

// Iterations returns the number of completed loop iterations.
func (m *Machine) Iterations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.iter
}

// Step advances the machine at now. It returns how long to wait before the
// next call. Calling early is harmless; the remaining wait is returned.
// The only error is a failed touch init, which is fatal.
func (m *Machine) Step(now time.Time) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Before(m.resumeAt) {
		return m.resumeAt.Sub(now), nil
	}
	for {
		script, ok := m.scripts[m.state]
		if !ok || m.sub >= len(script) {
			m.log.Error().Int("state", int(m.state)).Msg("unknown state, restarting at LOADING")
			m.enter(StateLoading)
			continue
		}
		st, err := script[m.sub](now)
		if err != nil {
			return 0, err
		}
		if st.event != EventNone {
			m.fire(st.event)
			return m.endIteration(now), nil
		}
		if st.idle {
			return m.endIteration(now), nil
		}
		if !st.stay {
			m.sub++
		}
		if st.wait > 0 {
			m.resumeAt = now.Add(st.wait)
			return st.wait, nil
		}
	}
}

// Run steps the machine until ctx is done or Step fails.
func (m *Machine) Run(ctx context.Context) error {
	m.log.Info().Msg("starting application flow")
	for {
		wait, err := m.Step(m.clk.Now())
		if err != nil {
			return err
		}
		if err := m.clk.Sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

func (m *Machine) fire(e Event) {
	next, ok := Transition(m.state, e)
	if !ok {
		m.log.Error().Stringer("state", m.state).Stringer("event", e).Msg("no transition")
		return
	}
	from := m.state
	m.enter(next)
	m.log.Info().Stringer("from", from).Stringer("to", next).Msg("state")
	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(from, next)
	}
}

func (m *Machine) enter(s State) {
	m.state = s
	m.sub = 0
}

func (m *Machine) endIteration(now time.Time) time.Duration {
	m.iter++
	if m.MonitorEvery > 0 && m.iter%m.MonitorEvery == 0 {
		m.touch.Monitor()
	}
	m.resumeAt = now.Add(m.LoopDelay)
	return m.LoopDelay
}

func (m *Machine) warn(err error, what string) {
	if err != nil {
		m.log.Warn().Err(err).Msg(what)
	}
}

func (m *Machine) initTouch(time.Time) (step, error) {
	if err := m.touch.Init(); err != nil {
		m.log.Error().Err(err).Msg("touch init failed")
		return step{}, errors.Wrap(err, "app init")
	}
	m.touch.Monitor()
	return step{event: EventInitOK}, nil
}

func (m *Machine) loadingClear(time.Time) (step, error) {
	m.warn(m.display.ClearAll(), "clear")
	m.sweep.Reset()
	return step{wait: loadingSettle}, nil
}

func (m *Machine) loadingSweep(time.Time) (step, error) {
	more, err := m.sweep.Step(m.display)
	m.warn(err, "sweep")
	if !more {
		return step{}, nil
	}
	return step{wait: loadingStep, stay: true}, nil
}

func (m *Machine) loadingHold(time.Time) (step, error) {
	return step{wait: sweepHold}, nil
}

func (m *Machine) loadingDone(time.Time) (step, error) {
	return step{event: EventLoaded}, nil
}

func (m *Machine) startShimmer(time.Time) (step, error) {
	if !m.rendered {
		m.rendered = true
		if m.hooks.StartRender != nil {
			m.hooks.StartRender()
		}
	}
	m.display.SetAmbient(true)
	m.display.SetButtonShimmer(true)
	return step{event: EventShimmerStarted}, nil
}

func (m *Machine) pollPress(time.Time) (step, error) {
	b := m.touch.PressedButton()
	if b == model.ButtonNone {
		return step{idle: true}, nil
	}
	m.pressed = b
	m.log.Info().Stringer("button", b).Msg("button pressed")
	return step{event: EventPressed}, nil
}

func (m *Machine) startPulse(time.Time) (step, error) {
	m.display.SetAmbient(false)
	m.display.SetButtonShimmer(false)
	m.warn(m.display.SetButtonPulse(m.pressed, true), "pulse")
	return step{wait: pulseLead}, nil
}

func (m *Machine) showMessage(time.Time) (step, error) {
	msg := pickMessage(m.rnd, m.pressed)
	m.message = msg
	m.log.Info().Stringer("button", m.pressed).Str("message", msg).Msg("showing message")
	if m.hooks.OnMessage != nil {
		m.hooks.OnMessage(m.pressed, msg)
	}
	if err := m.display.SetTextOverlay(msg, messageColor); err != nil {
		m.warn(err, "text overlay")
		return step{}, nil
	}
	return step{wait: time.Duration(len(msg)) * render.CharDuration}, nil
}

func (m *Machine) finishMessage(time.Time) (step, error) {
	if b := m.touch.PressedButton(); b != model.ButtonNone {
		m.log.Debug().Stringer("button", b).Msg("pressed during message")
	}
	return step{event: EventMessageDone}, nil
}

func (m *Machine) resetButtons(time.Time) (step, error) {
	for _, b := range model.Buttons {
		m.warn(m.display.SetButtonHighlight(b, false), "highlight")
		m.warn(m.display.SetButtonPulse(b, false), "pulse")
	}
	m.display.SetAmbient(true)
	m.display.SetButtonShimmer(true)
	return step{event: EventReturned}, nil
}
