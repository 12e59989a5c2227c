package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/internal/touch"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// ErrCoreStopped is returned by Run on a core that has already run. The
// machine's render start is one-shot and touch init failures are final.
var ErrCoreStopped = errors.New("core already ran")

// Core is the engine, touch input and state machine wired together.
type Core struct {
	Eng     *render.Engine
	Touch   *touch.Input
	Machine *Machine

	log   zerolog.Logger
	group *errgroup.Group
	gctx  context.Context

	// mirrored from hooks so Status never takes the machine lock
	ran     atomic.Bool
	state   atomic.Int32
	pressed atomic.Int32
	message atomic.Value
}

// HWConfig selects the hardware behind the core. Zero durations and clock
// pick defaults; Brightness is applied as given, so zero is dark.
type HWConfig struct {
	Strip       render.Strip
	Sensor      touch.Sensor
	Threshold   uint32
	Brightness  uint8
	FramePeriod time.Duration
	LoopDelay   time.Duration
	Clock       clock.Clock
}

// InitCore builds the core. Nothing runs until Run.
func InitCore(hw HWConfig, logger zerolog.Logger) (*Core, error) {
	if hw.Strip == nil {
		return nil, errors.New("no strip configured")
	}
	if hw.Sensor == nil {
		return nil, errors.New("no touch sensor configured")
	}
	clk := hw.Clock
	if clk == nil {
		clk = clock.New()
	}

	eng := render.NewEngine(hw.Strip, clk, logger)
	if hw.FramePeriod > 0 {
		eng.Period = hw.FramePeriod
	}
	eng.SetBrightness(hw.Brightness)

	c := &Core{
		Eng:   eng,
		Touch: touch.NewInput(hw.Sensor, hw.Threshold, logger),
		log:   logger.With().Str("component", "core").Logger(),
	}
	c.pressed.Store(int32(model.ButtonNone))
	c.message.Store("")
	c.Machine = NewMachine(eng, c.Touch, clk, logger, Hooks{
		StartRender: c.startRender,
		OnTransition: func(_, to State) {
			c.state.Store(int32(to))
		},
		OnMessage: func(b model.Button, msg string) {
			c.pressed.Store(int32(b))
			c.message.Store(msg)
		},
	})
	if hw.LoopDelay > 0 {
		c.Machine.LoopDelay = hw.LoopDelay
	}
	return c, nil
}

// Status summarizes the core for the preview server and the terminal. It is
// safe to call from a strip's Refresh.
func (c *Core) Status() map[string]any {
	return map[string]any{
		"state":      State(c.state.Load()).String(),
		"pressed":    model.Button(c.pressed.Load()).String(),
		"message":    c.message.Load().(string),
		"frames":     c.Eng.Frames(),
		"brightness": c.Eng.Brightness(),
	}
}

func (c *Core) startRender() {
	if c.group == nil {
		return
	}
	c.log.Info().Msg("starting render task")
	c.group.Go(func() error {
		err := c.Eng.Run(c.gctx)
		if errors.Is(err, render.ErrAlreadyRunning) {
			return nil
		}
		return err
	})
}

// Run drives the state machine and, once it asks for it, the render loop.
// It returns when ctx is done or touch init fails. A core runs once.
func (c *Core) Run(ctx context.Context) error {
	if !c.ran.CompareAndSwap(false, true) {
		return ErrCoreStopped
	}
	g, gctx := errgroup.WithContext(ctx)
	c.group, c.gctx = g, gctx
	defer c.Touch.Close()

	g.Go(func() error {
		return c.Machine.Run(gctx)
	})
	err := g.Wait()
	c.shutdown()
	return err
}

// shutdown leaves the strip dark.
func (c *Core) shutdown() {
	c.Eng.SetAmbient(false)
	c.Eng.SetButtonShimmer(false)
	c.Eng.ClearTextOverlay()
	for _, b := range model.Buttons {
		_ = c.Eng.SetButtonHighlight(b, false)
		_ = c.Eng.SetButtonPulse(b, false)
	}
	if err := c.Eng.ClearAll(); err != nil {
		c.log.Warn().Err(err).Msg("clear on shutdown")
	}
}
