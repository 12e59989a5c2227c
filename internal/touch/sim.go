package touch

import (
	"sync"
	"time"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// FullScale is the reading reported for a fully pressed channel by the
// simulated and digital sensors.
const FullScale uint32 = 0xFFFFFF

// PressHold is how long a momentary software press reads as held.
const PressHold = 300 * time.Millisecond

// Sim is an in-memory sensor. Values and failures are set by the caller.
type Sim struct {
	mu      sync.Mutex
	clk     clock.Clock
	values  [model.ButtonCount]uint32
	until   [model.ButtonCount]time.Time
	errs    [model.ButtonCount]error
	InitErr error
}

// NewSim returns a sensor with every channel idle.
func NewSim() *Sim { return NewSimClock(nil) }

// NewSimClock times momentary presses on clk. A nil clk uses wall time.
func NewSimClock(clk clock.Clock) *Sim {
	if clk == nil {
		clk = clock.New()
	}
	return &Sim{clk: clk}
}

func (s *Sim) Init() error { return s.InitErr }

// Set stores the reading for ch.
func (s *Sim) Set(ch int, v uint32) {
	if checkChannel(ch) != nil {
		return
	}
	s.mu.Lock()
	s.values[ch] = v
	s.until[ch] = time.Time{}
	s.mu.Unlock()
}

// Press holds b at full scale until released.
func (s *Sim) Press(b model.Button) { s.Set(int(b), FullScale) }

// PressFor holds b at full scale for d, then releases it.
func (s *Sim) PressFor(b model.Button, d time.Duration) {
	if checkChannel(int(b)) != nil {
		return
	}
	s.mu.Lock()
	s.values[b] = FullScale
	s.until[b] = s.clk.Now().Add(d)
	s.mu.Unlock()
}

// Tap is a momentary press of PressHold.
func (s *Sim) Tap(b model.Button) { s.PressFor(b, PressHold) }

// Release sets b back to idle.
func (s *Sim) Release(b model.Button) { s.Set(int(b), 0) }

// ReleaseAll sets every channel idle.
func (s *Sim) ReleaseAll() {
	for _, b := range model.Buttons {
		s.Release(b)
	}
}

// Fail makes reads of ch return err. A nil err clears it.
func (s *Sim) Fail(ch int, err error) {
	if checkChannel(ch) != nil {
		return
	}
	s.mu.Lock()
	s.errs[ch] = err
	s.mu.Unlock()
}

func (s *Sim) ReadSmoothed(ch int) (uint32, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs[ch] != nil {
		return 0, s.errs[ch]
	}
	if !s.until[ch].IsZero() && !s.clk.Now().Before(s.until[ch]) {
		s.values[ch] = 0
		s.until[ch] = time.Time{}
	}
	return s.values[ch], nil
}

func (s *Sim) ReadRaw(ch int) (uint32, error) {
	return s.ReadSmoothed(ch)
}
