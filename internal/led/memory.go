package led

import (
	"sync"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// Memory is a strip that only keeps what it is sent. It backs the simulator
// when no other output is configured, and tests.
type Memory struct {
	staging

	mu      sync.Mutex
	last    model.PixelStrip
	history []model.PixelStrip
	keep    int
	count   int
}

// NewMemory keeps up to keep refreshed frames. Zero keeps only the last.
func NewMemory(keep int) *Memory {
	return &Memory{keep: keep}
}

func (m *Memory) Refresh() error {
	f := m.frame()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	m.last = f
	if m.keep > 0 {
		if len(m.history) == m.keep {
			copy(m.history, m.history[1:])
			m.history = m.history[:m.keep-1]
		}
		m.history = append(m.history, f)
	}
	return nil
}

// Last returns the most recently refreshed frame.
func (m *Memory) Last() model.PixelStrip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// History returns the kept frames, oldest first.
func (m *Memory) History() []model.PixelStrip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PixelStrip(nil), m.history...)
}

// Count is the number of refreshes so far.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
