// Package tokens shows text produced by an external generator one token at
// a time. Producers and the display run at different rates; a bounded Feed
// sits between them.
package tokens

import (
	"bufio"
	"context"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// DefaultCapacity is the number of tokens queued before Push blocks.
const DefaultCapacity = 32

// ErrClosed is returned by Push after Complete.
var ErrClosed = errors.New("tokens: feed closed")

// Display is the direct-drive subset of the render engine.
type Display interface {
	ShowCharacter(ctx context.Context, c rune) error
	ShowTextSequence(ctx context.Context, text string, c model.RGB) error
}

// Feed is a bounded token queue. One producer calls Push and finally
// Complete; one consumer calls Run.
type Feed struct {
	ch     chan string
	closed chan struct{}
	once   sync.Once
	log    zerolog.Logger

	mu    sync.Mutex
	rate  float64
	shown int
}

// NewFeed returns a feed holding up to capacity tokens. A non-positive
// capacity uses DefaultCapacity.
func NewFeed(capacity int, logger zerolog.Logger) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		ch:     make(chan string, capacity),
		closed: make(chan struct{}),
		log:    logger.With().Str("component", "tokens").Logger(),
	}
}

// Push queues tok, blocking while the feed is full.
func (f *Feed) Push(ctx context.Context, tok string) error {
	select {
	case <-f.closed:
		return ErrClosed
	default:
	}
	select {
	case f.ch <- tok:
		return nil
	case <-f.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete records the generator's throughput and closes the feed. Tokens
// already queued are still shown.
func (f *Feed) Complete(tokPerSec float64) {
	f.once.Do(func() {
		f.mu.Lock()
		f.rate = tokPerSec
		f.mu.Unlock()
		f.log.Info().Float64("tok_per_sec", tokPerSec).Msg("generation complete")
		close(f.closed)
	})
}

// Rate is the throughput passed to Complete.
func (f *Feed) Rate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

// Shown is the number of tokens handed to the display.
func (f *Feed) Shown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown
}

// Run shows tokens until the feed is completed and drained, or ctx is done.
func (f *Feed) Run(ctx context.Context, d Display) error {
	for {
		select {
		case tok := <-f.ch:
			f.show(ctx, d, tok)
		case <-f.closed:
			for {
				select {
				case tok := <-f.ch:
					f.show(ctx, d, tok)
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// show displays one token. Tokens without a glyph are logged and skipped.
func (f *Feed) show(ctx context.Context, d Display, tok string) {
	f.log.Info().Str("token", tok).Int("len", len(tok)).Msg("token")
	f.mu.Lock()
	f.shown++
	f.mu.Unlock()

	var err error
	if utf8.RuneCountInString(tok) == 1 {
		r, _ := utf8.DecodeRuneInString(tok)
		err = d.ShowCharacter(ctx, r)
	} else {
		err = d.ShowTextSequence(ctx, tok, model.White)
	}
	if err != nil && ctx.Err() == nil {
		f.log.Debug().Err(err).Str("token", tok).Msg("token not shown")
	}
}

// Scan reads whitespace separated tokens from r into f and completes the
// feed with the measured rate once r is exhausted.
func Scan(ctx context.Context, r io.Reader, f *Feed, clk clock.Clock) error {
	if clk == nil {
		clk = clock.New()
	}
	start := clk.Now()
	n := 0
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		if err := f.Push(ctx, sc.Text()); err != nil {
			return err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read tokens")
	}
	rate := 0.0
	if el := clk.Now().Sub(start); el > 0 {
		rate = float64(n) / el.Seconds()
	}
	f.Complete(rate)
	return nil
}
