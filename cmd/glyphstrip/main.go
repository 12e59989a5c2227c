// Command glyphstrip runs the glyph strip: the button flow by default, or a
// token stream with --tokens.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/funtimes-glyphstrip/internal/app"
	"github.com/coreman2200/funtimes-glyphstrip/internal/clock"
	"github.com/coreman2200/funtimes-glyphstrip/internal/config"
	"github.com/coreman2200/funtimes-glyphstrip/internal/render"
	"github.com/coreman2200/funtimes-glyphstrip/internal/sim"
	"github.com/coreman2200/funtimes-glyphstrip/internal/tokens"
)

var (
	configPath = "glyphstrip.yaml"
	verbose    = false
	simOnly    = false
	terminal   = false
	tokensPath = ""
	previewAt  = ""
	logPath    = ""
	brightness = 0
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "configuration file")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "debug logging")
	pflag.BoolVar(&simOnly, "sim", simOnly, "force simulated strip and touch")
	pflag.BoolVarP(&terminal, "terminal", "t", terminal, "draw the strip in this terminal, keys press buttons")
	pflag.StringVar(&tokensPath, "tokens", tokensPath, "show tokens from a file, - for stdin")
	pflag.StringVar(&previewAt, "preview", previewAt, "serve the websocket preview on this address")
	pflag.StringVar(&logPath, "log", logPath, "log file (default stderr)")
	pflag.IntVarP(&brightness, "brightness", "b", brightness, "brightness 1..128, overrides the config")
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.New()
	hw, err := openHardware(cfg, clk, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	logger.Info().
		Str("mode", cfg.Mode).
		Str("strip", cfg.Strip.Driver).
		Str("touch", cfg.Touch.Driver).
		Uint8("brightness", cfg.Brightness).
		Msg("glyphstrip starting")

	// status hooks are set before any task can read them
	var work func(ctx context.Context) error
	switch cfg.Mode {
	case config.ModeTokens:
		eng := render.NewEngine(hw.strip, clk, logger)
		eng.SetBrightness(cfg.Brightness)
		hw.status(func() map[string]any {
			return map[string]any{"mode": config.ModeTokens, "frames": eng.Frames()}
		})
		work = func(ctx context.Context) error {
			// the other tasks run until cancelled
			defer cancel()
			return runTokens(ctx, eng, tokensPath, clk, logger)
		}
	default:
		core, err := app.InitCore(app.HWConfig{
			Strip:       hw.strip,
			Sensor:      hw.sensor,
			Threshold:   cfg.Touch.Threshold,
			Brightness:  cfg.Brightness,
			FramePeriod: cfg.FramePeriod(),
			LoopDelay:   cfg.LoopDelay,
			Clock:       clk,
		}, logger)
		if err != nil {
			return err
		}
		hw.status(core.Status)
		work = core.Run
	}

	g, gctx := errgroup.WithContext(ctx)
	if hw.term != nil {
		g.Go(func() error { return hw.term.Run(gctx) })
	}
	if hw.serial != nil {
		g.Go(func() error { return hw.serial.Listen(gctx) })
	}
	if hw.preview != nil {
		g.Go(func() error { return hw.preview.ListenAndServe(gctx, cfg.Preview.Addr) })
	}
	g.Go(func() error { return work(gctx) })

	err = g.Wait()
	if errors.Is(err, sim.ErrQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info().Err(err).Msg("glyphstrip stopped")
	return err
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist, then applies flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	switch {
	case os.IsNotExist(err):
		cfg = config.Default()
	case err != nil:
		return nil, err
	}

	if simOnly {
		cfg.Strip.Driver = config.StripSim
		cfg.Touch.Driver = config.TouchSim
	}
	if terminal {
		cfg.Strip.Driver = config.StripTerminal
		cfg.Touch.Driver = config.TouchTerminal
	}
	if tokensPath != "" {
		cfg.Mode = config.ModeTokens
	}
	if previewAt != "" {
		cfg.Preview.Addr = previewAt
	}
	if brightness > 0 {
		cfg.Brightness = uint8(min(brightness, 255))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if cfg.Mode == config.ModeTokens && tokensPath == "" {
		tokensPath = "-"
	}
	return cfg, nil
}

// newLogger writes to --log if given. The terminal strip owns stderr, so
// without a log file its logs are dropped.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	switch {
	case logPath != "":
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrap(err, "open log")
		}
		out = f
		closeLog = func() { f.Close() }
	case cfg.Strip.Driver == config.StripTerminal:
		out = io.Discard
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: logPath != ""}).
		Level(level).
		With().Timestamp().Logger()
	return logger, closeLog, nil
}

// runTokens plays the startup animation, then shows tokens from path until
// the source is exhausted.
func runTokens(ctx context.Context, eng *render.Engine, path string, clk clock.Clock, logger zerolog.Logger) error {
	var src io.ReadCloser = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open tokens")
		}
		src = f
	}
	defer src.Close()

	if err := eng.LoadingSweep(ctx); err != nil {
		return err
	}
	if err := eng.HighlightButtons(ctx); err != nil {
		return err
	}

	rctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		// unblocks a Scan stuck reading stdin
		<-rctx.Done()
		src.Close()
	}()

	feed := tokens.NewFeed(tokens.DefaultCapacity, logger)
	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() error {
		return tokens.Scan(gctx, src, feed, clk)
	})
	g.Go(func() error {
		defer stop()
		return feed.Run(gctx, eng)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		err = nil
	}
	logger.Info().
		Float64("tok_per_sec", feed.Rate()).
		Int("shown", feed.Shown()).
		Msg("token stream done")
	return err
}
