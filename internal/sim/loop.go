// Package sim runs the fixed-step simulation loop. The loop goroutine owns the
// physics world: it applies deferred console commands, runs the rebuild
// controller and advances the world, in that order, once per tick.
package sim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bikesim/drivetrain/internal/channel"
	"github.com/bikesim/drivetrain/internal/dispatcher"
	"github.com/bikesim/drivetrain/internal/handlers"
	"github.com/bikesim/drivetrain/internal/logging"
	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/internal/rebuild"
)

// Config controls stepping.
type Config struct {
	// TimeStep is the simulated seconds per tick
	TimeStep float64
	// Interval is the wall-clock time between ticks; zero means real time
	Interval time.Duration
	// Paused ticks only when steps were requested
	Paused bool
	// MaxTicks stops Run after that many advanced ticks; zero runs until cancelled
	MaxTicks uint64
}

// Dependencies of a Loop. Drive, Logger and Output are optional.
type Dependencies struct {
	World      physics.World
	Drive      *physics.Drive
	Dispatcher *dispatcher.Dispatcher
	Controller *rebuild.Controller
	Logger     *slog.Logger
	// Output receives one line per command result
	Output io.Writer
}

// Loop advances the simulation. It implements handlers.Stepper.
type Loop struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger
	out    io.Writer

	paused atomic.Bool
	budget atomic.Int64
	ticks  atomic.Uint64
}

var _ handlers.Stepper = (*Loop)(nil)

// New validates the configuration and returns a stopped loop.
func New(cfg Config, deps Dependencies) (*Loop, error) {
	if deps.World == nil || deps.Dispatcher == nil || deps.Controller == nil {
		return nil, errors.New("sim: world, dispatcher and controller are required")
	}
	if cfg.TimeStep <= 0 {
		return nil, fmt.Errorf("sim: time step must be positive, got %v", cfg.TimeStep)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Duration(cfg.TimeStep * float64(time.Second))
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := deps.Output
	if out == nil {
		out = io.Discard
	}

	l := &Loop{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "sim"),
		out:    out,
	}
	l.paused.Store(cfg.Paused)
	return l, nil
}

// RequestSteps grants n more ticks while paused.
func (l *Loop) RequestSteps(n int) {
	if n > 0 {
		l.budget.Add(int64(n))
	}
}

func (l *Loop) SetPaused(paused bool) {
	l.paused.Store(paused)
}

func (l *Loop) Paused() bool {
	return l.paused.Load()
}

// Ticks returns the number of ticks that advanced the world.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

func (l *Loop) takeStep() bool {
	if !l.paused.Load() {
		return true
	}
	for {
		b := l.budget.Load()
		if b <= 0 {
			return false
		}
		if l.budget.CompareAndSwap(b, b-1) {
			return true
		}
	}
}

// Tick runs deferred commands and, unless paused without budget, drives the
// crank, serves rebuild triggers and steps the world. It reports whether the
// world advanced.
func (l *Loop) Tick(ctx context.Context) bool {
	ctx = logging.WithTick(ctx, l.ticks.Load()+1)

	for _, o := range l.deps.Dispatcher.Drain(ctx) {
		fmt.Fprintln(l.out, handlers.FormatOutcome(o))
	}

	if !l.takeStep() {
		return false
	}

	if l.deps.Drive != nil {
		if _, err := l.deps.Drive.Apply(l.deps.World); err != nil {
			l.logger.WarnContext(ctx, "Failed to apply crank drive", "error", err)
		}
	}

	if res, err := l.deps.Controller.Step(ctx); err != nil {
		l.logger.WarnContext(ctx, "Chain rebuild failed", "triggers", res.Triggers, "error", err)
	}

	l.deps.World.Step(l.cfg.TimeStep)
	l.ticks.Add(1)
	return true
}

// Submit parses and dispatches one console line. Results of commands that run
// immediately are printed now; deferred ones are printed by the next Tick.
func (l *Loop) Submit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	e, err := dispatcher.ParseLine(line)
	if err != nil {
		fmt.Fprintf(l.out, "error: %v\n", err)
		return
	}
	result, err := l.deps.Dispatcher.Dispatch(e)
	if err == nil && result == "queued" {
		return
	}
	fmt.Fprintln(l.out, handlers.FormatOutcome(dispatcher.Outcome{Event: e, Result: result, Err: err}))
}

// Run ticks at the configured interval and feeds lines from input to Submit
// until ctx is done or MaxTicks is reached. A closed input keeps the loop
// running.
func (l *Loop) Run(ctx context.Context, input channel.Receiver[string]) error {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	var lines <-chan string
	if input != nil {
		lines = input.Receive()
	}

	l.logger.Info("Simulation started", "timeStep", l.cfg.TimeStep, "paused", l.Paused())
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Simulation stopped", "ticks", l.Ticks())
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			l.Submit(line)
		case <-ticker.C:
			if l.Tick(ctx) && l.cfg.MaxTicks > 0 && l.Ticks() >= l.cfg.MaxTicks {
				l.logger.Info("Simulation reached tick limit", "ticks", l.Ticks())
				return nil
			}
		}
	}
}

// ReadCommands copies lines from r into out until r is exhausted or ctx is
// done. Lines that do not fit are dropped with a warning.
func ReadCommands(ctx context.Context, r io.Reader, out channel.Sender[string], logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !out.TrySend(line) {
			logger.Warn("Command input full, dropping line", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}
