// Package rebuild owns the single chain of a drivetrain and rebuilds it when
// the cogs change.
//
// Triggers are queued with Enqueue from any goroutine and consumed by Step on
// the simulation goroutine, which is the only place links and constraints are
// created or destroyed.
package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bikesim/drivetrain/internal/chain"
	"github.com/bikesim/drivetrain/internal/geo"
	"github.com/bikesim/drivetrain/internal/logging"
	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/internal/queue"
	"github.com/bikesim/drivetrain/pkg/core"
)

// State of the controller.
type State uint8

const (
	Idle State = iota
	Rebuilding
)

func (s State) String() string {
	if s == Rebuilding {
		return "rebuilding"
	}
	return "idle"
}

// Builder creates and destroys chains. *chain.Assembler implements it.
type Builder interface {
	Assemble(path []core.Point) (*chain.Chain, error)
	Destroy(c *chain.Chain) error
}

// Journal receives one record per rebuild attempt.
type Journal interface {
	RecordRebuild(ctx context.Context, rec *core.RebuildRecord) error
}

// Config controls path generation and trigger handling.
type Config struct {
	Wrap geo.WrapParams
	// Coalesce folds all triggers of one step into a single rebuild
	Coalesce bool
}

// Dependencies of a Controller. Journal and Logger are optional.
type Dependencies struct {
	Cogs    physics.CogSource
	Builder Builder
	Journal Journal
	Logger  *slog.Logger
}

// Result describes what one Step did.
type Result struct {
	Tick      uint64
	Triggers  int
	Rebuilds  int
	Coalesced int
	Rebuilt   bool
	Chain     *chain.Chain
}

// Status is a snapshot for reporting.
type Status struct {
	State       State
	Tick        uint64
	ChainID     uint64
	Links       int
	Constraints int
	Perimeter   float64
	Pending     int
	Rebuilds    int64
	Failures    int64
	Coalesced   int64
	LastOutcome core.RebuildOutcome
	LastError   string
}

// Controller holds at most one chain.
type Controller struct {
	cfg     Config
	cogs    physics.CogSource
	builder Builder
	journal Journal
	logger  *slog.Logger
	metrics *metrics

	triggers *queue.Queue[Trigger]

	mu        sync.RWMutex
	state     State
	tick      uint64
	current   *chain.Chain
	perimeter float64
	rebuilds  int64
	failures  int64
	coalesced int64
	last      *core.RebuildRecord
}

// New creates a Controller with no chain.
func New(cfg Config, deps Dependencies) (*Controller, error) {
	if deps.Cogs == nil || deps.Builder == nil {
		return nil, errors.New("rebuild: cog source and builder are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		cfg:     cfg,
		cogs:    deps.Cogs,
		builder: deps.Builder,
		journal: deps.Journal,
		logger:  logger.With("component", "rebuild"),

		triggers: queue.New[Trigger](),
	}

	m, err := newMetrics(c)
	if err != nil {
		return nil, err
	}
	c.metrics = m
	return c, nil
}

// Enqueue requests a rebuild on the next Step.
func (c *Controller) Enqueue(t Trigger) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	c.triggers.Push(t)
}

// Pending returns the number of queued triggers.
func (c *Controller) Pending() int {
	return c.triggers.Len()
}

// Step advances the tick and serves queued triggers. With coalescing on, all
// triggers of the step share one rebuild driven by the most recent one. The
// returned error joins every *RebuildError of the step; none of them is fatal.
func (c *Controller) Step(ctx context.Context) (Result, error) {
	c.mu.Lock()
	c.tick++
	tick := c.tick
	c.mu.Unlock()

	ctx = logging.WithTick(ctx, tick)
	res := Result{Tick: tick}

	pending := c.triggers.Drain()
	if len(pending) == 0 {
		return res, nil
	}
	res.Triggers = len(pending)

	if c.cfg.Coalesce {
		latest := pending[len(pending)-1]
		res.Coalesced = len(pending) - 1
		if res.Coalesced > 0 {
			c.metrics.coalesced.Add(ctx, int64(res.Coalesced))
			c.mu.Lock()
			c.coalesced += int64(res.Coalesced)
			c.mu.Unlock()
			c.logger.DebugContext(ctx, "Coalesced rebuild triggers", "triggers", len(pending))
		}
		pending = []Trigger{latest}
	}

	var errs []error
	for _, t := range pending {
		ch, err := c.rebuild(ctx, t, res.Coalesced)
		res.Rebuilds++
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.Chain = ch
	}
	res.Rebuilt = res.Chain != nil
	return res, errors.Join(errs...)
}

// Rebuild rebuilds immediately, bypassing the queue. Like Step it must run on
// the simulation goroutine.
func (c *Controller) Rebuild(ctx context.Context, t Trigger) (*chain.Chain, error) {
	c.mu.RLock()
	tick := c.tick
	c.mu.RUnlock()
	return c.rebuild(logging.WithTick(ctx, tick), t, 0)
}

func (c *Controller) rebuild(ctx context.Context, t Trigger, coalesced int) (*chain.Chain, error) {
	start := time.Now()
	c.setState(Rebuilding)
	defer c.setState(Idle)

	profiles := c.cogs.CogProfiles()
	tick, _ := logging.TickFromContext(ctx)
	rec := &core.RebuildRecord{
		Time:      start,
		Tick:      tick,
		Trigger:   t.Kind,
		Coalesced: coalesced,
		Cogs:      profiles,
	}

	path, err := geo.WrapPath(profiles, c.cfg.Wrap)
	if err != nil {
		// keep the old chain
		c.mu.RLock()
		old := c.current
		c.mu.RUnlock()
		if old != nil {
			rec.ChainID = old.ID
			rec.LinkCount = old.Len()
			rec.TotalRestLength = old.TotalRestLength()
		}
		rec.Outcome = core.OutcomeGeometry
		rec.Error = err.Error()
		c.logger.WarnContext(ctx, "Chain path rejected, keeping current chain",
			"trigger", t.Kind.String(), "cogs", len(profiles), "error", err)
		c.finish(ctx, rec, start)
		return nil, &RebuildError{Stage: StageGeometry, Trigger: t.Kind, Err: err}
	}
	rec.Perimeter = path.Perimeter
	rec.Path = path.Points

	c.mu.RLock()
	old := c.current
	c.mu.RUnlock()

	if old != nil {
		if err := c.builder.Destroy(old); err != nil {
			// whatever survived is still in the world, so old stays current
			rec.Outcome = core.OutcomeTeardown
			rec.Error = err.Error()
			rec.ChainID = old.ID
			rec.LinkCount = old.Len()
			rec.TotalRestLength = old.TotalRestLength()
			c.logger.WarnContext(ctx, "Old chain not destroyed, keeping it",
				"trigger", t.Kind.String(), "chain", old.ID, "links", old.Len(), "error", err)
			c.finish(ctx, rec, start)
			return nil, &RebuildError{Stage: StageTeardown, Trigger: t.Kind, Err: err}
		}
		c.mu.Lock()
		c.current = nil
		c.perimeter = 0
		c.mu.Unlock()
	}

	next, err := c.builder.Assemble(path.Points)
	if err != nil {
		rec.Outcome = core.OutcomeAssembly
		rec.Error = err.Error()
		c.logger.WarnContext(ctx, "Chain assembly failed, no chain in place",
			"trigger", t.Kind.String(), "links", len(path.Points), "error", err)
		c.finish(ctx, rec, start)
		return nil, &RebuildError{Stage: StageAssembly, Trigger: t.Kind, Err: err}
	}

	c.mu.Lock()
	c.current = next
	c.perimeter = path.Perimeter
	c.mu.Unlock()

	rec.Outcome = core.OutcomeBuilt
	rec.ChainID = next.ID
	rec.LinkCount = next.Len()
	rec.TotalRestLength = next.TotalRestLength()
	c.finish(ctx, rec, start)

	c.logger.InfoContext(ctx, "Chain rebuilt",
		"trigger", t.Kind.String(),
		"chain", next.ID,
		"links", next.Len(),
		"perimeter", fmt.Sprintf("%.3f", path.Perimeter),
		"duration", rec.Duration,
	)
	return next, nil
}

// Teardown destroys the current chain, e.g. when the vehicle is removed. If
// the world refuses, the chain stays current and Teardown can be called again.
func (c *Controller) Teardown(ctx context.Context) error {
	c.mu.RLock()
	old := c.current
	tick := c.tick
	c.mu.RUnlock()

	if old == nil {
		return nil
	}

	ctx = logging.WithTick(ctx, tick)
	start := time.Now()
	rec := &core.RebuildRecord{
		Time:            start,
		Tick:            tick,
		Trigger:         core.TriggerTeardown,
		Outcome:         core.OutcomeTornDown,
		ChainID:         old.ID,
		LinkCount:       old.Len(),
		TotalRestLength: old.TotalRestLength(),
		Cogs:            c.cogs.CogProfiles(),
	}

	if err := c.builder.Destroy(old); err != nil {
		rec.Outcome = core.OutcomeTeardown
		rec.Error = err.Error()
		c.finish(ctx, rec, start)
		c.logger.WarnContext(ctx, "Chain teardown failed", "chain", old.ID, "links", old.Len(), "error", err)
		return &RebuildError{Stage: StageTeardown, Trigger: rec.Trigger, Err: err}
	}

	c.mu.Lock()
	c.current = nil
	c.perimeter = 0
	c.mu.Unlock()

	c.finish(ctx, rec, start)
	c.logger.InfoContext(ctx, "Chain torn down", "chain", rec.ChainID)
	return nil
}

// Current returns the live chain or nil.
func (c *Controller) Current() *chain.Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LastRecord returns the most recent journal record, or nil.
func (c *Controller) LastRecord() *core.RebuildRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Status returns a snapshot of the controller's counters and the live chain.
// It is safe to call from any goroutine.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		State:     c.state,
		Tick:      c.tick,
		Perimeter: c.perimeter,
		Pending:   c.triggers.Len(),
		Rebuilds:  c.rebuilds,
		Failures:  c.failures,
		Coalesced: c.coalesced,
	}
	if c.current != nil {
		s.ChainID = c.current.ID
		s.Links = len(c.current.Links)
		s.Constraints = len(c.current.Constraints)
	}
	if c.last != nil {
		s.LastOutcome = c.last.Outcome
		s.LastError = c.last.Error
	}
	return s
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) finish(ctx context.Context, rec *core.RebuildRecord, start time.Time) {
	rec.Duration = time.Since(start)

	c.mu.Lock()
	switch rec.Outcome {
	case core.OutcomeBuilt:
		c.rebuilds++
	case core.OutcomeGeometry, core.OutcomeAssembly, core.OutcomeTeardown:
		c.failures++
	}
	c.last = rec
	c.mu.Unlock()

	c.metrics.record(ctx, rec)

	if c.journal != nil {
		if err := c.journal.RecordRebuild(ctx, rec); err != nil {
			c.logger.WarnContext(ctx, "Failed to journal rebuild", "outcome", rec.Outcome, "error", err)
		}
	}
}
