package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bikesim/drivetrain/internal/dispatcher"
	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/internal/rebuild"
	"github.com/bikesim/drivetrain/internal/util"
	"github.com/bikesim/drivetrain/pkg/core"
)

// Command names understood by the simulator console
const (
	CmdCogRadius     = ":COG:RADIUS:"
	CmdCogNudge      = ":COG:NUDGE:"
	CmdCogMove       = ":COG:MOVE:"
	CmdChainReset    = ":CHAIN:RESET:"
	CmdChainTeardown = ":CHAIN:TEARDOWN:"
	CmdStatus        = ":STATUS:"
	CmdStep          = ":STEP:"
)

// deferredQueueSize bounds the commands waiting for the next simulation step.
const deferredQueueSize = 256

// ErrArgs is returned when a command has the wrong number of arguments.
var ErrArgs = errors.New("wrong number of arguments")

// Stepper accepts requests for extra simulation steps while paused.
type Stepper interface {
	RequestSteps(n int)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	World      physics.World
	Controller *rebuild.Controller
	Stepper    Stepper
	Logger     *slog.Logger
	MinRadius  float64
	MaxRadius  float64
}

// Service turns console commands into world edits and rebuild triggers.
type Service struct {
	deps   Dependencies
	ctx    context.Context
	logger *slog.Logger
}

// StatusReport is returned by :STATUS:.
type StatusReport struct {
	State       string            `json:"state"`
	Tick        uint64            `json:"tick"`
	ChainID     uint64            `json:"chainId"`
	Links       int               `json:"links"`
	Constraints int               `json:"constraints"`
	Perimeter   float64           `json:"perimeter"`
	Pending     int               `json:"pending"`
	Rebuilds    int64             `json:"rebuilds"`
	Failures    int64             `json:"failures"`
	Coalesced   int64             `json:"coalesced"`
	LastOutcome string            `json:"lastOutcome,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
	CrankRPM    float64           `json:"crankRpm"`
	Cogs        []core.CogProfile `json:"cogs"`
}

// NewService creates a new handler service. ctx scopes teardowns issued from the console.
func NewService(ctx context.Context, deps Dependencies) *Service {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deps:   deps,
		ctx:    ctx,
		logger: logger.With("component", "handlers"),
	}
}

// Register wires every console command into d. Commands that touch the world
// are deferred to the simulation goroutine.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	deferred := []dispatcher.Option{dispatcher.Deferred(deferredQueueSize), dispatcher.Logged()}

	d.Register(CmdCogRadius, s.argsHandler(s.SetRadius), deferred...)
	d.Register(CmdCogNudge, s.argsHandler(s.NudgeRadius), deferred...)
	d.Register(CmdCogMove, s.argsHandler(s.MoveCog), deferred...)
	d.Register(CmdChainReset, s.argsHandler(s.ResetChain), deferred...)
	d.Register(CmdChainTeardown, s.argsHandler(s.TeardownChain), deferred...)
	d.Register(CmdStatus, func(dispatcher.Event) (any, error) { return s.Status(), nil }, dispatcher.Deferred(deferredQueueSize))
	d.Register(CmdStep, s.argsHandler(s.Step), dispatcher.Logged())
}

func (s *Service) argsHandler(fn func(data []string) error) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		if err := fn(e.Args); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Command, err)
		}
		return "ok", nil
	}
}

// SetRadius handles "<role> <radius>". The radius is clamped to the configured limits.
func (s *Service) SetRadius(data []string) error {
	if len(data) != 2 {
		return fmt.Errorf("%w: want <role> <radius>, got %d", ErrArgs, len(data))
	}
	role, err := core.ParseCogRole(util.TrimQuotes(data[0]))
	if err != nil {
		return err
	}
	r, err := util.ParseFloat(data[1])
	if err != nil {
		return err
	}
	return s.applyRadius(role, r)
}

// NudgeRadius handles "<role> <delta>".
func (s *Service) NudgeRadius(data []string) error {
	if len(data) != 2 {
		return fmt.Errorf("%w: want <role> <delta>, got %d", ErrArgs, len(data))
	}
	role, err := core.ParseCogRole(util.TrimQuotes(data[0]))
	if err != nil {
		return err
	}
	delta, err := util.ParseFloat(data[1])
	if err != nil {
		return err
	}
	p, err := s.profile(role)
	if err != nil {
		return err
	}
	return s.applyRadius(role, p.Radius+delta)
}

func (s *Service) applyRadius(role core.CogRole, r float64) error {
	clamped := util.Clamp(r, s.deps.MinRadius, s.deps.MaxRadius)
	if err := s.deps.World.SetCogRadius(role, clamped); err != nil {
		return fmt.Errorf("setting %s radius: %w", role, err)
	}
	if clamped != r {
		s.logger.Debug("Radius clamped", "role", role.String(), "requested", r, "radius", clamped)
	}
	s.deps.Controller.Enqueue(rebuild.RadiusChanged(role))
	return nil
}

// MoveCog handles "<role> <x> <y>".
func (s *Service) MoveCog(data []string) error {
	if len(data) != 3 {
		return fmt.Errorf("%w: want <role> <x> <y>, got %d", ErrArgs, len(data))
	}
	role, err := core.ParseCogRole(util.TrimQuotes(data[0]))
	if err != nil {
		return err
	}
	x, err := util.ParseFloat(data[1])
	if err != nil {
		return err
	}
	y, err := util.ParseFloat(data[2])
	if err != nil {
		return err
	}
	if err := s.deps.World.MoveCog(role, core.Point{X: x, Y: y}); err != nil {
		return fmt.Errorf("moving %s: %w", role, err)
	}
	s.deps.Controller.Enqueue(rebuild.CogsChanged())
	return nil
}

// ResetChain requests a rebuild with the current cogs.
func (s *Service) ResetChain(data []string) error {
	if len(data) != 0 {
		return fmt.Errorf("%w: reset takes none, got %d", ErrArgs, len(data))
	}
	s.deps.Controller.Enqueue(rebuild.ManualReset())
	return nil
}

// TeardownChain destroys the current chain without building a new one.
func (s *Service) TeardownChain(data []string) error {
	if len(data) != 0 {
		return fmt.Errorf("%w: teardown takes none, got %d", ErrArgs, len(data))
	}
	return s.deps.Controller.Teardown(s.ctx)
}

// Step handles "<n>" and asks the stepper for n more simulation steps.
func (s *Service) Step(data []string) error {
	if s.deps.Stepper == nil {
		return errors.New("stepping is not available")
	}
	n := 1
	if len(data) > 1 {
		return fmt.Errorf("%w: want [n], got %d", ErrArgs, len(data))
	}
	if len(data) == 1 {
		var err error
		if n, err = util.ParseCount(data[0]); err != nil {
			return err
		}
	}
	s.deps.Stepper.RequestSteps(n)
	return nil
}

// Status reports the controller state and the cogs.
func (s *Service) Status() StatusReport {
	st := s.deps.Controller.Status()
	r := StatusReport{
		State:       st.State.String(),
		Tick:        st.Tick,
		ChainID:     st.ChainID,
		Links:       st.Links,
		Constraints: st.Constraints,
		Perimeter:   st.Perimeter,
		Pending:     st.Pending,
		Rebuilds:    st.Rebuilds,
		Failures:    st.Failures,
		Coalesced:   st.Coalesced,
		LastOutcome: string(st.LastOutcome),
		LastError:   st.LastError,
		Cogs:        s.deps.World.CogProfiles(),
	}
	if w, err := s.deps.World.CogAngularVelocity(core.FrontChainring); err == nil {
		r.CrankRPM = core.AngularVelocityToRPM(w)
	}
	return r
}

func (s *Service) profile(role core.CogRole) (core.CogProfile, error) {
	for _, p := range s.deps.World.CogProfiles() {
		if p.Role == role {
			return p, nil
		}
	}
	return core.CogProfile{}, fmt.Errorf("%s: %w", role, physics.ErrUnknownCog)
}

// FormatOutcome renders a drained command outcome as one console line.
func FormatOutcome(o dispatcher.Outcome) string {
	var b strings.Builder
	b.WriteString(o.Event.Command)
	if o.Err != nil {
		b.WriteString(" error: ")
		b.WriteString(o.Err.Error())
		return b.String()
	}
	fmt.Fprintf(&b, " %v", o.Result)
	return b.String()
}
