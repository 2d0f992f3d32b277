package physics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bikesim/drivetrain/pkg/core"
)

// cogInertia is the rotational inertia MemoryWorld assumes for every cog.
const cogInertia = 1.0

type memoryCog struct {
	profile core.CogProfile
	angVel  float64
	torque  float64
}

type memoryConstraint struct {
	spec ConstraintSpec
}

// MemoryWorld is a deterministic world without collision or joint solving.
// Links stay where they are created. It can be told to reject creations after a
// number of successes, which is how assembly rollback is exercised.
type MemoryWorld struct {
	mu sync.Mutex

	cogs        map[core.CogRole]*memoryCog
	links       map[BodyID]LinkSpec
	constraints map[ConstraintID]memoryConstraint

	nextBody       BodyID
	nextConstraint ConstraintID

	// creations left before CreateLink/CreateDistanceConstraint start failing;
	// negative means never
	failAfter int
	locked    bool

	created   int
	destroyed int
}

// NewMemoryWorld returns an empty MemoryWorld.
func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{
		cogs:        make(map[core.CogRole]*memoryCog),
		links:       make(map[BodyID]LinkSpec),
		constraints: make(map[ConstraintID]memoryConstraint),
		failAfter:   -1,
	}
}

// FailAfter makes the world reject every creation after the next k successful
// ones. A negative k clears the fault.
func (w *MemoryWorld) FailAfter(k int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failAfter = k
}

// SetLocked simulates a world that is mid-step and refuses mutation.
func (w *MemoryWorld) SetLocked(locked bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locked = locked
}

// Stats returns the total number of objects ever created and destroyed.
func (w *MemoryWorld) Stats() (created, destroyed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created, w.destroyed
}

func (w *MemoryWorld) admit() error {
	if w.locked {
		return ErrWorldLocked
	}
	if w.failAfter == 0 {
		return fmt.Errorf("%w: creation budget exhausted", ErrWorldLocked)
	}
	if w.failAfter > 0 {
		w.failAfter--
	}
	return nil
}

func (w *MemoryWorld) AddCog(role core.CogRole, center core.Point, radius float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if radius <= 0 || !center.IsFinite() {
		return fmt.Errorf("%w: cog %s radius %v", ErrInvalidSpec, role, radius)
	}
	w.cogs[role] = &memoryCog{profile: core.CogProfile{Role: role, Center: center, Radius: radius}}
	return nil
}

func (w *MemoryWorld) SetCogRadius(role core.CogRole, radius float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cog, ok := w.cogs[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCog, role)
	}
	if radius <= 0 {
		return fmt.Errorf("%w: cog %s radius %v", ErrInvalidSpec, role, radius)
	}
	cog.profile.Radius = radius
	return nil
}

func (w *MemoryWorld) MoveCog(role core.CogRole, center core.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cog, ok := w.cogs[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCog, role)
	}
	cog.profile.Center = center
	return nil
}

func (w *MemoryWorld) CogAngularVelocity(role core.CogRole) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cog, ok := w.cogs[role]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCog, role)
	}
	return cog.angVel, nil
}

func (w *MemoryWorld) ApplyCogTorque(role core.CogRole, torque float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cog, ok := w.cogs[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCog, role)
	}
	cog.torque += torque
	return nil
}

// CogProfiles returns the cogs ordered by role.
func (w *MemoryWorld) CogProfiles() []core.CogProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	profiles := make([]core.CogProfile, 0, len(w.cogs))
	for _, cog := range w.cogs {
		profiles = append(profiles, cog.profile)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Role < profiles[j].Role })
	return profiles
}

func (w *MemoryWorld) CreateLink(spec LinkSpec) (BodyID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := spec.validate(); err != nil {
		return 0, err
	}
	if err := w.admit(); err != nil {
		return 0, err
	}
	w.nextBody++
	w.links[w.nextBody] = spec
	w.created++
	return w.nextBody, nil
}

func (w *MemoryWorld) DestroyLink(id BodyID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locked {
		return ErrWorldLocked
	}
	if _, ok := w.links[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	// like box2d, removing a body drops the joints attached to it
	for cid, c := range w.constraints {
		if c.spec.A == id || c.spec.B == id {
			delete(w.constraints, cid)
			w.destroyed++
		}
	}
	delete(w.links, id)
	w.destroyed++
	return nil
}

func (w *MemoryWorld) LinkPosition(id BodyID) (core.Point, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	spec, ok := w.links[id]
	if !ok {
		return core.Point{}, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return spec.Position, nil
}

func (w *MemoryWorld) CreateDistanceConstraint(spec ConstraintSpec) (ConstraintID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.links[spec.A]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, spec.A)
	}
	if _, ok := w.links[spec.B]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, spec.B)
	}
	if spec.A == spec.B || spec.RestLength < 0 || spec.Compliance < 0 {
		return 0, fmt.Errorf("%w: constraint %d-%d rest %v", ErrInvalidSpec, spec.A, spec.B, spec.RestLength)
	}
	if err := w.admit(); err != nil {
		return 0, err
	}
	w.nextConstraint++
	w.constraints[w.nextConstraint] = memoryConstraint{spec: spec}
	w.created++
	return w.nextConstraint, nil
}

func (w *MemoryWorld) DestroyConstraint(id ConstraintID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locked {
		return ErrWorldLocked
	}
	if _, ok := w.constraints[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConstraint, id)
	}
	delete(w.constraints, id)
	w.destroyed++
	return nil
}

// Constraint returns the spec a live constraint was created with.
func (w *MemoryWorld) Constraint(id ConstraintID) (ConstraintSpec, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.constraints[id]
	return c.spec, ok
}

// Step integrates cog spin from the torque applied since the last step.
func (w *MemoryWorld) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, cog := range w.cogs {
		cog.angVel += cog.torque / cogInertia * dt
		cog.torque = 0
	}
}

func (w *MemoryWorld) Counts() (links, constraints int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.links), len(w.constraints)
}
