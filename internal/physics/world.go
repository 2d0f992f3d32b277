// Package physics hosts the rigid-body world the drivetrain lives in.
//
// Chain code only talks to the World interface: links are small rotation
// locked discs, constraints are distance joints between two links, cogs are
// discs pinned to the frame. Two backends exist: Box2DWorld and MemoryWorld.
package physics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bikesim/drivetrain/pkg/core"
)

var (
	ErrUnknownBody       = errors.New("physics: unknown body")
	ErrUnknownConstraint = errors.New("physics: unknown constraint")
	ErrUnknownCog        = errors.New("physics: unknown cog")
	ErrWorldLocked       = errors.New("physics: world is locked")
	ErrInvalidSpec       = errors.New("physics: invalid body or constraint spec")
)

// BodyID identifies a chain link body. Zero is never a valid id.
type BodyID uint64

// ConstraintID identifies a distance constraint. Zero is never a valid id.
type ConstraintID uint64

// Collision categories.
const (
	CategoryWorld    uint16 = 0x0001
	CategoryFrame    uint16 = 0x0002
	CategoryGroupset uint16 = 0x0004
	CategoryChain    uint16 = 0x0008
)

// Filter is a collision filter in terms of the categories above.
type Filter struct {
	Category uint16
	Mask     uint16
}

// ChainFilter lets links hit the cogs and each other, and nothing else.
var ChainFilter = Filter{Category: CategoryChain, Mask: CategoryGroupset | CategoryChain}

// GroupsetFilter lets cogs hit the ground and the chain.
var GroupsetFilter = Filter{Category: CategoryGroupset, Mask: CategoryWorld | CategoryChain}

// LinkSpec describes one chain link.
type LinkSpec struct {
	Position core.Point
	Radius   float64
	Mass     float64
	Friction float64
	Filter   Filter
}

func (s LinkSpec) validate() error {
	if !s.Position.IsFinite() {
		return fmt.Errorf("%w: link position %v", ErrInvalidSpec, s.Position)
	}
	if s.Radius <= 0 || s.Mass <= 0 {
		return fmt.Errorf("%w: link radius %v mass %v", ErrInvalidSpec, s.Radius, s.Mass)
	}
	return nil
}

// ConstraintSpec describes a distance constraint between two links.
// Compliance 0 means rigid.
type ConstraintSpec struct {
	A, B       BodyID
	RestLength float64
	Compliance float64
}

// CogSource reports the current cog outlines.
type CogSource interface {
	CogProfiles() []core.CogProfile
}

// World is the set of physics operations the drivetrain needs.
type World interface {
	CogSource

	AddCog(role core.CogRole, center core.Point, radius float64) error
	SetCogRadius(role core.CogRole, radius float64) error
	MoveCog(role core.CogRole, center core.Point) error
	CogAngularVelocity(role core.CogRole) (float64, error)
	ApplyCogTorque(role core.CogRole, torque float64) error

	CreateLink(spec LinkSpec) (BodyID, error)
	DestroyLink(id BodyID) error
	LinkPosition(id BodyID) (core.Point, error)

	CreateDistanceConstraint(spec ConstraintSpec) (ConstraintID, error)
	DestroyConstraint(id ConstraintID) error

	// Step advances the simulation by dt seconds.
	Step(dt float64)

	// Counts returns the number of live links and constraints.
	Counts() (links, constraints int)
}

// Params configures a world backend.
type Params struct {
	Backend            string
	Gravity            float64
	VelocityIterations int
	PositionIterations int
}

// Backend names
const (
	BackendBox2D  = "box2d"
	BackendMemory = "memory"
)

// New creates the backend named in params.
func New(params Params) (World, error) {
	switch strings.ToLower(params.Backend) {
	case BackendBox2D, "":
		return NewBox2DWorld(params), nil
	case BackendMemory:
		return NewMemoryWorld(), nil
	default:
		return nil, fmt.Errorf("unknown physics backend: %s", params.Backend)
	}
}
