package chain

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/pkg/core"
)

// LinkParams is the shape of every link in a chain.
type LinkParams struct {
	Radius   float64
	Mass     float64
	Friction float64
	Filter   physics.Filter
}

// Assembler creates and destroys chains in a physics world.
type Assembler struct {
	world      physics.World
	link       LinkParams
	compliance float64

	lastID atomic.Uint64
}

// NewAssembler returns an Assembler bound to world.
func NewAssembler(world physics.World, link LinkParams, compliance float64) *Assembler {
	return &Assembler{
		world:      world,
		link:       link,
		compliance: compliance,
	}
}

// Assemble creates one link per path point and N constraints closing the
// loop. If the world rejects any creation, everything created by this call is
// destroyed before the error is returned.
func (a *Assembler) Assemble(path []core.Point) (*Chain, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrPathTooShort, len(path))
	}

	n := len(path)
	c := &Chain{
		Links:       make([]Link, 0, n),
		Constraints: make([]Constraint, 0, n),
		Compliance:  a.compliance,
	}

	for i, p := range path {
		body, err := a.world.CreateLink(physics.LinkSpec{
			Position: p,
			Radius:   a.link.Radius,
			Mass:     a.link.Mass,
			Friction: a.link.Friction,
			Filter:   a.link.Filter,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating link %d of %d: %w", i, n, err), a.Destroy(c))
		}
		c.Links = append(c.Links, Link{Body: body, Origin: p})
	}

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		rest := path[i].Distance(path[j])
		id, err := a.world.CreateDistanceConstraint(physics.ConstraintSpec{
			A:          c.Links[i].Body,
			B:          c.Links[j].Body,
			RestLength: rest,
			Compliance: a.compliance,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("creating constraint %d-%d: %w", i, j, err), a.Destroy(c))
		}
		c.Constraints = append(c.Constraints, Constraint{ID: id, A: i, B: j, RestLength: rest})
	}

	c.ID = a.lastID.Add(1)
	return c, nil
}

// Destroy removes every constraint of c, then every link. Objects the world
// no longer knows about count as removed. Entries the world refuses to remove
// stay in c so Destroy can be retried, and links are left alone while any
// constraint survives. All failures are returned joined.
func (a *Assembler) Destroy(c *Chain) error {
	if c == nil {
		return nil
	}

	var errs []error
	kept := c.Constraints[:0]
	for _, con := range c.Constraints {
		err := a.world.DestroyConstraint(con.ID)
		if err != nil && !errors.Is(err, physics.ErrUnknownConstraint) {
			errs = append(errs, fmt.Errorf("destroying constraint %d: %w", con.ID, err))
			kept = append(kept, con)
		}
	}
	if len(kept) > 0 {
		// constraints index into Links, keep them aligned
		c.Constraints = kept
		return errors.Join(errs...)
	}
	c.Constraints = nil

	var links []Link
	for _, l := range c.Links {
		err := a.world.DestroyLink(l.Body)
		if err != nil && !errors.Is(err, physics.ErrUnknownBody) {
			errs = append(errs, fmt.Errorf("destroying link %d: %w", l.Body, err))
			links = append(links, l)
		}
	}
	c.Links = links
	return errors.Join(errs...)
}
