// Package chain assembles a closed loop of rigid links joined by distance
// constraints along a resampled path, and tears it down again.
package chain

import (
	"errors"

	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/pkg/core"
)

var (
	// ErrPathTooShort is returned for paths with fewer than 2 points
	ErrPathTooShort = errors.New("chain: path needs at least 2 points")

	// ErrBrokenLoop is returned by Validate when the constraints do not form a
	// single cycle over every link
	ErrBrokenLoop = errors.New("chain: constraints do not form a single loop")
)

// Link is one rigid chain piece and the path point it was created at.
type Link struct {
	Body   physics.BodyID `json:"body"`
	Origin core.Point     `json:"origin"`
}

// Constraint joins Links[A] and Links[B]. A and B index the owning chain's
// Links slice.
type Constraint struct {
	ID         physics.ConstraintID `json:"id"`
	A          int                  `json:"a"`
	B          int                  `json:"b"`
	RestLength float64              `json:"restLength"`
}

// Chain is a closed loop: constraint i joins link i and link (i+1) mod N.
type Chain struct {
	ID          uint64       `json:"id"`
	Links       []Link       `json:"links"`
	Constraints []Constraint `json:"constraints"`
	Compliance  float64      `json:"compliance"`
}

// Len returns the number of links.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Links)
}

// TotalRestLength sums the rest lengths of every constraint, which equals the
// perimeter of the path the chain was built on.
func (c *Chain) TotalRestLength() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, con := range c.Constraints {
		total += con.RestLength
	}
	return total
}

// Path returns the origin points of the links in order.
func (c *Chain) Path() []core.Point {
	if c == nil {
		return nil
	}
	path := make([]core.Point, len(c.Links))
	for i, l := range c.Links {
		path[i] = l.Origin
	}
	return path
}
