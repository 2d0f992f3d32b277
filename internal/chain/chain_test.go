package chain

import (
	"errors"
	"math"
	"testing"

	"github.com/bikesim/drivetrain/internal/geo"
	"github.com/bikesim/drivetrain/internal/physics"
	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLink = LinkParams{Radius: 0.5, Mass: 0.01, Friction: 1, Filter: physics.ChainFilter}

func square() []core.Point {
	return []core.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
}

func TestAssembleClosesLoop(t *testing.T) {
	w := physics.NewMemoryWorld()
	a := NewAssembler(w, testLink, 0)

	c, err := a.Assemble(square())
	require.NoError(t, err)

	require.Len(t, c.Links, 4)
	require.Len(t, c.Constraints, 4)
	for i, con := range c.Constraints {
		assert.Equal(t, i, con.A)
		assert.Equal(t, (i+1)%4, con.B)
		assert.InDelta(t, 1.0, con.RestLength, 1e-12)
	}
	assert.InDelta(t, 4.0, c.TotalRestLength(), 1e-12)
	assert.NoError(t, c.Validate())
	assert.Equal(t, square(), c.Path())

	links, constraints := w.Counts()
	assert.Equal(t, 4, links)
	assert.Equal(t, 4, constraints)

	// rest lengths come straight from the path
	spec, ok := w.Constraint(c.Constraints[3].ID)
	require.True(t, ok)
	assert.Equal(t, c.Links[3].Body, spec.A)
	assert.Equal(t, c.Links[0].Body, spec.B)
}

func TestAssembleNonUniformRestLengths(t *testing.T) {
	path := []core.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 4}}
	c, err := NewAssembler(physics.NewMemoryWorld(), testLink, 0.001).Assemble(path)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, c.Constraints[0].RestLength, 1e-12)
	assert.InDelta(t, 4.0, c.Constraints[1].RestLength, 1e-12)
	assert.InDelta(t, 5.0, c.Constraints[2].RestLength, 1e-12)
	assert.Equal(t, 0.001, c.Compliance)
}

func TestAssembleTwoLinks(t *testing.T) {
	c, err := NewAssembler(physics.NewMemoryWorld(), testLink, 0).Assemble([]core.Point{{X: 0}, {X: 2}})
	require.NoError(t, err)
	require.Len(t, c.Constraints, 2)
	assert.NoError(t, c.Validate())
}

func TestAssembleRejectsShortPath(t *testing.T) {
	a := NewAssembler(physics.NewMemoryWorld(), testLink, 0)
	for _, path := range [][]core.Point{nil, {{X: 1}}} {
		_, err := a.Assemble(path)
		if !errors.Is(err, ErrPathTooShort) {
			t.Errorf("expected ErrPathTooShort for %d points, got %v", len(path), err)
		}
	}
}

func TestAssembleRollsBack(t *testing.T) {
	tests := []struct {
		name      string
		failAfter int
	}{
		{"first link", 0},
		{"mid links", 2},
		{"first constraint", 4},
		{"last constraint", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := physics.NewMemoryWorld()
			w.FailAfter(tt.failAfter)

			c, err := NewAssembler(w, testLink, 0).Assemble(square())
			require.Error(t, err)
			assert.ErrorIs(t, err, physics.ErrWorldLocked)
			assert.Nil(t, c)

			links, constraints := w.Counts()
			assert.Zero(t, links)
			assert.Zero(t, constraints)

			created, destroyed := w.Stats()
			assert.Equal(t, tt.failAfter, created)
			assert.Equal(t, created, destroyed)
		})
	}
}

func TestChainIDsIncrease(t *testing.T) {
	a := NewAssembler(physics.NewMemoryWorld(), testLink, 0)
	first, err := a.Assemble(square())
	require.NoError(t, err)
	second, err := a.Assemble(square())
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestDestroy(t *testing.T) {
	w := physics.NewMemoryWorld()
	a := NewAssembler(w, testLink, 0)
	c, err := a.Assemble(square())
	require.NoError(t, err)

	require.NoError(t, a.Destroy(c))
	links, constraints := w.Counts()
	assert.Zero(t, links)
	assert.Zero(t, constraints)
	assert.Zero(t, c.Len())

	assert.NoError(t, a.Destroy(nil))
}

func TestDestroySkipsObjectsAlreadyGone(t *testing.T) {
	w := physics.NewMemoryWorld()
	a := NewAssembler(w, testLink, 0)
	c, err := a.Assemble(square())
	require.NoError(t, err)

	// pull one constraint out from under the chain
	require.NoError(t, w.DestroyConstraint(c.Constraints[1].ID))

	require.NoError(t, a.Destroy(c))
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Constraints)

	links, constraints := w.Counts()
	assert.Zero(t, links)
	assert.Zero(t, constraints)
}

func TestDestroyKeepsWhatTheWorldRefuses(t *testing.T) {
	w := physics.NewMemoryWorld()
	a := NewAssembler(w, testLink, 0)
	c, err := a.Assemble(square())
	require.NoError(t, err)

	w.SetLocked(true)
	err = a.Destroy(c)
	assert.ErrorIs(t, err, physics.ErrWorldLocked)

	links, constraints := w.Counts()
	if links != 4 || constraints != 4 {
		t.Errorf("world has %d links and %d constraints, want 4 and 4", links, constraints)
	}
	assert.Equal(t, 4, c.Len())
	assert.Len(t, c.Constraints, 4)
	assert.NoError(t, c.Validate())

	w.SetLocked(false)
	require.NoError(t, a.Destroy(c))
	links, constraints = w.Counts()
	assert.Zero(t, links)
	assert.Zero(t, constraints)
	assert.Zero(t, c.Len())
}

func TestValidateDetectsBrokenLoops(t *testing.T) {
	base := func() *Chain {
		c, err := NewAssembler(physics.NewMemoryWorld(), testLink, 0).Assemble(square())
		require.NoError(t, err)
		return c
	}

	missing := base()
	missing.Constraints = missing.Constraints[:3]
	assert.ErrorIs(t, missing.Validate(), ErrBrokenLoop)

	outside := base()
	outside.Constraints[2].B = 9
	assert.ErrorIs(t, outside.Validate(), ErrBrokenLoop)

	// two separate 2-cycles: degrees are fine, reachability is not
	split := base()
	split.Constraints = []Constraint{{A: 0, B: 1}, {A: 1, B: 0}, {A: 2, B: 3}, {A: 3, B: 2}}
	assert.ErrorIs(t, split.Validate(), ErrBrokenLoop)

	// a chord gives link 0 three constraints
	chord := base()
	chord.Constraints[1] = Constraint{A: 0, B: 2}
	assert.ErrorIs(t, chord.Validate(), ErrBrokenLoop)
}

func TestAssembleStadium(t *testing.T) {
	profiles := []core.CogProfile{
		{Role: core.FrontChainring, Center: core.Point{}, Radius: 5},
		{Role: core.RearCassette, Center: core.Point{X: 40}, Radius: 5},
	}
	path, err := geo.WrapPath(profiles, geo.WrapParams{Clearance: 1.35, SamplesPerCog: 60, LinkCount: 60})
	require.NoError(t, err)

	w := physics.NewMemoryWorld()
	c, err := NewAssembler(w, testLink, 0).Assemble(path.Points)
	require.NoError(t, err)

	links, constraints := w.Counts()
	assert.Equal(t, 60, links)
	assert.Equal(t, 60, constraints)
	assert.NoError(t, c.Validate())
	assert.InDelta(t, 2*40+2*math.Pi*6.35, c.TotalRestLength(), 0.2)
}
