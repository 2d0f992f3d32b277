package physics

import (
	"testing"

	"github.com/bikesim/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox2D(t *testing.T) *Box2DWorld {
	t.Helper()
	w := NewBox2DWorld(Params{Gravity: -100, VelocityIterations: 8, PositionIterations: 3})
	require.NoError(t, w.AddCog(core.FrontChainring, core.Point{}, 5))
	require.NoError(t, w.AddCog(core.RearCassette, core.Point{X: 40}, 5))
	return w
}

func TestBox2DWorldDistanceConstraintHoldsLength(t *testing.T) {
	w := NewBox2DWorld(Params{Gravity: -10})

	a, err := w.CreateLink(testLink(0))
	require.NoError(t, err)
	b, err := w.CreateLink(LinkSpec{Position: core.Point{X: 2, Y: 0}, Radius: 0.5, Mass: 0.01, Friction: 1, Filter: ChainFilter})
	require.NoError(t, err)

	_, err = w.CreateDistanceConstraint(ConstraintSpec{A: a, B: b, RestLength: 2})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		w.Step(1.0 / 60)
	}

	pa, err := w.LinkPosition(a)
	require.NoError(t, err)
	pb, err := w.LinkPosition(b)
	require.NoError(t, err)

	// both fall, the gap stays
	assert.Less(t, pa.Y, 0.0)
	assert.InDelta(t, 2.0, pa.Distance(pb), 0.05)
}

func TestBox2DWorldCounts(t *testing.T) {
	w := newTestBox2D(t)
	// frame + two cogs, two pins
	assert.Equal(t, 3, w.BodyCount())
	assert.Equal(t, 2, w.JointCount())

	a, _ := w.CreateLink(testLink(-10))
	b, _ := w.CreateLink(testLink(-12))
	c, err := w.CreateDistanceConstraint(ConstraintSpec{A: a, B: b, RestLength: 2})
	require.NoError(t, err)

	links, constraints := w.Counts()
	assert.Equal(t, 2, links)
	assert.Equal(t, 1, constraints)
	assert.Equal(t, 3, w.JointCount())

	require.NoError(t, w.DestroyConstraint(c))
	require.NoError(t, w.DestroyLink(a))
	require.NoError(t, w.DestroyLink(b))
	assert.Equal(t, 3, w.BodyCount())
	assert.Equal(t, 2, w.JointCount())

	assert.ErrorIs(t, w.DestroyConstraint(c), ErrUnknownConstraint)
	assert.ErrorIs(t, w.DestroyLink(a), ErrUnknownBody)
}

func TestBox2DWorldCogEdits(t *testing.T) {
	w := newTestBox2D(t)

	require.NoError(t, w.SetCogRadius(core.RearCassette, 3))
	require.NoError(t, w.MoveCog(core.RearCassette, core.Point{X: 35, Y: 2}))
	assert.Equal(t, 2, w.JointCount())

	profiles := w.CogProfiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, core.CogProfile{Role: core.RearCassette, Center: core.Point{X: 35, Y: 2}, Radius: 3}, profiles[1])

	// pinned cogs do not fall
	for i := 0; i < 30; i++ {
		w.Step(1.0 / 60)
	}
	pos := point(w.cogs[core.RearCassette].body.GetPosition())
	assert.InDelta(t, 35, pos.X, 0.05)
	assert.InDelta(t, 2, pos.Y, 0.05)

	assert.ErrorIs(t, w.MoveCog(core.CogRole(9), core.Point{}), ErrUnknownCog)
}

func TestBox2DWorldDrive(t *testing.T) {
	w := newTestBox2D(t)
	drive := Drive{Torque: 2000, MaxRPM: 90}

	for i := 0; i < 10; i++ {
		_, err := drive.Apply(w)
		require.NoError(t, err)
		w.Step(1.0 / 60)
	}

	angVel, err := w.CogAngularVelocity(core.FrontChainring)
	require.NoError(t, err)
	assert.Greater(t, core.AngularVelocityToRPM(angVel), 0.0)
}
