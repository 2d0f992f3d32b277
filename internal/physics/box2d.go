package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/ByteArena/box2d"
	"github.com/bikesim/drivetrain/pkg/core"
)

const (
	cogDensity  = 1.0
	cogFriction = 1.0
)

type box2dCog struct {
	profile core.CogProfile
	body    *box2d.B2Body
	fixture *box2d.B2Fixture
	pin     box2d.B2JointInterface
}

type box2dConstraint struct {
	joint box2d.B2JointInterface
	a, b  BodyID
}

// Box2DWorld runs the drivetrain on a box2d world. Cogs are dynamic discs
// pinned to a static frame body with revolute joints, links are fixed-rotation
// discs and constraints are distance joints.
//
// Not safe for concurrent use; the step loop owns it.
type Box2DWorld struct {
	world *box2d.B2World
	frame *box2d.B2Body

	velocityIterations int
	positionIterations int

	cogs        map[core.CogRole]*box2dCog
	links       map[BodyID]*box2d.B2Body
	constraints map[ConstraintID]box2dConstraint

	nextBody       BodyID
	nextConstraint ConstraintID
}

// NewBox2DWorld creates a world with gravity along -y.
func NewBox2DWorld(params Params) *Box2DWorld {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, params.Gravity))

	frameDef := box2d.MakeB2BodyDef()
	frameDef.Type = box2d.B2BodyType.B2_staticBody
	frame := world.CreateBody(&frameDef)

	w := &Box2DWorld{
		world:              &world,
		frame:              frame,
		velocityIterations: params.VelocityIterations,
		positionIterations: params.PositionIterations,
		cogs:               make(map[core.CogRole]*box2dCog),
		links:              make(map[BodyID]*box2d.B2Body),
		constraints:        make(map[ConstraintID]box2dConstraint),
	}
	if w.velocityIterations <= 0 {
		w.velocityIterations = 8
	}
	if w.positionIterations <= 0 {
		w.positionIterations = 3
	}
	return w
}

func vec(p core.Point) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(p.X, p.Y)
}

func point(v box2d.B2Vec2) core.Point {
	return core.Point{X: v.X, Y: v.Y}
}

func filterData(f Filter) box2d.B2Filter {
	return box2d.B2Filter{CategoryBits: f.Category, MaskBits: f.Mask}
}

func circleFixture(body *box2d.B2Body, radius, density, friction float64, filter Filter) *box2d.B2Fixture {
	shape := box2d.MakeB2CircleShape()
	shape.M_radius = radius

	def := box2d.MakeB2FixtureDef()
	def.Shape = &shape
	def.Density = density
	def.Friction = friction
	def.Filter = filterData(filter)
	return body.CreateFixtureFromDef(&def)
}

// createJoint links a joint into the world. B2World.CreateJoint takes the base
// definition only, which loses the concrete joint type, so the world and body
// joint lists are maintained here through the exported fields.
func (w *Box2DWorld) createJoint(def box2d.B2JointDefInterface) box2d.B2JointInterface {
	j := box2d.B2JointCreate(def)

	j.SetPrev(nil)
	j.SetNext(w.world.M_jointList)
	if w.world.M_jointList != nil {
		w.world.M_jointList.SetPrev(j)
	}
	w.world.M_jointList = j
	w.world.M_jointCount++

	bodyA, bodyB := j.GetBodyA(), j.GetBodyB()

	edgeA := j.GetEdgeA()
	edgeA.Joint = j
	edgeA.Other = bodyB
	edgeA.Prev = nil
	edgeA.Next = bodyA.M_jointList
	if bodyA.M_jointList != nil {
		bodyA.M_jointList.Prev = edgeA
	}
	bodyA.M_jointList = edgeA

	edgeB := j.GetEdgeB()
	edgeB.Joint = j
	edgeB.Other = bodyA
	edgeB.Prev = nil
	edgeB.Next = bodyB.M_jointList
	if bodyB.M_jointList != nil {
		bodyB.M_jointList.Prev = edgeB
	}
	bodyB.M_jointList = edgeB

	if !def.IsCollideConnected() {
		for edge := bodyB.GetContactList(); edge != nil; edge = edge.Next {
			if edge.Other == bodyA {
				edge.Contact.FlagForFiltering()
			}
		}
	}
	return j
}

func (w *Box2DWorld) pinCog(body *box2d.B2Body, center core.Point) box2d.B2JointInterface {
	def := box2d.MakeB2RevoluteJointDef()
	def.Initialize(w.frame, body, vec(center))
	return w.createJoint(&def)
}

func (w *Box2DWorld) AddCog(role core.CogRole, center core.Point, radius float64) error {
	if w.world.IsLocked() {
		return ErrWorldLocked
	}
	if radius <= 0 || !center.IsFinite() {
		return fmt.Errorf("%w: cog %s radius %v", ErrInvalidSpec, role, radius)
	}
	if old, ok := w.cogs[role]; ok {
		// destroying the body drops its pin joint as well
		w.world.DestroyBody(old.body)
	}

	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position = vec(center)
	def.AllowSleep = false
	body := w.world.CreateBody(&def)

	cog := &box2dCog{
		profile: core.CogProfile{Role: role, Center: center, Radius: radius},
		body:    body,
		fixture: circleFixture(body, radius, cogDensity, cogFriction, GroupsetFilter),
	}
	cog.pin = w.pinCog(body, center)
	w.cogs[role] = cog
	return nil
}

func (w *Box2DWorld) cog(role core.CogRole) (*box2dCog, error) {
	cog, ok := w.cogs[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCog, role)
	}
	return cog, nil
}

// SetCogRadius swaps the cog's fixture for one of the new radius.
func (w *Box2DWorld) SetCogRadius(role core.CogRole, radius float64) error {
	cog, err := w.cog(role)
	if err != nil {
		return err
	}
	if w.world.IsLocked() {
		return ErrWorldLocked
	}
	if radius <= 0 {
		return fmt.Errorf("%w: cog %s radius %v", ErrInvalidSpec, role, radius)
	}
	cog.body.DestroyFixture(cog.fixture)
	cog.fixture = circleFixture(cog.body, radius, cogDensity, cogFriction, GroupsetFilter)
	cog.profile.Radius = radius
	return nil
}

// MoveCog teleports the cog and re-pins it at the new center.
func (w *Box2DWorld) MoveCog(role core.CogRole, center core.Point) error {
	cog, err := w.cog(role)
	if err != nil {
		return err
	}
	if w.world.IsLocked() {
		return ErrWorldLocked
	}
	if !center.IsFinite() {
		return fmt.Errorf("%w: cog %s center %v", ErrInvalidSpec, role, center)
	}
	w.world.DestroyJoint(cog.pin)
	cog.body.SetTransform(vec(center), cog.body.GetAngle())
	cog.pin = w.pinCog(cog.body, center)
	cog.profile.Center = center
	return nil
}

func (w *Box2DWorld) CogAngularVelocity(role core.CogRole) (float64, error) {
	cog, err := w.cog(role)
	if err != nil {
		return 0, err
	}
	return cog.body.GetAngularVelocity(), nil
}

func (w *Box2DWorld) ApplyCogTorque(role core.CogRole, torque float64) error {
	cog, err := w.cog(role)
	if err != nil {
		return err
	}
	cog.body.ApplyTorque(torque, true)
	return nil
}

// CogProfiles returns the cogs ordered by role.
func (w *Box2DWorld) CogProfiles() []core.CogProfile {
	profiles := make([]core.CogProfile, 0, len(w.cogs))
	for _, cog := range w.cogs {
		profiles = append(profiles, cog.profile)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Role < profiles[j].Role })
	return profiles
}

func (w *Box2DWorld) CreateLink(spec LinkSpec) (BodyID, error) {
	if err := spec.validate(); err != nil {
		return 0, err
	}
	if w.world.IsLocked() {
		return 0, ErrWorldLocked
	}

	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	def.Position = vec(spec.Position)
	def.FixedRotation = true
	body := w.world.CreateBody(&def)

	density := spec.Mass / (math.Pi * spec.Radius * spec.Radius)
	circleFixture(body, spec.Radius, density, spec.Friction, spec.Filter)

	w.nextBody++
	body.SetUserData(w.nextBody)
	w.links[w.nextBody] = body
	return w.nextBody, nil
}

func (w *Box2DWorld) DestroyLink(id BodyID) error {
	body, ok := w.links[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	if w.world.IsLocked() {
		return ErrWorldLocked
	}
	// box2d deletes attached joints with the body; forget them here too
	for cid, c := range w.constraints {
		if c.a == id || c.b == id {
			delete(w.constraints, cid)
		}
	}
	w.world.DestroyBody(body)
	delete(w.links, id)
	return nil
}

func (w *Box2DWorld) LinkPosition(id BodyID) (core.Point, error) {
	body, ok := w.links[id]
	if !ok {
		return core.Point{}, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return point(body.GetPosition()), nil
}

// CreateDistanceConstraint joins the centers of two links. Positive compliance
// maps onto a soft joint whose spring stiffness is 1/compliance.
func (w *Box2DWorld) CreateDistanceConstraint(spec ConstraintSpec) (ConstraintID, error) {
	a, ok := w.links[spec.A]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, spec.A)
	}
	b, ok := w.links[spec.B]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownBody, spec.B)
	}
	if spec.A == spec.B || spec.RestLength < 0 || spec.Compliance < 0 {
		return 0, fmt.Errorf("%w: constraint %d-%d rest %v", ErrInvalidSpec, spec.A, spec.B, spec.RestLength)
	}
	if w.world.IsLocked() {
		return 0, ErrWorldLocked
	}

	def := box2d.MakeB2DistanceJointDef()
	def.Initialize(a, b, a.GetPosition(), b.GetPosition())
	def.Length = spec.RestLength
	if spec.Compliance > 0 {
		def.FrequencyHz = math.Sqrt(1/(spec.Compliance*a.GetMass())) / (2 * math.Pi)
		def.DampingRatio = 1
	}

	w.nextConstraint++
	w.constraints[w.nextConstraint] = box2dConstraint{
		joint: w.createJoint(&def),
		a:     spec.A,
		b:     spec.B,
	}
	return w.nextConstraint, nil
}

func (w *Box2DWorld) DestroyConstraint(id ConstraintID) error {
	c, ok := w.constraints[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConstraint, id)
	}
	if w.world.IsLocked() {
		return ErrWorldLocked
	}
	w.world.DestroyJoint(c.joint)
	delete(w.constraints, id)
	return nil
}

func (w *Box2DWorld) Step(dt float64) {
	w.world.Step(dt, w.velocityIterations, w.positionIterations)
}

func (w *Box2DWorld) Counts() (links, constraints int) {
	return len(w.links), len(w.constraints)
}

// JointCount reports the joints box2d itself holds, cog pins included.
func (w *Box2DWorld) JointCount() int {
	return w.world.GetJointCount()
}

// BodyCount reports the bodies box2d itself holds, frame and cogs included.
func (w *Box2DWorld) BodyCount() int {
	return w.world.GetBodyCount()
}
