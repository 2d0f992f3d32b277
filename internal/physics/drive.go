package physics

import (
	"math"

	"github.com/bikesim/drivetrain/pkg/core"
)

// Drive pedals the front chainring: a constant torque while the crank is below
// its rpm limit, nothing above it.
type Drive struct {
	Torque float64
	MaxRPM float64
}

// Apply pushes the crank for one step. It reports whether torque was applied.
func (d Drive) Apply(w World) (bool, error) {
	angVel, err := w.CogAngularVelocity(core.FrontChainring)
	if err != nil {
		return false, err
	}
	if math.Abs(core.AngularVelocityToRPM(angVel)) > d.MaxRPM {
		return false, nil
	}
	// negative torque spins clockwise, which reads as positive rpm
	if err := w.ApplyCogTorque(core.FrontChainring, -d.Torque); err != nil {
		return false, err
	}
	return true, nil
}
