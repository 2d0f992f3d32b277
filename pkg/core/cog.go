// pkg/core/cog.go
package core

import (
	"fmt"
	"math"
	"strings"
)

// CogRole identifies which mount a cog sits on. The set is closed.
type CogRole uint8

const (
	FrontChainring CogRole = iota
	RearCassette
)

// CogRoles lists every role in mount order.
var CogRoles = []CogRole{FrontChainring, RearCassette}

func (r CogRole) String() string {
	switch r {
	case FrontChainring:
		return "front"
	case RearCassette:
		return "rear"
	default:
		return fmt.Sprintf("cog(%d)", uint8(r))
	}
}

// ParseCogRole accepts "front"/"chainring" and "rear"/"cassette", case-insensitive.
func ParseCogRole(s string) (CogRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "chainring", "frontchainring":
		return FrontChainring, nil
	case "rear", "cassette", "rearcassette":
		return RearCassette, nil
	default:
		return 0, fmt.Errorf("unknown cog role %q", s)
	}
}

// CogProfile is the circular outline of one cog as read from the physics state.
type CogProfile struct {
	Role   CogRole `json:"role"`
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// AngularVelocityToRPM converts rad/s to crank rpm. Clockwise rotation
// (negative angular velocity) is forward pedalling and yields positive rpm.
func AngularVelocityToRPM(angVel float64) float64 {
	return -angVel * 60.0 / (2.0 * math.Pi)
}

// RPMToAngularVelocity is the inverse of AngularVelocityToRPM.
func RPMToAngularVelocity(rpm float64) float64 {
	return -rpm / 60.0 * (2.0 * math.Pi)
}
