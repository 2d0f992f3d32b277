package geo

import (
	"fmt"

	"github.com/bikesim/drivetrain/pkg/core"
)

// WrapParams controls how cog outlines are turned into a chain path.
type WrapParams struct {
	Clearance     float64
	SamplesPerCog int
	LinkCount     int
}

// Path is the result of one wrap. Only Points outlives a rebuild.
type Path struct {
	Cloud     []core.Point
	Hull      []core.Point
	Points    []core.Point
	Perimeter float64
}

// WrapPath runs sampler, span check, hull and resampler in order. Errors are
// wrapped with the failing stage and keep their sentinel for errors.Is.
func WrapPath(profiles []core.CogProfile, params WrapParams) (Path, error) {
	cloud, err := SampleProfiles(profiles, params.Clearance, params.SamplesPerCog)
	if err != nil {
		return Path{}, fmt.Errorf("sampling profiles: %w", err)
	}

	if err := CheckSpan(cloud); err != nil {
		return Path{}, fmt.Errorf("checking span: %w", err)
	}

	hull, err := ConvexHull(cloud)
	if err != nil {
		return Path{}, fmt.Errorf("building hull: %w", err)
	}

	points, err := Resample(hull, params.LinkCount)
	if err != nil {
		return Path{}, fmt.Errorf("resampling hull: %w", err)
	}

	return Path{
		Cloud:     cloud,
		Hull:      hull,
		Points:    points,
		Perimeter: Perimeter(hull),
	}, nil
}
