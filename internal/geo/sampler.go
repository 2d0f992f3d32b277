package geo

import (
	"fmt"
	"math"

	"github.com/bikesim/drivetrain/pkg/core"
)

// SampleDisc returns n points evenly spaced by angle on the circle of the given
// radius around center, starting at angle 0.
func SampleDisc(center core.Point, radius float64, n int) []core.Point {
	points := make([]core.Point, 0, n)
	for i := 0; i < n; i++ {
		angle := 2.0 * math.Pi * float64(i) / float64(n)
		points = append(points, core.Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		})
	}
	return points
}

// SampleProfiles builds the point cloud for a set of cogs. Each cog contributes
// samples points on a circle enlarged by clearance, in profile order.
func SampleProfiles(profiles []core.CogProfile, clearance float64, samples int) ([]core.Point, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoProfiles, ErrInsufficientInput)
	}
	if samples < 1 {
		return nil, fmt.Errorf("%w: got %d samples per cog", ErrInvalidSampleCount, samples)
	}

	cloud := make([]core.Point, 0, len(profiles)*samples)
	for _, p := range profiles {
		// a negative effective radius collapses to the center and is rejected by the hull
		r := math.Max(p.Radius+clearance, 0)
		cloud = append(cloud, SampleDisc(p.Center, r, samples)...)
	}
	return cloud, nil
}
