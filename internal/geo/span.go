package geo

import (
	"fmt"

	"github.com/bikesim/drivetrain/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// CheckSpan rejects clouds whose convex hull is a point or a segment. Builds the
// hull with simplefeatures so the wrap itself never sees such a cloud.
func CheckSpan(cloud []core.Point) error {
	if len(cloud) < 3 {
		return fmt.Errorf("%w: %d points", ErrInsufficientInput, len(cloud))
	}
	for i, p := range cloud {
		if !p.IsFinite() {
			return fmt.Errorf("%w: point %d is not finite", ErrInsufficientInput, i)
		}
	}

	dim := Polyline(cloud).AsGeometry().ConvexHull().Dimension()
	if dim < 2 {
		return fmt.Errorf("%w: cloud spans %d dimensions: %w", ErrInsufficientInput, dim, ErrDegenerateHull)
	}
	return nil
}

// Polyline converts points to an open simplefeatures LineString.
func Polyline(points []core.Point) geom.LineString {
	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
}

// Ring converts points to a closed LineString by repeating the first point.
func Ring(points []core.Point) geom.LineString {
	if len(points) == 0 {
		return geom.LineString{}
	}
	closed := make([]core.Point, 0, len(points)+1)
	closed = append(closed, points...)
	closed = append(closed, points[0])
	return Polyline(closed)
}
