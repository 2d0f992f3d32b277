package geo

import (
	"fmt"
	"math"

	"github.com/bikesim/drivetrain/pkg/core"
)

// Perimeter returns the length of the closed polygon, including the edge from
// the last vertex back to the first.
func Perimeter(polygon []core.Point) float64 {
	var perimeter float64
	for i := range polygon {
		perimeter += polygon[i].Distance(polygon[(i+1)%len(polygon)])
	}
	return perimeter
}

// Resample walks the closed polygon and returns exactly n points spaced
// perimeter/n apart along the boundary. Point 0 is polygon[0].
func Resample(polygon []core.Point, n int) ([]core.Point, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d points", ErrInvalidSampleCount, n)
	}
	if len(polygon) < 2 {
		return nil, fmt.Errorf("%w: %d vertices", ErrDegenerateHull, len(polygon))
	}

	perimeter := Perimeter(polygon)
	if perimeter <= 0 || math.IsNaN(perimeter) || math.IsInf(perimeter, 0) {
		return nil, fmt.Errorf("%w: perimeter %v", ErrDegenerateHull, perimeter)
	}
	spacing := perimeter / float64(n)

	result := make([]core.Point, 0, n)
	result = append(result, polygon[0])

	remaining := spacing
	last := polygon[0]
	idx := 0

	// every iteration either emits a sample or moves to the next vertex, so one
	// lap needs at most n-1 emits plus len(polygon) advances
	maxSteps := n + len(polygon) + 1
	for steps := 0; len(result) < n; steps++ {
		if steps > maxSteps {
			return nil, fmt.Errorf("%w: walk ended with %d of %d points", ErrDegenerateHull, len(result), n)
		}

		nextIdx := (idx + 1) % len(polygon)
		next := polygon[nextIdx]
		edge := last.Distance(next)

		if edge > 0 && remaining <= edge {
			p := last.Lerp(next, remaining/edge)
			result = append(result, p)
			remaining = spacing
			last = p
			continue
		}

		remaining -= edge
		idx = nextIdx
		last = next
	}

	return result, nil
}
