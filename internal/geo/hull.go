package geo

import (
	"fmt"

	"github.com/bikesim/drivetrain/pkg/core"
)

// ConvexHull computes the convex hull of cloud by gift wrapping (Jarvis march).
//
// The hull starts at the lowest of the minimum-x points and is returned
// counter-clockwise without repeating the start vertex. Collinear candidates
// resolve to the farthest point so that runs of collinear samples, e.g. from
// tangent circles, do not leave near-duplicate vertices on an edge.
//
// Runs in O(n·h) for n points and h hull vertices.
func ConvexHull(cloud []core.Point) ([]core.Point, error) {
	if len(cloud) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrInsufficientInput, len(cloud))
	}

	leftmost := cloud[0]
	for _, p := range cloud[1:] {
		if p.X < leftmost.X || (p.X == leftmost.X && p.Y < leftmost.Y) {
			leftmost = p
		}
	}

	hull := make([]core.Point, 0, 16)
	current := leftmost

	for {
		hull = append(hull, current)
		// a hull can never have more vertices than the cloud has points
		if len(hull) > len(cloud) {
			return nil, fmt.Errorf("%w: wrap did not close after %d vertices", ErrDegenerateHull, len(hull))
		}

		next := current
		found := false
		for _, p := range cloud {
			if p == current {
				continue
			}
			if !found {
				next = p
				found = true
				continue
			}

			// p clockwise of current->next means next cannot be a CCW hull edge
			turn := core.Cross(current, next, p)
			if turn < 0 || (turn == 0 && current.Distance(p) > current.Distance(next)) {
				next = p
			}
		}

		if !found {
			return nil, fmt.Errorf("%w: all points coincide: %w", ErrInsufficientInput, ErrDegenerateHull)
		}
		if next == leftmost {
			break
		}
		current = next
	}

	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: %d vertices", ErrDegenerateHull, len(hull))
	}
	return hull, nil
}
