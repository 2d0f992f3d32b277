// Package geo turns cog outlines into the closed path a chain is laid along.
// The stages are pure functions so a rebuild can compute the whole path before
// it touches the physics world.
package geo

import "errors"

var (
	// ErrNoProfiles is returned when there is no cog to wrap. It always comes
	// wrapped with ErrInsufficientInput
	ErrNoProfiles = errors.New("geo: no cog profiles supplied")

	// ErrInvalidSampleCount is returned for a non-positive sample or link count
	ErrInvalidSampleCount = errors.New("geo: sample count must be at least 1")

	// ErrInsufficientInput is returned when the point cloud has fewer than 3
	// distinct, non-collinear points
	ErrInsufficientInput = errors.New("geo: insufficient input for a hull")

	// ErrDegenerateHull is returned when the hull has fewer than 3 vertices or a
	// zero perimeter
	ErrDegenerateHull = errors.New("geo: degenerate hull")
)
