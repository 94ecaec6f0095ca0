package valueobjects

import (
	"math"

	pkgerrors "lifetree-backend/pkg/errors"
)

// Position is a value object representing node coordinates in 2D world space
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{x: x, y: y}, nil
}

// Origin returns the position at (0,0), where the tree root is pinned
func Origin() Position {
	return Position{}
}

// X returns the X coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the Y coordinate
func (p Position) Y() float64 {
	return p.y
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	dx := p.x - other.x
	dy := p.y - other.y
	return math.Sqrt(dx*dx + dy*dy)
}

// VectorTo returns the component offsets from this position to another
func (p Position) VectorTo(other Position) (float64, float64) {
	return other.x - p.x, other.y - p.y
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.x-other.x) < epsilon &&
		math.Abs(p.y-other.y) < epsilon
}

// IsOrigin checks if the position is exactly (0,0)
func (p Position) IsOrigin() bool {
	return p.x == 0 && p.y == 0
}

// Translate moves the position by the given offsets. A non-finite offset
// leaves the position unchanged so a corrupted force sample cannot poison
// the simulation state.
func (p Position) Translate(dx, dy float64) Position {
	if !isValidCoordinate(p.x+dx) || !isValidCoordinate(p.y+dy) {
		return p
	}
	return Position{x: p.x + dx, y: p.y + dy}
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
