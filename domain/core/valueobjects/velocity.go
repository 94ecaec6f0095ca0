package valueobjects

import "math"

// Velocity is a value object for a node's per-step movement vector
type Velocity struct {
	dx float64
	dy float64
}

// NewVelocity creates a velocity vector. Non-finite components collapse to
// the zero vector rather than propagating through the integrator.
func NewVelocity(dx, dy float64) Velocity {
	if !isValidCoordinate(dx) || !isValidCoordinate(dy) {
		return Velocity{}
	}
	return Velocity{dx: dx, dy: dy}
}

// ZeroVelocity returns the zero vector
func ZeroVelocity() Velocity {
	return Velocity{}
}

// DX returns the horizontal component
func (v Velocity) DX() float64 {
	return v.dx
}

// DY returns the vertical component
func (v Velocity) DY() float64 {
	return v.dy
}

// Speed returns the vector magnitude
func (v Velocity) Speed() float64 {
	return math.Sqrt(v.dx*v.dx + v.dy*v.dy)
}

// IsZero checks if both components are exactly zero
func (v Velocity) IsZero() bool {
	return v.dx == 0 && v.dy == 0
}

// Add returns the velocity with an impulse applied. Non-finite impulses
// are dropped, matching the simulation's skip-don't-crash error policy.
func (v Velocity) Add(ix, iy float64) Velocity {
	if !isValidCoordinate(v.dx+ix) || !isValidCoordinate(v.dy+iy) {
		return v
	}
	return Velocity{dx: v.dx + ix, dy: v.dy + iy}
}

// Scale returns the velocity multiplied by a factor
func (v Velocity) Scale(factor float64) Velocity {
	return NewVelocity(v.dx*factor, v.dy*factor)
}

// ClampSpeed caps the magnitude at max, preserving direction
func (v Velocity) ClampSpeed(max float64) Velocity {
	if max <= 0 {
		return Velocity{}
	}
	speed := v.Speed()
	if speed <= max {
		return v
	}
	factor := max / speed
	return Velocity{dx: v.dx * factor, dy: v.dy * factor}
}

// Equals checks if two velocities are equal
func (v Velocity) Equals(other Velocity) bool {
	const epsilon = 1e-9
	return math.Abs(v.dx-other.dx) < epsilon &&
		math.Abs(v.dy-other.dy) < epsilon
}
