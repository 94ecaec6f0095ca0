package valueobjects

import (
	pkgerrors "lifetree-backend/pkg/errors"
)

// Dimensions is a value object for a node's rendered footprint
type Dimensions struct {
	width  float64
	height float64
}

// NewDimensions creates dimensions with validation
func NewDimensions(width, height float64) (Dimensions, error) {
	if !isValidCoordinate(width) || !isValidCoordinate(height) {
		return Dimensions{}, pkgerrors.NewValidationError("dimensions must be finite numbers")
	}
	if width < 0 || height < 0 {
		return Dimensions{}, pkgerrors.NewValidationError("dimensions cannot be negative")
	}
	return Dimensions{width: width, height: height}, nil
}

// ZeroDimensions returns a zero-sized footprint
func ZeroDimensions() Dimensions {
	return Dimensions{}
}

// Width returns the width
func (d Dimensions) Width() float64 {
	return d.width
}

// Height returns the height
func (d Dimensions) Height() float64 {
	return d.height
}

// IsZero checks if the footprint has no area
func (d Dimensions) IsZero() bool {
	return d.width == 0 && d.height == 0
}

// Scale returns the dimensions multiplied by a non-negative factor.
// Scale(1) returns the receiver exactly, so a fully grown node's current
// size compares equal to its target.
func (d Dimensions) Scale(factor float64) Dimensions {
	if factor <= 0 {
		return Dimensions{}
	}
	if factor == 1 {
		return d
	}
	return Dimensions{width: d.width * factor, height: d.height * factor}
}

// Equals checks if two dimensions are equal
func (d Dimensions) Equals(other Dimensions) bool {
	return d.width == other.width && d.height == other.height
}
