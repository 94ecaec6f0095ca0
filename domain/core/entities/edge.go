package entities

import (
	"math"
	"time"

	"lifetree-backend/domain/core/valueobjects"
	pkgerrors "lifetree-backend/pkg/errors"
)

// Edge is the directed parent-to-child connection created atomically with
// its child node. Its rest length animates from zero toward targetLength,
// which is fixed at creation to the rest length configured at that moment;
// later tuning changes affect only edges created afterwards.
type Edge struct {
	// Private fields ensure encapsulation
	parentID      valueobjects.NodeID
	childID       valueobjects.NodeID
	currentLength float64
	targetLength  float64
	createdAt     time.Time
}

// NewEdge creates an edge with its rest-length animation at zero.
func NewEdge(parentID, childID valueobjects.NodeID, targetLength float64) (*Edge, error) {
	if parentID.Equals(childID) {
		return nil, pkgerrors.NewValidationError("edge cannot connect a node to itself")
	}
	if targetLength < 0 || math.IsNaN(targetLength) || math.IsInf(targetLength, 0) {
		return nil, pkgerrors.NewValidationError("edge target length must be a non-negative finite number")
	}

	return &Edge{
		parentID:      parentID,
		childID:       childID,
		currentLength: 0,
		targetLength:  targetLength,
		createdAt:     time.Now(),
	}, nil
}

// ParentID returns the edge's source node
func (e *Edge) ParentID() valueobjects.NodeID {
	return e.parentID
}

// ChildID returns the edge's target node
func (e *Edge) ChildID() valueobjects.NodeID {
	return e.childID
}

// CurrentLength returns the animated rest length the spring pulls toward
func (e *Edge) CurrentLength() float64 {
	return e.currentLength
}

// TargetLength returns the final rest length fixed at creation
func (e *Edge) TargetLength() float64 {
	return e.targetLength
}

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time {
	return e.createdAt
}

// IsGrown reports whether the rest-length animation has completed
func (e *Edge) IsGrown() bool {
	return e.currentLength >= e.targetLength
}

// AdvanceGrowth extends the animated rest length at the rate that completes
// the animation in durationSeconds. The length never decreases and never
// exceeds the target.
func (e *Edge) AdvanceGrowth(elapsedSeconds, durationSeconds float64) {
	if elapsedSeconds <= 0 || e.currentLength >= e.targetLength {
		return
	}

	if durationSeconds <= 0 {
		e.currentLength = e.targetLength
		return
	}

	e.currentLength += (e.targetLength / durationSeconds) * elapsedSeconds
	if e.currentLength > e.targetLength {
		e.currentLength = e.targetLength
	}
}
