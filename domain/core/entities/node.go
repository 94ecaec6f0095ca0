package entities

import (
	"time"

	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/domain/events"
	pkgerrors "lifetree-backend/pkg/errors"
)

// Node is the main entity representing one life scenario in the tree.
// This is a rich domain model with encapsulated business logic: kinematic
// state is mutated only through the physics methods, narrative state only
// through the scenario methods.
type Node struct {
	// Private fields ensure encapsulation
	id             valueobjects.NodeID
	treeID         string
	parentID       *valueobjects.NodeID
	position       valueobjects.Position
	velocity       valueobjects.Velocity
	targetSize     valueobjects.Dimensions
	currentSize    valueobjects.Dimensions
	growthProgress float64
	growing        bool
	profile        valueobjects.ScenarioProfile
	age            valueobjects.Age
	appearance     valueobjects.Appearance
	portrait       valueobjects.PortraitRef
	expanded       bool
	createdAt      time.Time
	updatedAt      time.Time
	version        int

	// Domain events that occurred during this entity's lifetime
	events []events.DomainEvent
}

// NewRootNode creates the node a tree is seeded with. The root spawns fully
// grown: sizes at target, growth already complete, pinned at the origin by
// the engine every step.
func NewRootNode(
	id valueobjects.NodeID,
	treeID string,
	profile valueobjects.ScenarioProfile,
	age valueobjects.Age,
	appearance valueobjects.Appearance,
	size valueobjects.Dimensions,
) (*Node, error) {
	if treeID == "" {
		return nil, pkgerrors.NewValidationError("treeID cannot be empty")
	}
	if size.IsZero() {
		return nil, pkgerrors.NewValidationError("root node requires a non-zero size")
	}

	now := time.Now()
	return &Node{
		id:             id,
		treeID:         treeID,
		parentID:       nil,
		position:       valueobjects.Origin(),
		velocity:       valueobjects.ZeroVelocity(),
		targetSize:     size,
		currentSize:    size,
		growthProgress: 1,
		growing:        false,
		profile:        profile,
		age:            age,
		appearance:     appearance,
		expanded:       false,
		createdAt:      now,
		updatedAt:      now,
		version:        1,
		events:         []events.DomainEvent{},
	}, nil
}

// NewChildNode creates a placeholder child at the given seed position. It
// starts at zero size and zero growth progress; the engine animates it
// toward targetSize, and a later scenario record replaces the interim
// profile copied from the parent.
func NewChildNode(
	id valueobjects.NodeID,
	treeID string,
	parentID valueobjects.NodeID,
	position valueobjects.Position,
	interim valueobjects.ScenarioProfile,
	age valueobjects.Age,
	appearance valueobjects.Appearance,
	targetSize valueobjects.Dimensions,
) (*Node, error) {
	if treeID == "" {
		return nil, pkgerrors.NewValidationError("treeID cannot be empty")
	}
	if targetSize.IsZero() {
		return nil, pkgerrors.NewValidationError("child node requires a non-zero target size")
	}

	pid := parentID
	now := time.Now()
	return &Node{
		id:             id,
		treeID:         treeID,
		parentID:       &pid,
		position:       position,
		velocity:       valueobjects.ZeroVelocity(),
		targetSize:     targetSize,
		currentSize:    valueobjects.ZeroDimensions(),
		growthProgress: 0,
		growing:        true,
		profile:        interim,
		age:            age,
		appearance:     appearance,
		expanded:       false,
		createdAt:      now,
		updatedAt:      now,
		version:        1,
		events:         []events.DomainEvent{},
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// TreeID returns the ID of the tree this node belongs to
func (n *Node) TreeID() string {
	return n.treeID
}

// ParentID returns the parent's identifier, or nil for the root
func (n *Node) ParentID() *valueobjects.NodeID {
	if n.parentID == nil {
		return nil
	}
	// Return a copy to maintain encapsulation
	pid := *n.parentID
	return &pid
}

// IsRoot reports whether this node has no parent
func (n *Node) IsRoot() bool {
	return n.parentID == nil
}

// Position returns the node's current position
func (n *Node) Position() valueobjects.Position {
	return n.position
}

// Velocity returns the node's current velocity
func (n *Node) Velocity() valueobjects.Velocity {
	return n.velocity
}

// TargetSize returns the size the node grows toward; fixed at creation
func (n *Node) TargetSize() valueobjects.Dimensions {
	return n.targetSize
}

// CurrentSize returns the node's animated size
func (n *Node) CurrentSize() valueobjects.Dimensions {
	return n.currentSize
}

// GrowthProgress returns the growth animation progress in [0,1]
func (n *Node) GrowthProgress() float64 {
	return n.growthProgress
}

// IsGrowing reports whether the growth animation is still running
func (n *Node) IsGrowing() bool {
	return n.growing
}

// Profile returns the node's scenario profile
func (n *Node) Profile() valueobjects.ScenarioProfile {
	return n.profile
}

// Age returns the scenario age
func (n *Node) Age() valueobjects.Age {
	return n.age
}

// Appearance returns the inherited physical appearance descriptors
func (n *Node) Appearance() valueobjects.Appearance {
	return n.appearance
}

// Portrait returns the attached portrait reference; zero when none
func (n *Node) Portrait() valueobjects.PortraitRef {
	return n.portrait
}

// IsExpanded reports whether this node has already been expanded.
// Re-expansion is gated on this flag, not on child count.
func (n *Node) IsExpanded() bool {
	return n.expanded
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// Version returns the node's version for optimistic concurrency
func (n *Node) Version() int {
	return n.version
}

// AdvanceGrowth moves the growth animation forward by elapsedSeconds.
// Progress never decreases and current size tracks target size linearly;
// once progress reaches 1 the node stops growing permanently.
func (n *Node) AdvanceGrowth(elapsedSeconds, durationSeconds float64) {
	if !n.growing || elapsedSeconds <= 0 {
		return
	}

	if durationSeconds <= 0 {
		n.growthProgress = 1
	} else {
		n.growthProgress += elapsedSeconds / durationSeconds
	}
	if n.growthProgress >= 1 {
		n.growthProgress = 1
		n.growing = false
	}

	n.currentSize = n.targetSize.Scale(n.growthProgress)
}

// ApplyImpulse adds an instantaneous velocity change. Non-finite impulses
// are dropped by the velocity value object.
func (n *Node) ApplyImpulse(ix, iy float64) {
	n.velocity = n.velocity.Add(ix, iy)
}

// Integrate applies friction, clamps speed, and advances the position by
// one unit timestep.
func (n *Node) Integrate(friction, maxVelocity float64) {
	n.velocity = n.velocity.Scale(friction).ClampSpeed(maxVelocity)
	n.position = n.position.Translate(n.velocity.DX(), n.velocity.DY())
}

// PinTo forces the node to a fixed position and cancels all motion. The
// engine pins every root here after each integration pass.
func (n *Node) PinTo(position valueobjects.Position) {
	n.position = position
	n.velocity = valueobjects.ZeroVelocity()
}

// MoveTo repositions the node on behalf of the user and cancels its motion
// so the layout does not immediately fight the drop point.
func (n *Node) MoveTo(position valueobjects.Position) error {
	if position.Equals(n.position) {
		return nil // No movement needed
	}

	oldPosition := n.position
	n.position = position
	n.velocity = valueobjects.ZeroVelocity()
	n.updatedAt = time.Now()

	n.addEvent(events.NewNodeMoved(n.treeID, n.id, oldPosition, position, n.updatedAt))

	return nil
}

// ApplyScenario overwrites the interim profile with a generated record.
// The age is expected to be clamped against the parent before it reaches
// the entity.
func (n *Node) ApplyScenario(profile valueobjects.ScenarioProfile, age valueobjects.Age, appearance valueobjects.Appearance) error {
	n.profile = profile
	n.age = age
	n.appearance = appearance
	n.updatedAt = time.Now()
	n.version++

	n.addEvent(events.NewNodeScenarioApplied(n.treeID, n.id, profile.Title(), n.updatedAt))

	return nil
}

// EditProfile applies a user edit to the narrative fields.
func (n *Node) EditProfile(profile valueobjects.ScenarioProfile) error {
	if profile.Equals(n.profile) {
		return nil // No change needed
	}

	oldTitle := n.profile.Title()
	n.profile = profile
	n.updatedAt = time.Now()
	n.version++

	n.addEvent(events.NewNodeEdited(n.treeID, n.id, oldTitle, profile.Title(), n.updatedAt))

	return nil
}

// SetPortrait attaches a generated portrait handle to the node.
func (n *Node) SetPortrait(ref valueobjects.PortraitRef) error {
	if ref.IsZero() {
		return pkgerrors.NewValidationError("portrait reference cannot be empty")
	}

	n.portrait = ref
	n.updatedAt = time.Now()

	n.addEvent(events.NewNodePortraitAttached(n.treeID, n.id, n.updatedAt))

	return nil
}

// MarkExpanded sets the re-expansion gate. A node that is already expanded
// rejects a second expansion.
func (n *Node) MarkExpanded() error {
	if n.expanded {
		return pkgerrors.ErrNodeAlreadyExpanded
	}

	n.expanded = true
	n.updatedAt = time.Now()
	n.version++

	return nil
}

// RevertExpansion clears the re-expansion gate during batch rollback,
// restoring the node's pre-expansion state so a retry is permitted.
func (n *Node) RevertExpansion() {
	if !n.expanded {
		return
	}

	n.expanded = false
	n.updatedAt = time.Now()
	n.version++
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Node) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Node) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (n *Node) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}
