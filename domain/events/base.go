package events

import (
	"time"

	"lifetree-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Tree Events

// TreeInitialized is raised when a tree is seeded with its root node
type TreeInitialized struct {
	BaseEvent
	TreeID    string              `json:"tree_id"`
	RootID    valueobjects.NodeID `json:"root_id"`
	RootTitle string              `json:"root_title"`
}

// NewTreeInitialized creates a TreeInitialized event
func NewTreeInitialized(treeID string, rootID valueobjects.NodeID, rootTitle string, timestamp time.Time) TreeInitialized {
	return TreeInitialized{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "tree.initialized",
			Timestamp:   timestamp,
			Version:     1,
		},
		TreeID:    treeID,
		RootID:    rootID,
		RootTitle: rootTitle,
	}
}

// TreeReset is raised when a session discards its tree for a fresh one
type TreeReset struct {
	BaseEvent
	TreeID string `json:"tree_id"`
}

// NewTreeReset creates a TreeReset event
func NewTreeReset(treeID string, timestamp time.Time) TreeReset {
	return TreeReset{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "tree.reset",
			Timestamp:   timestamp,
			Version:     1,
		},
		TreeID: treeID,
	}
}

// Node Events

// NodeSpawned is raised when a child node and its inbound edge are created
type NodeSpawned struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	ParentID valueobjects.NodeID `json:"parent_id"`
}

// NewNodeSpawned creates a NodeSpawned event
func NewNodeSpawned(treeID string, nodeID, parentID valueobjects.NodeID, timestamp time.Time) NodeSpawned {
	return NodeSpawned{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.spawned",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		ParentID: parentID,
	}
}

// NodeRemoved is raised when a leaf node and its inbound edge are detached,
// which happens only when an expansion is rolled back
type NodeRemoved struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(treeID string, nodeID valueobjects.NodeID, timestamp time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.removed",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
	}
}

// NodeScenarioApplied is raised when a generated record overwrites a
// placeholder's narrative fields
type NodeScenarioApplied struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Title  string              `json:"title"`
}

// NewNodeScenarioApplied creates a NodeScenarioApplied event
func NewNodeScenarioApplied(treeID string, nodeID valueobjects.NodeID, title string, timestamp time.Time) NodeScenarioApplied {
	return NodeScenarioApplied{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.scenario_applied",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
		Title:  title,
	}
}

// NodeEdited is raised when a user edit overwrites a node's narrative fields
type NodeEdited struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	OldTitle string              `json:"old_title"`
	NewTitle string              `json:"new_title"`
}

// NewNodeEdited creates a NodeEdited event
func NewNodeEdited(treeID string, nodeID valueobjects.NodeID, oldTitle, newTitle string, timestamp time.Time) NodeEdited {
	return NodeEdited{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.edited",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:   nodeID,
		OldTitle: oldTitle,
		NewTitle: newTitle,
	}
}

// NodeMoved is raised when a node is dragged to a new position
type NodeMoved struct {
	BaseEvent
	NodeID      valueobjects.NodeID   `json:"node_id"`
	OldPosition valueobjects.Position `json:"old_position"`
	NewPosition valueobjects.Position `json:"new_position"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(treeID string, nodeID valueobjects.NodeID, oldPos, newPos valueobjects.Position, timestamp time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.moved",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID:      nodeID,
		OldPosition: oldPos,
		NewPosition: newPos,
	}
}

// NodePortraitAttached is raised when a portrait handle is stored on a node
type NodePortraitAttached struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
}

// NewNodePortraitAttached creates a NodePortraitAttached event
func NewNodePortraitAttached(treeID string, nodeID valueobjects.NodeID, timestamp time.Time) NodePortraitAttached {
	return NodePortraitAttached{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "node.portrait_attached",
			Timestamp:   timestamp,
			Version:     1,
		},
		NodeID: nodeID,
	}
}

// Expansion Events

// ExpansionStarted is raised when placeholders are spawned and the
// asynchronous generation begins
type ExpansionStarted struct {
	BaseEvent
	ParentID valueobjects.NodeID   `json:"parent_id"`
	BatchID  string                `json:"batch_id"`
	Children []valueobjects.NodeID `json:"children"`
}

// NewExpansionStarted creates an ExpansionStarted event
func NewExpansionStarted(treeID string, parentID valueobjects.NodeID, batchID string, children []valueobjects.NodeID, timestamp time.Time) ExpansionStarted {
	return ExpansionStarted{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "expansion.started",
			Timestamp:   timestamp,
			Version:     1,
		},
		ParentID: parentID,
		BatchID:  batchID,
		Children: children,
	}
}

// ExpansionCompleted is raised when every record of a batch has been applied
type ExpansionCompleted struct {
	BaseEvent
	ParentID valueobjects.NodeID `json:"parent_id"`
	BatchID  string              `json:"batch_id"`
}

// NewExpansionCompleted creates an ExpansionCompleted event
func NewExpansionCompleted(treeID string, parentID valueobjects.NodeID, batchID string, timestamp time.Time) ExpansionCompleted {
	return ExpansionCompleted{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "expansion.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		ParentID: parentID,
		BatchID:  batchID,
	}
}

// ExpansionFailed is raised after a generation failure has been rolled back
type ExpansionFailed struct {
	BaseEvent
	ParentID valueobjects.NodeID `json:"parent_id"`
	BatchID  string              `json:"batch_id"`
	Reason   string              `json:"reason"`
}

// NewExpansionFailed creates an ExpansionFailed event
func NewExpansionFailed(treeID string, parentID valueobjects.NodeID, batchID, reason string, timestamp time.Time) ExpansionFailed {
	return ExpansionFailed{
		BaseEvent: BaseEvent{
			AggregateID: treeID,
			EventType:   "expansion.failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		ParentID: parentID,
		BatchID:  batchID,
		Reason:   reason,
	}
}
