package commands

import (
	"fmt"
	"math"
)

// MoveNodeCommand drops a node at a new position. The physics engine takes
// over again on the next tick, starting from rest.
type MoveNodeCommand struct {
	SessionID string  `json:"session_id"`
	NodeID    int     `json:"node_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Validate validates the command
func (c MoveNodeCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if c.NodeID < 0 {
		return fmt.Errorf("node ID cannot be negative")
	}
	if math.IsNaN(c.X) || math.IsInf(c.X, 0) || math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
		return fmt.Errorf("position coordinates must be finite")
	}
	return nil
}
