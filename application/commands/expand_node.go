package commands

import "fmt"

// ExpandNodeCommand asks for a node to be expanded into a batch of
// generated child scenarios.
type ExpandNodeCommand struct {
	SessionID string `json:"session_id"`
	NodeID    int    `json:"node_id"`
}

// Validate validates the command
func (c ExpandNodeCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if c.NodeID < 0 {
		return fmt.Errorf("node ID cannot be negative")
	}
	return nil
}
