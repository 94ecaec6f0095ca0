package commands

import "fmt"

// ResetSessionCommand discards a session's tree and every in-flight
// expansion batch, and reseeds the tree from the original root scenario.
type ResetSessionCommand struct {
	SessionID string `json:"session_id"`
}

// Validate validates the command
func (c ResetSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	return nil
}
