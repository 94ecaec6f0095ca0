package commands

import "fmt"

// DestroySessionCommand stops a session's simulation loop, cancels its
// in-flight generation work, and removes it from the registry.
type DestroySessionCommand struct {
	SessionID string `json:"session_id"`
}

// Validate validates the command
func (c DestroySessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	return nil
}
