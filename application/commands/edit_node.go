package commands

import "fmt"

// EditNodeCommand applies a partial edit to one node's scenario content.
// Nil fields are left unchanged. Editing a placeholder that is still
// waiting for its generated record claims the slot, and the record is
// dropped when it arrives.
type EditNodeCommand struct {
	SessionID          string   `json:"session_id"`
	NodeID             int      `json:"node_id"`
	Title              *string  `json:"title,omitempty"`
	ChangeDescription  *string  `json:"change_description,omitempty"`
	Location           *string  `json:"location,omitempty"`
	RelationshipStatus *string  `json:"relationship_status,omitempty"`
	LivingSituation    *string  `json:"living_situation,omitempty"`
	CareerStatus       *string  `json:"career_status,omitempty"`
	MonthlyIncome      *float64 `json:"monthly_income,omitempty"`
	AgeYears           *int     `json:"age_years,omitempty"`
	AgeWeeks           *int     `json:"age_weeks,omitempty"`
}

// Validate validates the command
func (c EditNodeCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if c.NodeID < 0 {
		return fmt.Errorf("node ID cannot be negative")
	}
	if c.Title == nil && c.ChangeDescription == nil && c.Location == nil &&
		c.RelationshipStatus == nil && c.LivingSituation == nil && c.CareerStatus == nil &&
		c.MonthlyIncome == nil && c.AgeYears == nil && c.AgeWeeks == nil {
		return fmt.Errorf("at least one field must be provided")
	}
	return nil
}
