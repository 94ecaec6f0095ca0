// Package commands defines the write-side operations of the service and
// their validation rules.
package commands

import (
	"fmt"

	"lifetree-backend/application/ports"
)

// CreateSessionCommand boots a new simulation session seeded with the
// caller's current life situation. Blank fields fall back to configured
// defaults.
type CreateSessionCommand struct {
	Title              string                 `json:"title"`
	AgeYears           int                    `json:"age_years"`
	AgeWeeks           int                    `json:"age_weeks"`
	Location           string                 `json:"location"`
	RelationshipStatus string                 `json:"relationship_status"`
	LivingSituation    string                 `json:"living_situation"`
	CareerStatus       string                 `json:"career_status"`
	MonthlyIncome      float64                `json:"monthly_income"`
	Appearance         ports.AppearanceRecord `json:"appearance"`
}

// Validate validates the command
func (c CreateSessionCommand) Validate() error {
	if c.AgeYears < 0 {
		return fmt.Errorf("age years cannot be negative")
	}
	if c.AgeWeeks < 0 || c.AgeWeeks > 51 {
		return fmt.Errorf("age weeks must be in [0,51]")
	}
	if c.MonthlyIncome < 0 {
		return fmt.Errorf("monthly income cannot be negative")
	}
	return nil
}

// Seed converts the command into the session's root seed.
func (c CreateSessionCommand) Seed() ports.ScenarioRecord {
	return ports.ScenarioRecord{
		Title:              c.Title,
		AgeYears:           c.AgeYears,
		AgeWeeks:           c.AgeWeeks,
		Location:           c.Location,
		RelationshipStatus: c.RelationshipStatus,
		LivingSituation:    c.LivingSituation,
		CareerStatus:       c.CareerStatus,
		MonthlyIncome:      c.MonthlyIncome,
	}
}
