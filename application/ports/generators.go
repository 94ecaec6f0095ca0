// Package ports defines the interfaces the application layer depends on.
// Implementations live under infrastructure and are injected through the
// dependency container, so application code never imports them directly.
package ports

import (
	"context"
)

// ScenarioRecord is the flat narrative payload produced by a scenario
// generator, before domain validation turns it into value objects.
type ScenarioRecord struct {
	Title              string  `json:"title"`
	ChangeDescription  string  `json:"change_description"`
	AgeYears           int     `json:"age_years"`
	AgeWeeks           int     `json:"age_weeks"`
	Location           string  `json:"location"`
	RelationshipStatus string  `json:"relationship_status"`
	LivingSituation    string  `json:"living_situation"`
	CareerStatus       string  `json:"career_status"`
	MonthlyIncome      float64 `json:"monthly_income"`
}

// AppearanceRecord is the flat wire form of a subject's appearance, used
// for portrait generation and session bootstrap.
type AppearanceRecord struct {
	HairColor     string `json:"hair_color"`
	HairStyle     string `json:"hair_style"`
	EyeColor      string `json:"eye_color"`
	SkinTone      string `json:"skin_tone"`
	Build         string `json:"build"`
	ClothingStyle string `json:"clothing_style"`
}

// ScenarioGenerator produces candidate life scenarios for one expansion.
//
// Ancestry is ordered root first, with the node being expanded last, so
// implementations can condition each scenario on the full path. The emit
// callback is invoked once per finished record, in slot order, and may be
// called from any goroutine; Generate returns only after every record has
// been emitted, or with an error if the batch cannot be completed.
type ScenarioGenerator interface {
	Generate(ctx context.Context, ancestry []ScenarioRecord, count int, emit func(ScenarioRecord)) error
}

// PortraitGenerator renders a portrait image for a scenario and returns a
// handle the frontend resolves to an image URL.
type PortraitGenerator interface {
	GeneratePortrait(ctx context.Context, req PortraitRequest) (string, error)
}

// PortraitRequest carries the appearance and scenario context a portrait
// is rendered from.
type PortraitRequest struct {
	SessionID  string
	NodeID     int
	Appearance AppearanceRecord
	AgeYears   int
	Scenario   ScenarioRecord
}
