package valueobjects

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"lifetree-backend/domain/config"
	pkgerrors "lifetree-backend/pkg/errors"
)

// ScenarioProfile is a value object for a node's narrative payload: the
// life change it represents and the circumstances that hold in it. The
// physics engine never reads these fields; they exist for rendering and
// for prompt construction.
type ScenarioProfile struct {
	title              string
	changeDescription  string
	location           string
	relationshipStatus string
	livingSituation    string
	careerStatus       string
	monthlyIncome      float64
}

// NewScenarioProfile creates a profile with validation using default configuration
func NewScenarioProfile(title, changeDescription, location, relationshipStatus, livingSituation, careerStatus string, monthlyIncome float64) (ScenarioProfile, error) {
	return NewScenarioProfileWithConfig(title, changeDescription, location, relationshipStatus, livingSituation, careerStatus, monthlyIncome, config.DefaultDomainConfig())
}

// NewScenarioProfileWithConfig creates a profile with validation and configuration
func NewScenarioProfileWithConfig(title, changeDescription, location, relationshipStatus, livingSituation, careerStatus string, monthlyIncome float64, cfg *config.DomainConfig) (ScenarioProfile, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	title = strings.TrimSpace(title)
	changeDescription = strings.TrimSpace(changeDescription)
	location = strings.TrimSpace(location)
	relationshipStatus = strings.TrimSpace(relationshipStatus)
	livingSituation = strings.TrimSpace(livingSituation)
	careerStatus = strings.TrimSpace(careerStatus)

	titleLength := utf8.RuneCountInString(title)
	if titleLength < cfg.MinTitleLength {
		return ScenarioProfile{}, pkgerrors.NewValidationError(
			fmt.Sprintf("title too short: minimum %d characters required", cfg.MinTitleLength))
	}
	if titleLength > cfg.MaxTitleLength {
		return ScenarioProfile{}, pkgerrors.NewValidationError(
			fmt.Sprintf("title exceeds maximum length of %d characters", cfg.MaxTitleLength))
	}

	for name, field := range map[string]string{
		"change description":  changeDescription,
		"location":            location,
		"relationship status": relationshipStatus,
		"living situation":    livingSituation,
		"career status":       careerStatus,
	} {
		if utf8.RuneCountInString(field) > cfg.MaxFieldLength {
			return ScenarioProfile{}, pkgerrors.NewValidationError(
				fmt.Sprintf("%s exceeds maximum length of %d characters", name, cfg.MaxFieldLength))
		}
	}

	if location == "" && !cfg.AllowEmptyLocation {
		return ScenarioProfile{}, pkgerrors.NewValidationError("location cannot be empty")
	}

	if math.IsNaN(monthlyIncome) || math.IsInf(monthlyIncome, 0) || monthlyIncome < 0 {
		return ScenarioProfile{}, pkgerrors.NewValidationError("monthly income must be a non-negative number")
	}

	return ScenarioProfile{
		title:              title,
		changeDescription:  changeDescription,
		location:           location,
		relationshipStatus: relationshipStatus,
		livingSituation:    livingSituation,
		careerStatus:       careerStatus,
		monthlyIncome:      monthlyIncome,
	}, nil
}

// Title returns the scenario title
func (p ScenarioProfile) Title() string {
	return p.title
}

// ChangeDescription returns the short description of the life change
func (p ScenarioProfile) ChangeDescription() string {
	return p.changeDescription
}

// Location returns where the scenario takes place
func (p ScenarioProfile) Location() string {
	return p.location
}

// RelationshipStatus returns the relationship circumstance
func (p ScenarioProfile) RelationshipStatus() string {
	return p.relationshipStatus
}

// LivingSituation returns the living circumstance
func (p ScenarioProfile) LivingSituation() string {
	return p.livingSituation
}

// CareerStatus returns the career circumstance
func (p ScenarioProfile) CareerStatus() string {
	return p.careerStatus
}

// MonthlyIncome returns the monthly income
func (p ScenarioProfile) MonthlyIncome() float64 {
	return p.monthlyIncome
}

// Equals checks if two profiles are equal
func (p ScenarioProfile) Equals(other ScenarioProfile) bool {
	return p.title == other.title &&
		p.changeDescription == other.changeDescription &&
		p.location == other.location &&
		p.relationshipStatus == other.relationshipStatus &&
		p.livingSituation == other.livingSituation &&
		p.careerStatus == other.careerStatus &&
		p.monthlyIncome == other.monthlyIncome
}

// Summary returns a truncated one-line summary of the scenario
func (p ScenarioProfile) Summary(maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	combined := p.title
	if p.changeDescription != "" {
		combined += ": " + p.changeDescription
	}

	if utf8.RuneCountInString(combined) <= maxLength {
		return combined
	}

	runes := []rune(combined)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
