package validators

import (
	"math"
	"strings"

	"lifetree-backend/domain/config"
	"lifetree-backend/domain/core/valueobjects"
	"lifetree-backend/pkg/errors"
)

// ScenarioRecordValidator admits generated scenario records into the domain.
// Narrative fields are validated against the configured limits; ages are
// validated structurally and then clamped against the parent so a child
// scenario never happens before the scenario it branched from.
type ScenarioRecordValidator struct {
	titleMinLength int
	titleMaxLength int
	fieldMaxLength int
	weeksPerYear   int
}

// NewScenarioRecordValidator creates a validator bound to the domain limits
func NewScenarioRecordValidator(cfg *config.DomainConfig) *ScenarioRecordValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ScenarioRecordValidator{
		titleMinLength: cfg.MinTitleLength,
		titleMaxLength: cfg.MaxTitleLength,
		fieldMaxLength: cfg.MaxFieldLength,
		weeksPerYear:   52,
	}
}

// ValidateNarrativeFields validates the free-text fields of a record and
// collects every violation instead of stopping at the first.
func (v *ScenarioRecordValidator) ValidateNarrativeFields(
	title, changeDescription, location, relationshipStatus, livingSituation, careerStatus string,
) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.validateTitle(title); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("title", err.Error())
		}
	}

	fields := map[string]string{
		"changeDescription":  changeDescription,
		"location":           location,
		"relationshipStatus": relationshipStatus,
		"livingSituation":    livingSituation,
		"careerStatus":       careerStatus,
	}
	for name, value := range fields {
		if err := v.validateField(name, value); err != nil {
			if domainErr, ok := err.(*errors.DomainError); ok {
				validationErrors.AddError(domainErr)
			} else {
				validationErrors.Add(name, err.Error())
			}
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// ValidateIncome validates a monthly income figure
func (v *ScenarioRecordValidator) ValidateIncome(income float64) error {
	if math.IsNaN(income) || math.IsInf(income, 0) {
		return errors.ErrScenarioIncomeNegative.
			WithDetail("income", "not a finite number")
	}
	if income < 0 {
		return errors.ErrScenarioIncomeNegative.
			WithDetail("income", income)
	}
	return nil
}

// NormalizeAge validates the raw age figures and clamps the result forward
// to one week past the parent when the record regresses in time. Structural
// violations (negative years, weeks outside a year) reject the record;
// regression does not.
func (v *ScenarioRecordValidator) NormalizeAge(years, weeks int, parent valueobjects.Age) (valueobjects.Age, error) {
	if years < 0 {
		return valueobjects.Age{}, errors.ErrScenarioAgeInvalid.
			WithDetail("years", years)
	}
	if weeks < 0 || weeks >= v.weeksPerYear {
		return valueobjects.Age{}, errors.ErrScenarioAgeInvalid.
			WithDetail("weeks", weeks).
			WithDetail("max_weeks", v.weeksPerYear-1)
	}

	age, err := valueobjects.NewAge(years, weeks)
	if err != nil {
		return valueobjects.Age{}, errors.ErrScenarioAgeInvalid.WithCause(err)
	}

	return age.ClampedToAfter(parent), nil
}

// ValidatePosition bounds user-supplied drag coordinates
func (v *ScenarioRecordValidator) ValidatePosition(x, y float64) error {
	const maxCoordinate = 1000000.0
	const minCoordinate = -1000000.0

	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return errors.ErrInvalidNodePosition.
			WithDetail("x", x).
			WithDetail("y", y)
	}

	if x < minCoordinate || x > maxCoordinate ||
		y < minCoordinate || y > maxCoordinate {
		return errors.ErrInvalidNodePosition.
			WithDetail("x", x).
			WithDetail("y", y).
			WithDetail("min", minCoordinate).
			WithDetail("max", maxCoordinate)
	}

	return nil
}

// validateTitle validates the scenario title
func (v *ScenarioRecordValidator) validateTitle(title string) error {
	title = strings.TrimSpace(title)

	if len(title) < v.titleMinLength {
		return errors.ErrNodeTitleRequired
	}

	if len(title) > v.titleMaxLength {
		return errors.ErrNodeTitleTooLong.
			WithDetail("actual_length", len(title)).
			WithDetail("max_length", v.titleMaxLength)
	}

	if containsMarkup(title) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"MALICIOUS_CONTENT",
			"Title contains potentially malicious code",
		).WithDetail("field", "title")
	}

	return nil
}

// validateField validates one optional narrative field
func (v *ScenarioRecordValidator) validateField(name, value string) error {
	if len(value) > v.fieldMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"FIELD_TOO_LONG",
			"Field exceeds maximum length",
		).WithDetail("field", name).
			WithDetail("actual_length", len(value)).
			WithDetail("max_length", v.fieldMaxLength)
	}

	if containsMarkup(value) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"MALICIOUS_CONTENT",
			"Field contains potentially malicious code",
		).WithDetail("field", name)
	}

	return nil
}

// containsMarkup checks free text for script injection attempts
func containsMarkup(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<script>") || strings.Contains(lower, "javascript:")
}
