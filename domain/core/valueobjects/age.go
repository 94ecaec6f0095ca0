package valueobjects

import (
	"fmt"

	pkgerrors "lifetree-backend/pkg/errors"
)

// weeksPerYear is the rollover point for the week counter
const weeksPerYear = 52

// Age is a value object for a scenario's age, counted in whole years plus
// weeks into the current year
type Age struct {
	years int
	weeks int
}

// NewAge creates an age with validation
func NewAge(years, weeks int) (Age, error) {
	if years < 0 {
		return Age{}, pkgerrors.NewValidationError("age years cannot be negative")
	}
	if weeks < 0 || weeks >= weeksPerYear {
		return Age{}, pkgerrors.NewValidationError(
			fmt.Sprintf("age weeks must be in [0,%d]", weeksPerYear-1))
	}
	return Age{years: years, weeks: weeks}, nil
}

// AgeFromTotalWeeks creates an age from a total week count
func AgeFromTotalWeeks(total int) (Age, error) {
	if total < 0 {
		return Age{}, pkgerrors.NewValidationError("total weeks cannot be negative")
	}
	return Age{years: total / weeksPerYear, weeks: total % weeksPerYear}, nil
}

// Years returns the whole-year component
func (a Age) Years() int {
	return a.years
}

// Weeks returns the weeks-into-year component
func (a Age) Weeks() int {
	return a.weeks
}

// TotalWeeks returns the age as a total week count
func (a Age) TotalWeeks() int {
	return a.years*weeksPerYear + a.weeks
}

// Before checks if this age precedes another
func (a Age) Before(other Age) bool {
	return a.TotalWeeks() < other.TotalWeeks()
}

// Equals checks if two ages are equal
func (a Age) Equals(other Age) bool {
	return a.years == other.years && a.weeks == other.weeks
}

// NextWeek returns the age advanced by one week, rolling into a new year
// at the week boundary
func (a Age) NextWeek() Age {
	weeks := a.weeks + 1
	if weeks >= weeksPerYear {
		return Age{years: a.years + 1, weeks: 0}
	}
	return Age{years: a.years, weeks: weeks}
}

// ClampedToAfter returns this age unless it precedes the given parent age,
// in which case it is corrected forward to parent plus one week. Generator
// output that would make a child younger than its parent is repaired this
// way rather than rejected.
func (a Age) ClampedToAfter(parent Age) Age {
	if a.Before(parent) {
		return parent.NextWeek()
	}
	return a
}

// String renders the age as "22y3w"
func (a Age) String() string {
	return fmt.Sprintf("%dy%dw", a.years, a.weeks)
}
