package valueobjects

import (
	"strings"

	pkgerrors "lifetree-backend/pkg/errors"
)

// PortraitRef is a value object holding the opaque handle to a generated
// portrait image. The core never interprets the handle; it only stores and
// serves it.
type PortraitRef struct {
	handle string
}

// NewPortraitRef creates a portrait reference with validation
func NewPortraitRef(handle string) (PortraitRef, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return PortraitRef{}, pkgerrors.NewValidationError("portrait handle cannot be empty")
	}
	return PortraitRef{handle: handle}, nil
}

// Handle returns the opaque image handle
func (r PortraitRef) Handle() string {
	return r.handle
}

// IsZero checks if no portrait has been attached
func (r PortraitRef) IsZero() bool {
	return r.handle == ""
}

// Equals checks if two references point at the same image
func (r PortraitRef) Equals(other PortraitRef) bool {
	return r.handle == other.handle
}
