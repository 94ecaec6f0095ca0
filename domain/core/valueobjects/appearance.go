package valueobjects

import (
	"strings"
	"unicode/utf8"

	pkgerrors "lifetree-backend/pkg/errors"
)

// maxDescriptorLength bounds each appearance descriptor
const maxDescriptorLength = 100

// Appearance is a value object for the fixed set of physical descriptors a
// scenario carries. The descriptors feed portrait prompts and the character
// rig; the simulation itself never inspects them.
type Appearance struct {
	hairColor     string
	hairStyle     string
	eyeColor      string
	skinTone      string
	build         string
	clothingStyle string
}

// NewAppearance creates an appearance descriptor set with validation
func NewAppearance(hairColor, hairStyle, eyeColor, skinTone, build, clothingStyle string) (Appearance, error) {
	a := Appearance{
		hairColor:     strings.TrimSpace(hairColor),
		hairStyle:     strings.TrimSpace(hairStyle),
		eyeColor:      strings.TrimSpace(eyeColor),
		skinTone:      strings.TrimSpace(skinTone),
		build:         strings.TrimSpace(build),
		clothingStyle: strings.TrimSpace(clothingStyle),
	}

	for _, descriptor := range []string{a.hairColor, a.hairStyle, a.eyeColor, a.skinTone, a.build, a.clothingStyle} {
		if utf8.RuneCountInString(descriptor) > maxDescriptorLength {
			return Appearance{}, pkgerrors.NewValidationError("appearance descriptor too long")
		}
	}

	return a, nil
}

// DefaultAppearance returns the descriptor set used when a root is seeded
// without explicit appearance input
func DefaultAppearance() Appearance {
	return Appearance{
		hairColor:     "brown",
		hairStyle:     "short",
		eyeColor:      "brown",
		skinTone:      "medium",
		build:         "average",
		clothingStyle: "casual",
	}
}

// HairColor returns the hair color descriptor
func (a Appearance) HairColor() string {
	return a.hairColor
}

// HairStyle returns the hair style descriptor
func (a Appearance) HairStyle() string {
	return a.hairStyle
}

// EyeColor returns the eye color descriptor
func (a Appearance) EyeColor() string {
	return a.eyeColor
}

// SkinTone returns the skin tone descriptor
func (a Appearance) SkinTone() string {
	return a.skinTone
}

// Build returns the build descriptor
func (a Appearance) Build() string {
	return a.build
}

// ClothingStyle returns the clothing style descriptor
func (a Appearance) ClothingStyle() string {
	return a.clothingStyle
}

// Equals checks if two appearance sets are equal
func (a Appearance) Equals(other Appearance) bool {
	return a == other
}
