package config

import "fmt"

// PhysicsConfig is the tuning record for the layout simulation. One copy is
// owned per session; the watcher may swap in a new copy at runtime. Edge
// targets are fixed from the value live at edge creation, so a swap only
// affects edges created afterwards.
type PhysicsConfig struct {
	// RepulsionStrength is the Coulomb-like constant for the inverse-square
	// separating force between node pairs.
	RepulsionStrength float64 `yaml:"repulsionStrength"`

	// RepulsionRange is the cutoff distance beyond which pairs exert no
	// separating force on each other.
	RepulsionRange float64 `yaml:"repulsionRange"`

	// SpringStrength is the Hooke constant for parent-child attraction.
	SpringStrength float64 `yaml:"springStrength"`

	// SpringLength is the rest length assigned to newly created edges.
	SpringLength float64 `yaml:"springLength"`

	// Friction is the per-step velocity multiplier, in (0,1).
	Friction float64 `yaml:"friction"`

	// GravityStrength scales the upward bias applied to children that have
	// not yet risen above their parent.
	GravityStrength float64 `yaml:"gravityStrength"`

	// MaxVelocity is the hard per-step speed cap.
	MaxVelocity float64 `yaml:"maxVelocity"`

	// GrowthDurationSeconds is how long a node or edge takes to animate
	// from zero to full size.
	GrowthDurationSeconds float64 `yaml:"growthDurationSeconds"`
}

// DefaultPhysicsConfig returns the tuning used when no file overrides it.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		RepulsionStrength:     2000,
		RepulsionRange:        250,
		SpringStrength:        0.05,
		SpringLength:          120,
		Friction:              0.85,
		GravityStrength:       0.05,
		MaxVelocity:           8,
		GrowthDurationSeconds: 2.5,
	}
}

// WithDefaults fills any zero-valued field from the default tuning, so a
// partial YAML file only needs to name the values it changes.
func (c PhysicsConfig) WithDefaults() PhysicsConfig {
	def := DefaultPhysicsConfig()
	if c.RepulsionStrength == 0 {
		c.RepulsionStrength = def.RepulsionStrength
	}
	if c.RepulsionRange == 0 {
		c.RepulsionRange = def.RepulsionRange
	}
	if c.SpringStrength == 0 {
		c.SpringStrength = def.SpringStrength
	}
	if c.SpringLength == 0 {
		c.SpringLength = def.SpringLength
	}
	if c.Friction == 0 {
		c.Friction = def.Friction
	}
	if c.GravityStrength == 0 {
		c.GravityStrength = def.GravityStrength
	}
	if c.MaxVelocity == 0 {
		c.MaxVelocity = def.MaxVelocity
	}
	if c.GrowthDurationSeconds == 0 {
		c.GrowthDurationSeconds = def.GrowthDurationSeconds
	}
	return c
}

// Validate checks the tuning for values that would destabilize the
// simulation.
func (c PhysicsConfig) Validate() error {
	if c.RepulsionStrength < 0 {
		return fmt.Errorf("repulsionStrength cannot be negative, got %v", c.RepulsionStrength)
	}
	if c.RepulsionRange < 0 {
		return fmt.Errorf("repulsionRange cannot be negative, got %v", c.RepulsionRange)
	}
	if c.SpringStrength < 0 {
		return fmt.Errorf("springStrength cannot be negative, got %v", c.SpringStrength)
	}
	if c.SpringLength <= 0 {
		return fmt.Errorf("springLength must be positive, got %v", c.SpringLength)
	}
	if c.Friction <= 0 || c.Friction >= 1 {
		return fmt.Errorf("friction must be in (0,1), got %v", c.Friction)
	}
	if c.GravityStrength < 0 {
		return fmt.Errorf("gravityStrength cannot be negative, got %v", c.GravityStrength)
	}
	if c.MaxVelocity <= 0 {
		return fmt.Errorf("maxVelocity must be positive, got %v", c.MaxVelocity)
	}
	if c.GrowthDurationSeconds <= 0 {
		return fmt.Errorf("growthDurationSeconds must be positive, got %v", c.GrowthDurationSeconds)
	}
	return nil
}
