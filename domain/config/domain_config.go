package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Tree constraints
	MaxNodesPerTree int
	MaxTreeDepth    int

	// Narrative constraints
	MaxTitleLength int
	MinTitleLength int
	MaxFieldLength int

	// Rendered node footprint; fixed per node at creation
	NodeWidth  float64
	NodeHeight float64

	// Expansion settings
	ChildrenPerExpansion int
	GenerationTimeout    time.Duration
	PortraitTimeout      time.Duration

	// Default root scenario
	RootTitle         string
	RootAgeYears      int
	RootAgeWeeks      int
	RootMonthlyIncome float64

	// Validation settings
	AllowEmptyLocation bool

	// Feature flags
	EnablePortraits bool
	EnableStreaming bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Tree constraints
		MaxNodesPerTree: 10000,
		MaxTreeDepth:    64,

		// Narrative constraints
		MaxTitleLength: 200,
		MinTitleLength: 1,
		MaxFieldLength: 500,

		// Rendered node footprint
		NodeWidth:  160,
		NodeHeight: 120,

		// Expansion settings
		ChildrenPerExpansion: 3,
		GenerationTimeout:    60 * time.Second,
		PortraitTimeout:      90 * time.Second,

		// Default root scenario
		RootTitle:         "Now",
		RootAgeYears:      22,
		RootAgeWeeks:      0,
		RootMonthlyIncome: 0,

		// Validation settings
		AllowEmptyLocation: true,

		// Feature flags
		EnablePortraits: true,
		EnableStreaming: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxNodesPerTree = 5000
	config.MaxTreeDepth = 32
	config.GenerationTimeout = 45 * time.Second

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxNodesPerTree = 100000
	config.MaxTreeDepth = 128

	// Skip external image calls while iterating locally
	config.EnablePortraits = false

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxNodesPerTree <= 0 {
		return fmt.Errorf("MaxNodesPerTree must be positive, got %d", c.MaxNodesPerTree)
	}
	if c.ChildrenPerExpansion <= 0 {
		return fmt.Errorf("ChildrenPerExpansion must be positive, got %d", c.ChildrenPerExpansion)
	}
	if c.MinTitleLength < 0 || c.MaxTitleLength < c.MinTitleLength {
		return fmt.Errorf("title length bounds invalid: min %d, max %d", c.MinTitleLength, c.MaxTitleLength)
	}
	if c.NodeWidth <= 0 || c.NodeHeight <= 0 {
		return fmt.Errorf("node footprint must be positive, got %gx%g", c.NodeWidth, c.NodeHeight)
	}
	if c.RootAgeYears < 0 {
		return fmt.Errorf("RootAgeYears cannot be negative, got %d", c.RootAgeYears)
	}
	if c.RootAgeWeeks < 0 || c.RootAgeWeeks > 51 {
		return fmt.Errorf("RootAgeWeeks must be in [0,51], got %d", c.RootAgeWeeks)
	}
	return nil
}
