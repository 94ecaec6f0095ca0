package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Simulation settings
	TickInterval time.Duration
	SessionTTL   time.Duration
	MaxSessions  int

	// Physics tuning file, hot-reloaded when set
	TuningFile string

	// Generation services; empty endpoints select the local generators
	ScenarioEndpoint string
	PortraitEndpoint string
	GeneratorTimeout time.Duration
	GeneratorSeed    int64
	GeneratorDelay   time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Rate limiting for expansion requests
	ExpandRatePerMinute int

	// Tracing
	TracingEndpoint string

	// Feature flags
	EnableAuth    bool
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
}

// LoadConfig reads the configuration from environment variables. Unset or
// malformed values fall back to the defaults named here.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: envOr("SERVER_ADDRESS", ":8080"),
		Environment:   envOr("ENVIRONMENT", "development"),

		// Simulation settings
		TickInterval: envDuration("TICK_INTERVAL", 50*time.Millisecond),
		SessionTTL:   envDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions:  envInt("MAX_SESSIONS", 100),

		TuningFile: envOr("TUNING_FILE", ""),

		// Generation services
		ScenarioEndpoint: envOr("SCENARIO_ENDPOINT", ""),
		PortraitEndpoint: envOr("PORTRAIT_ENDPOINT", ""),
		GeneratorTimeout: envDuration("GENERATOR_TIMEOUT", 30*time.Second),
		GeneratorSeed:    int64(envInt("GENERATOR_SEED", 0)),
		GeneratorDelay:   envDuration("GENERATOR_DELAY", 0),

		// Authentication
		JWTSecret: envOr("JWT_SECRET", ""),
		JWTIssuer: envOr("JWT_ISSUER", "lifetree-backend"),

		ExpandRatePerMinute: envInt("EXPAND_RATE_PER_MINUTE", 30),

		TracingEndpoint: envOr("TRACING_ENDPOINT", ""),

		// Logging and features
		LogLevel:      envOr("LOG_LEVEL", "info"),
		EnableAuth:    envBool("ENABLE_AUTH", false),
		EnableMetrics: envBool("ENABLE_METRICS", true),
		EnableTracing: envBool("ENABLE_TRACING", false),
		EnableCORS:    envBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot safely run with.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive")
	}
	if c.EnableAuth && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENABLE_AUTH is set")
	}
	if c.IsProduction() && c.EnableAuth && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	return nil
}

// IsDevelopment reports whether this is a development deployment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether this is a production deployment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "":
		return fallback
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
