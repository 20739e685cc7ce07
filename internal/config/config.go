package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"godce/internal/errors"
)

// Config holds the engine's tunable numeric constants. The improvement
// epsilon and the singularity tolerance are deliberately configuration, not
// hard-coded guesses: the defaults were validated empirically against the
// coffee reference design.
type Config struct {
	// ImprovementEpsilon is the minimum criterion gain an exchange must show
	// before it is accepted, guarding against float oscillation.
	ImprovementEpsilon float64

	// SingularityTol is the relative determinant floor below which an
	// information matrix is treated as singular.
	SingularityTol float64

	// DefaultIterations caps criterion evaluations per search when the caller
	// does not set a budget.
	DefaultIterations int

	// DefaultDraws is the Monte Carlo sample count for Bayesian scoring.
	DefaultDraws int

	// Restarts is the number of independent search starts (best-of reduction).
	Restarts int

	// PowerCurvePoints is the number of N values on a power curve.
	PowerCurvePoints int
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ImprovementEpsilon: 1e-9,
		SingularityTol:     1e-10,
		DefaultIterations:  1000,
		DefaultDraws:       2000,
		Restarts:           4,
		PowerCurvePoints:   20,
	}
}

// Load reads configuration from environment variables, after a best-effort
// .env load, and validates it. Unset or unparsable variables fall back to
// defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	cfg.ImprovementEpsilon = getEnvFloatOrDefault("DCE_IMPROVE_EPS", cfg.ImprovementEpsilon)
	cfg.SingularityTol = getEnvFloatOrDefault("DCE_SINGULARITY_TOL", cfg.SingularityTol)
	cfg.DefaultIterations = getEnvIntOrDefault("DCE_DEFAULT_ITERATIONS", cfg.DefaultIterations)
	cfg.DefaultDraws = getEnvIntOrDefault("DCE_DEFAULT_DRAWS", cfg.DefaultDraws)
	cfg.Restarts = getEnvIntOrDefault("DCE_RESTARTS", cfg.Restarts)
	cfg.PowerCurvePoints = getEnvIntOrDefault("DCE_POWER_CURVE_POINTS", cfg.PowerCurvePoints)

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.ImprovementEpsilon <= 0 {
		return errors.ConfigInvalid("DCE_IMPROVE_EPS must be positive")
	}
	if cfg.SingularityTol <= 0 {
		return errors.ConfigInvalid("DCE_SINGULARITY_TOL must be positive")
	}
	if cfg.DefaultIterations < 1 {
		return errors.ConfigInvalid("DCE_DEFAULT_ITERATIONS must be at least 1")
	}
	if cfg.DefaultDraws < 1 {
		return errors.ConfigInvalid("DCE_DEFAULT_DRAWS must be at least 1")
	}
	if cfg.Restarts < 1 {
		return errors.ConfigInvalid("DCE_RESTARTS must be at least 1")
	}
	if cfg.PowerCurvePoints < 2 {
		return errors.ConfigInvalid("DCE_POWER_CURVE_POINTS must be at least 2")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
