package config

import (
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ImprovementEpsilon != 1e-9 {
		t.Errorf("expected improvement epsilon 1e-9, got %g", cfg.ImprovementEpsilon)
	}
	if cfg.SingularityTol != 1e-10 {
		t.Errorf("expected singularity tolerance 1e-10, got %g", cfg.SingularityTol)
	}
	if cfg.DefaultIterations != 1000 {
		t.Errorf("expected 1000 default iterations, got %d", cfg.DefaultIterations)
	}
	if err := validateConfig(cfg); err != nil {
		t.Errorf("the defaults must validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DCE_IMPROVE_EPS", "1e-6")
	t.Setenv("DCE_DEFAULT_ITERATIONS", "250")
	t.Setenv("DCE_RESTARTS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ImprovementEpsilon != 1e-6 {
		t.Errorf("expected overridden epsilon, got %g", cfg.ImprovementEpsilon)
	}
	if cfg.DefaultIterations != 250 {
		t.Errorf("expected overridden iterations, got %d", cfg.DefaultIterations)
	}
	if cfg.Restarts != 8 {
		t.Errorf("expected overridden restarts, got %d", cfg.Restarts)
	}
}

func TestLoad_UnparsableFallsBack(t *testing.T) {
	t.Setenv("DCE_DEFAULT_DRAWS", "plenty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultDraws != Default().DefaultDraws {
		t.Errorf("unparsable values must fall back to the default, got %d", cfg.DefaultDraws)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"DCE_IMPROVE_EPS":        "-1",
		"DCE_SINGULARITY_TOL":    "0",
		"DCE_DEFAULT_ITERATIONS": "0",
		"DCE_RESTARTS":           "0",
		"DCE_POWER_CURVE_POINTS": "1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s must fail validation", key, value)
			}
		})
	}
}
