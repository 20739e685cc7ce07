package testkit

import (
	"math/rand"

	"godce/domain/design"
	"godce/internal/config"
)

// CoffeeSpec returns the reference coffee-study specification: four
// attributes, three alternatives per choice set, twelve choice sets. Most
// tests run against this fixture because its dimensions are large enough for
// every criterion to be well conditioned.
func CoffeeSpec() *design.DesignSpec {
	spec, err := design.NewDesignSpec(
		[]design.Attribute{
			{Name: "price", Levels: []string{"100", "150", "200", "250"}},
			{Name: "origin", Levels: []string{"Colombia", "Ethiopia", "Brazil", "Sumatra"}},
			{Name: "roast", Levels: []string{"Light", "Medium", "Dark"}},
			{Name: "organic", Levels: []string{"No", "Yes"}},
		},
		3, 12,
		design.Constraints{},
		nil,
	)
	if err != nil {
		panic(err)
	}
	return spec
}

// ConstrainedCoffeeSpec is the coffee fixture with every constraint switched
// on.
func ConstrainedCoffeeSpec() *design.DesignSpec {
	spec := CoffeeSpec()
	spec.Constraints = design.Constraints{
		LevelBalance:      true,
		MinFrequency:      2,
		ProhibitDominance: true,
	}
	return spec
}

// CoffeeSpecWithPriors attaches the reference priors used by Bayesian tests.
func CoffeeSpecWithPriors() *design.DesignSpec {
	spec := CoffeeSpec()
	spec.Priors = map[string]design.Prior{
		"price":   {Kind: design.PriorNormal, Mean: -0.5, SD: 0.1},
		"organic": {Kind: design.PriorNormal, Mean: 0.5, SD: 0.1},
	}
	return spec
}

// TinySpec returns the smallest spec that still codes to a full-rank matrix:
// two binary attributes, two alternatives, four choice sets.
func TinySpec() *design.DesignSpec {
	spec, err := design.NewDesignSpec(
		[]design.Attribute{
			{Name: "speed", Levels: []string{"slow", "fast"}},
			{Name: "cost", Levels: []string{"low", "high"}},
		},
		2, 4,
		design.Constraints{},
		nil,
	)
	if err != nil {
		panic(err)
	}
	return spec
}

// RNG returns a deterministic stream for tests.
func RNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Config returns the built-in configuration with a small iteration budget so
// searches in tests stay fast.
func Config() *config.Config {
	cfg := config.Default()
	cfg.DefaultIterations = 400
	cfg.Restarts = 2
	return cfg
}
