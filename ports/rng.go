package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations.
// Random initial designs and Monte Carlo draws must come from explicit,
// injectable sources so search and integration stay reproducible and
// independently testable.
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named
	// operation. The same (name, seed) pair always yields the same stream.
	SeededStream(name string, seed int64) *rand.Rand

	// RestartSeed derives the seed for one independent restart from the base
	// seed, so parallel restarts draw from disjoint deterministic streams.
	RestartSeed(baseSeed int64, restart int) int64
}
