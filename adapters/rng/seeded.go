package rng

import (
	"hash/fnv"
	"math/rand"

	"godce/ports"
)

// SeededRNG is the production RNGPort: deterministic streams derived from a
// base seed and an operation name, so two runs with the same seed replay the
// same randomness regardless of call order across operations.
type SeededRNG struct{}

// New creates a SeededRNG.
func New() *SeededRNG {
	return &SeededRNG{}
}

// SeededStream derives a stream from (name, seed).
func (s *SeededRNG) SeededStream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}

// RestartSeed derives a per-restart seed from the base seed. The golden-ratio
// increment keeps neighboring restarts decorrelated; the multiply is done in
// uint64 because the constant does not fit in int64.
func (s *SeededRNG) RestartSeed(baseSeed int64, restart int) int64 {
	return baseSeed + int64(uint64(restart)*0x9e3779b97f4a7c15)
}

var _ ports.RNGPort = (*SeededRNG)(nil)
