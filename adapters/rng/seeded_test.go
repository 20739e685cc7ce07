package rng

import (
	"testing"
)

func TestSeededStream_Deterministic(t *testing.T) {
	r := New()

	a := r.SeededStream("restart", 42)
	b := r.SeededStream("restart", 42)
	for i := 0; i < 16; i++ {
		if a.Int63() != b.Int63() {
			t.Fatal("the same (name, seed) pair must replay the same stream")
		}
	}
}

func TestSeededStream_NameSeparatesStreams(t *testing.T) {
	r := New()

	a := r.SeededStream("restart", 42)
	b := r.SeededStream("shuffle", 42)
	same := true
	for i := 0; i < 16; i++ {
		if a.Int63() != b.Int63() {
			same = false
			break
		}
	}
	if same {
		t.Error("different operation names must derive different streams")
	}
}

func TestRestartSeed_Distinct(t *testing.T) {
	r := New()

	seen := make(map[int64]bool)
	for k := 0; k < 32; k++ {
		seed := r.RestartSeed(42, k)
		if seen[seed] {
			t.Fatalf("restart %d repeats an earlier seed", k)
		}
		seen[seed] = true
	}
	if r.RestartSeed(42, 0) != 42 {
		t.Error("restart 0 must use the base seed unchanged")
	}
}

func TestRestartSeed_GoldenIncrement(t *testing.T) {
	r := New()

	// The first increment is the golden-ratio constant reinterpreted as a
	// signed 64-bit value; pin it so the derivation never drifts.
	if got := r.RestartSeed(0, 1); got != -7046029254386353131 {
		t.Errorf("RestartSeed(0, 1) = %d", got)
	}
	if got := r.RestartSeed(42, 1); got != 42-7046029254386353131 {
		t.Errorf("RestartSeed(42, 1) = %d", got)
	}
}
