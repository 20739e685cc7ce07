package design

import (
	"math/rand"
)

// Balanced synthesizes the deterministic starting design. Rows are filled in
// blocks of one full level cycle per attribute, so every complete block holds
// each level exactly once and the column stays balanced; the block offset
// advances by a per-attribute stride so attributes of equal cardinality do not
// become cyclic shifts of one another, which would make their coded columns
// coincide and the information matrix exactly singular.
func Balanced(spec *DesignSpec) *Design {
	d := NewDesign(spec)
	for a, attr := range spec.Attributes {
		l := attr.LevelCount()
		stride := blockStride(a, l)
		for r := range d.Levels {
			d.Levels[r][a] = (r + (r/l)*stride) % l
		}
	}
	if spec.Constraints.ProhibitDominance {
		repairDominance(d, spec)
	}
	return d
}

// blockStride picks how far each attribute's level cycle shifts per block.
// Strides differ across attributes sharing a level count, and a stride is
// never a multiple of the level count (which would collapse to no shift).
func blockStride(attrIdx, levelCount int) int {
	if levelCount < 3 {
		return 1
	}
	return attrIdx%(levelCount-1) + 1
}

// Random synthesizes a randomized starting design for restarts. Each
// attribute's column is the balanced level multiset shuffled by the injected
// source, so level_balance is preserved by construction and the arrangement
// is reproducible per seed. Under a dominance prohibition the shuffle is
// retried until the swap repair reaches feasibility.
func Random(spec *DesignSpec, rng *rand.Rand) *Design {
	const maxAttempts = 16
	var d *Design
	for attempt := 0; attempt < maxAttempts; attempt++ {
		d = shuffledBalanced(spec, rng)
		if !spec.Constraints.ProhibitDominance || repairDominance(d, spec) {
			return d
		}
	}
	return d
}

func shuffledBalanced(spec *DesignSpec, rng *rand.Rand) *Design {
	d := NewDesign(spec)
	rows := spec.Rows()
	for a, attr := range spec.Attributes {
		l := attr.LevelCount()
		column := make([]int, rows)
		for r := range column {
			column[r] = r % l
		}
		rng.Shuffle(rows, func(i, j int) {
			column[i], column[j] = column[j], column[i]
		})
		for r := range d.Levels {
			d.Levels[r][a] = column[r]
		}
	}
	return d
}

// repairDominance removes weak-dominance pairs by swapping attribute levels
// between rows of different choice sets. A swap is kept only when the
// design-wide dominance-pair count strictly drops, which lets the repair
// dismantle fully ordered chains one pair at a time instead of demanding a
// whole choice set become feasible in a single move. Swaps preserve per-level
// counts, so balance and minimum frequency are untouched. Reports whether the
// design ended free of dominance pairs.
func repairDominance(d *Design, spec *DesignSpec) bool {
	const maxRounds = 256
	count := len(dominancePairs(d))
	for round := 0; round < maxRounds && count > 0; round++ {
		improved := false
		for _, pair := range dominancePairs(d) {
			hi, lo := pair[0], pair[1]
			// An earlier swap in this round may already have broken the pair.
			if !dominates(d.Levels[hi], d.Levels[lo]) {
				continue
			}
			if next, ok := trySwapReduce(d, hi, true, count); ok {
				count = next
				improved = true
				continue
			}
			if next, ok := trySwapReduce(d, lo, false, count); ok {
				count = next
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return count == 0
}

// dominancePairs lists (dominator, dominated) row pairs per choice set.
func dominancePairs(d *Design) [][2]int {
	var pairs [][2]int
	for set := 0; set < d.Sets; set++ {
		base := set * d.Alternatives
		for i := 0; i < d.Alternatives; i++ {
			for j := 0; j < d.Alternatives; j++ {
				if i != j && dominates(d.Levels[base+i], d.Levels[base+j]) {
					pairs = append(pairs, [2]int{base + i, base + j})
				}
			}
		}
	}
	return pairs
}

// trySwapReduce swaps one of target's attribute levels with a row in another
// choice set (a strictly lower level when lower is set, strictly higher
// otherwise) and keeps the first swap that reduces the total dominance-pair
// count below count.
func trySwapReduce(d *Design, target int, lower bool, count int) (int, bool) {
	for a := range d.Levels[target] {
		for other := range d.Levels {
			if d.SetOf(other) == d.SetOf(target) {
				continue
			}
			if lower && d.Levels[other][a] >= d.Levels[target][a] {
				continue
			}
			if !lower && d.Levels[other][a] <= d.Levels[target][a] {
				continue
			}
			d.Levels[target][a], d.Levels[other][a] = d.Levels[other][a], d.Levels[target][a]
			if next := len(dominancePairs(d)); next < count {
				return next, true
			}
			d.Levels[target][a], d.Levels[other][a] = d.Levels[other][a], d.Levels[target][a]
		}
	}
	return count, false
}
