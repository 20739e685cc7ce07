package design

import (
	"fmt"
)

// ViolationKind identifies a constraint violation class.
type ViolationKind string

const (
	ViolationLevelBalance ViolationKind = "level_balance"
	ViolationMinFrequency ViolationKind = "min_frequency"
	ViolationDominance    ViolationKind = "dominance"
)

// Violation is one concrete constraint violation, with enough context to
// diagnose which attribute, rows, or choice set triggered it.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Attribute string        `json:"attribute,omitempty"`
	ChoiceSet int           `json:"choice_set,omitempty"`
	RowA      int           `json:"row_a,omitempty"`
	RowB      int           `json:"row_b,omitempty"`
	Detail    string        `json:"detail"`
}

// Check evaluates a design against the spec's declared constraints and
// returns every violation found. Candidate designs are always checked whole;
// an infeasible candidate is discarded, never partially applied.
func Check(d *Design, spec *DesignSpec) []Violation {
	var violations []Violation

	if spec.Constraints.LevelBalance || spec.Constraints.MinFrequency > 0 {
		for a, attr := range spec.Attributes {
			counts := d.LevelCounts(a, attr.LevelCount())
			minCount, maxCount := counts[0], counts[0]
			for _, c := range counts[1:] {
				if c < minCount {
					minCount = c
				}
				if c > maxCount {
					maxCount = c
				}
			}
			if spec.Constraints.LevelBalance && maxCount-minCount > 1 {
				violations = append(violations, Violation{
					Kind:      ViolationLevelBalance,
					Attribute: attr.Name,
					Detail:    fmt.Sprintf("level count spread %d exceeds 1", maxCount-minCount),
				})
			}
			if spec.Constraints.MinFrequency > 0 && minCount < spec.Constraints.MinFrequency {
				violations = append(violations, Violation{
					Kind:      ViolationMinFrequency,
					Attribute: attr.Name,
					Detail:    fmt.Sprintf("a level appears %d times, minimum is %d", minCount, spec.Constraints.MinFrequency),
				})
			}
		}
	}

	if spec.Constraints.ProhibitDominance {
		for set := 0; set < d.Sets; set++ {
			base := set * d.Alternatives
			for i := 0; i < d.Alternatives; i++ {
				for j := 0; j < d.Alternatives; j++ {
					if i == j {
						continue
					}
					if dominates(d.Levels[base+i], d.Levels[base+j]) {
						violations = append(violations, Violation{
							Kind:      ViolationDominance,
							ChoiceSet: set,
							RowA:      base + i,
							RowB:      base + j,
							Detail:    fmt.Sprintf("alternative %d weakly dominates alternative %d in choice set %d", i, j, set),
						})
					}
				}
			}
		}
	}

	return violations
}

// IsFeasible reports whether a design satisfies every declared constraint.
func IsFeasible(d *Design, spec *DesignSpec) bool {
	return len(Check(d, spec)) == 0
}

// dominates reports whether row a component-wise weakly dominates row b:
// a's level index >= b's on every attribute, strictly greater on at least one.
// Level order within an attribute is the implicit preference ordering.
func dominates(a, b []int) bool {
	strict := false
	for k := range a {
		if a[k] < b[k] {
			return false
		}
		if a[k] > b[k] {
			strict = true
		}
	}
	return strict
}

// CandidateLevels returns, in declared level order, the levels that cell
// (row, attrIdx) may take without violating any constraint, assuming the rest
// of the design is held fixed and currently feasible. The optimizer uses this
// to prune the search at the point of mutation instead of generate-then-reject.
func CandidateLevels(d *Design, row, attrIdx int, spec *DesignSpec) []int {
	attr := spec.Attributes[attrIdx]
	current := d.Levels[row][attrIdx]
	counts := d.LevelCounts(attrIdx, attr.LevelCount())

	candidates := make([]int, 0, attr.LevelCount())
	for level := 0; level < attr.LevelCount(); level++ {
		if level == current {
			candidates = append(candidates, level)
			continue
		}
		if !moveKeepsCounts(counts, current, level, spec.Constraints) {
			continue
		}
		if spec.Constraints.ProhibitDominance && moveBreaksDominance(d, row, attrIdx, level) {
			continue
		}
		candidates = append(candidates, level)
	}
	return candidates
}

// moveKeepsCounts checks balance and minimum frequency after moving one cell
// from level old to level new, using the per-level counts for the attribute.
func moveKeepsCounts(counts []int, old, candidate int, c Constraints) bool {
	if !c.LevelBalance && c.MinFrequency == 0 {
		return true
	}
	if c.MinFrequency > 0 && counts[old]-1 < c.MinFrequency {
		return false
	}
	if c.LevelBalance {
		minCount, maxCount := adjustedMinMax(counts, old, candidate)
		if maxCount-minCount > 1 {
			return false
		}
	}
	return true
}

func adjustedMinMax(counts []int, old, candidate int) (int, int) {
	minCount, maxCount := -1, -1
	for i, n := range counts {
		if i == old {
			n--
		}
		if i == candidate {
			n++
		}
		if minCount == -1 || n < minCount {
			minCount = n
		}
		if n > maxCount {
			maxCount = n
		}
	}
	return minCount, maxCount
}

// moveBreaksDominance reports whether setting cell (row, attrIdx) to level
// would create a weak-dominance pair inside row's choice set. Only pairs
// involving the mutated row can change.
func moveBreaksDominance(d *Design, row, attrIdx, level int) bool {
	old := d.Levels[row][attrIdx]
	d.Levels[row][attrIdx] = level
	defer func() { d.Levels[row][attrIdx] = old }()

	base := d.SetOf(row) * d.Alternatives
	for i := 0; i < d.Alternatives; i++ {
		other := base + i
		if other == row {
			continue
		}
		if dominates(d.Levels[row], d.Levels[other]) || dominates(d.Levels[other], d.Levels[row]) {
			return true
		}
	}
	return false
}
