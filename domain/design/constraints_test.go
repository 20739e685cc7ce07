package design

import (
	"testing"
)

func balancedSpec(t *testing.T, constraints Constraints) *DesignSpec {
	t.Helper()
	spec, err := NewDesignSpec(coffeeAttributes(), 3, 12, constraints, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return spec
}

func TestCheck_NoConstraintsNoViolations(t *testing.T) {
	spec := balancedSpec(t, Constraints{})
	d := NewDesign(spec) // wildly unbalanced, but nothing is declared

	if violations := Check(d, spec); len(violations) != 0 {
		t.Errorf("no declared constraints should mean no violations, got %v", violations)
	}
}

func TestCheck_LevelBalance(t *testing.T) {
	spec := balancedSpec(t, Constraints{LevelBalance: true})

	d := Balanced(spec)
	if violations := Check(d, spec); len(violations) != 0 {
		t.Fatalf("the balanced generator must satisfy level_balance, got %v", violations)
	}

	// Push every price cell to the same level: spread becomes 36.
	for r := range d.Levels {
		d.Levels[r][0] = 1
	}
	violations := Check(d, spec)
	if len(violations) == 0 {
		t.Fatal("expected a level_balance violation")
	}
	if violations[0].Kind != ViolationLevelBalance || violations[0].Attribute != "price" {
		t.Errorf("unexpected violation: %+v", violations[0])
	}
}

func TestCheck_MinFrequency(t *testing.T) {
	spec := balancedSpec(t, Constraints{MinFrequency: 2})

	d := Balanced(spec)
	if violations := Check(d, spec); len(violations) != 0 {
		t.Fatalf("balanced design satisfies min_frequency=2, got %v", violations)
	}

	// Erase every occurrence of roast level 2.
	for r := range d.Levels {
		if d.Levels[r][2] == 2 {
			d.Levels[r][2] = 0
		}
	}
	violations := Check(d, spec)
	found := false
	for _, v := range violations {
		if v.Kind == ViolationMinFrequency && v.Attribute == "roast" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a min_frequency violation on roast, got %v", violations)
	}
}

func TestCheck_Dominance(t *testing.T) {
	spec, err := NewDesignSpec(
		[]Attribute{
			{Name: "speed", Levels: []string{"slow", "fast"}},
			{Name: "cost", Levels: []string{"low", "high"}},
		},
		2, 2,
		Constraints{ProhibitDominance: true},
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewDesign(spec)
	// Set 0: (1,1) weakly dominates (0,0).
	d.Levels[0] = []int{1, 1}
	d.Levels[1] = []int{0, 0}
	// Set 1: (1,0) vs (0,1) trade off, no dominance.
	d.Levels[2] = []int{1, 0}
	d.Levels[3] = []int{0, 1}

	violations := Check(d, spec)
	if len(violations) != 1 {
		t.Fatalf("expected exactly one dominance violation, got %v", violations)
	}
	v := violations[0]
	if v.Kind != ViolationDominance || v.ChoiceSet != 0 || v.RowA != 0 || v.RowB != 1 {
		t.Errorf("unexpected violation: %+v", v)
	}
}

func TestDominates(t *testing.T) {
	cases := []struct {
		name string
		a, b []int
		want bool
	}{
		{"strictly better everywhere", []int{2, 2}, []int{1, 1}, true},
		{"weakly better", []int{2, 1}, []int{1, 1}, true},
		{"equal rows", []int{1, 1}, []int{1, 1}, false},
		{"trade-off", []int{2, 0}, []int{1, 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dominates(tc.a, tc.b); got != tc.want {
				t.Errorf("dominates(%v, %v) = %t, want %t", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCandidateLevels_Unconstrained(t *testing.T) {
	spec := balancedSpec(t, Constraints{})
	d := Balanced(spec)

	candidates := CandidateLevels(d, 0, 0, spec)
	if len(candidates) != 4 {
		t.Fatalf("every level is a candidate without constraints, got %v", candidates)
	}
	for i, level := range candidates {
		if level != i {
			t.Errorf("candidates must preserve declared level order, got %v", candidates)
		}
	}
}

func TestCandidateLevels_BalancePrunes(t *testing.T) {
	spec := balancedSpec(t, Constraints{LevelBalance: true})
	d := Balanced(spec)

	// The design is exactly balanced (36 rows, 4 price levels, 9 each). Moving
	// any cell to another level makes counts 8 and 10: spread 2. Only the
	// current level survives.
	candidates := CandidateLevels(d, 0, 0, spec)
	if len(candidates) != 1 || candidates[0] != d.Levels[0][0] {
		t.Errorf("exact balance leaves only the current level, got %v", candidates)
	}
}

func TestCandidateLevels_DominancePrunes(t *testing.T) {
	spec, err := NewDesignSpec(
		[]Attribute{
			{Name: "speed", Levels: []string{"slow", "fast"}},
			{Name: "cost", Levels: []string{"low", "high"}},
		},
		2, 2,
		Constraints{ProhibitDominance: true},
		nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewDesign(spec)
	d.Levels[0] = []int{1, 0}
	d.Levels[1] = []int{0, 1}
	d.Levels[2] = []int{0, 1}
	d.Levels[3] = []int{1, 0}

	// Raising row 0's cost to 1 would make it (1,1), dominating (0,1).
	candidates := CandidateLevels(d, 0, 1, spec)
	if len(candidates) != 1 || candidates[0] != 0 {
		t.Errorf("dominance-creating level must be pruned, got %v", candidates)
	}
}

func TestCandidateLevels_AlwaysContainsCurrent(t *testing.T) {
	spec := balancedSpec(t, Constraints{LevelBalance: true, MinFrequency: 2, ProhibitDominance: true})
	d := Balanced(spec)

	for row := 0; row < d.Rows(); row++ {
		for attr := range spec.Attributes {
			candidates := CandidateLevels(d, row, attr, spec)
			current := d.Levels[row][attr]
			found := false
			for _, c := range candidates {
				if c == current {
					found = true
				}
			}
			if !found {
				t.Fatalf("cell (%d,%d): current level %d missing from candidates %v", row, attr, current, candidates)
			}
		}
	}
}
