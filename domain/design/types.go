package design

import (
	"fmt"
	"strings"

	"godce/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Attribute is one experimental dimension with a fixed, ordered set of levels.
// Level order is significant: it defines the implicit preference ordering used
// by dominance checks, and the first level is the reference level for coding.
type Attribute struct {
	Name   string   `json:"name"`
	Levels []string `json:"levels"`
}

// LevelCount returns the number of declared levels.
func (a Attribute) LevelCount() int {
	return len(a.Levels)
}

// LevelIndex returns the index of a named level, or -1 if undeclared.
func (a Attribute) LevelIndex(level string) int {
	for i, l := range a.Levels {
		if l == level {
			return i
		}
	}
	return -1
}

// Constraints are declarative feasibility rules. They are enforced by the
// constraint checker, never by the optimizer directly.
type Constraints struct {
	LevelBalance      bool `json:"level_balance"`
	MinFrequency      int  `json:"min_frequency"`
	ProhibitDominance bool `json:"prohibit_dominance"`
}

// Any reports whether any constraint is active.
func (c Constraints) Any() bool {
	return c.LevelBalance || c.MinFrequency > 0 || c.ProhibitDominance
}

// PriorKind identifies a prior distribution family.
type PriorKind string

const (
	PriorNormal  PriorKind = "normal"
	PriorBeta    PriorKind = "beta"
	PriorUniform PriorKind = "uniform"
)

// Prior describes the parameter prior attached to one attribute's coded
// parameters. Only the fields for its Kind are meaningful.
type Prior struct {
	Kind  PriorKind `json:"kind"`
	Mean  float64   `json:"mean,omitempty"`  // normal
	SD    float64   `json:"sd,omitempty"`    // normal
	Alpha float64   `json:"alpha,omitempty"` // beta
	Beta  float64   `json:"beta,omitempty"`  // beta
	Lower float64   `json:"lower,omitempty"` // uniform bounds; beta mapping range
	Upper float64   `json:"upper,omitempty"`
}

// Validate checks the prior's parameters for its declared family.
func (p Prior) Validate() error {
	switch p.Kind {
	case PriorNormal:
		if p.SD <= 0 {
			return core.NewInvalidSpecError("prior.sd", "must be positive for a normal prior")
		}
	case PriorBeta:
		if p.Alpha <= 0 || p.Beta <= 0 {
			return core.NewInvalidSpecError("prior.alpha/beta", "must be positive for a beta prior")
		}
		if p.Lower != 0 || p.Upper != 0 {
			if p.Upper <= p.Lower {
				return core.NewInvalidSpecError("prior.lower/upper", "beta mapping range must satisfy lower < upper")
			}
		}
	case PriorUniform:
		if p.Upper <= p.Lower {
			return core.NewInvalidSpecError("prior.lower/upper", "uniform bounds must satisfy lower < upper")
		}
	default:
		return core.NewInvalidSpecError("prior.kind", fmt.Sprintf("unknown prior kind %q", p.Kind))
	}
	return nil
}

// Summary renders the prior as a short human-readable tag for reports.
func (p Prior) Summary() string {
	switch p.Kind {
	case PriorNormal:
		return fmt.Sprintf("normal(mean=%g, sd=%g)", p.Mean, p.SD)
	case PriorBeta:
		if p.Lower != 0 || p.Upper != 0 {
			return fmt.Sprintf("beta(alpha=%g, beta=%g, range=[%g,%g])", p.Alpha, p.Beta, p.Lower, p.Upper)
		}
		return fmt.Sprintf("beta(alpha=%g, beta=%g)", p.Alpha, p.Beta)
	case PriorUniform:
		return fmt.Sprintf("uniform(%g, %g)", p.Lower, p.Upper)
	default:
		return string(p.Kind)
	}
}

// ============================================================================
// DESIGN SPECIFICATION
// ============================================================================

// DesignSpec is the immutable experimental specification: attributes with
// ordered levels, the number of alternatives per choice set, the number of
// choice sets, and optional constraints and per-attribute priors.
type DesignSpec struct {
	Attributes   []Attribute      `json:"attributes"`
	Alternatives int              `json:"alternatives"`
	ChoiceSets   int              `json:"choice_sets"`
	Constraints  Constraints      `json:"constraints,omitempty"`
	Priors       map[string]Prior `json:"priors,omitempty"`
}

// NewDesignSpec validates and returns a design specification.
func NewDesignSpec(attributes []Attribute, alternatives, choiceSets int, constraints Constraints, priors map[string]Prior) (*DesignSpec, error) {
	spec := &DesignSpec{
		Attributes:   attributes,
		Alternatives: alternatives,
		ChoiceSets:   choiceSets,
		Constraints:  constraints,
		Priors:       priors,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the specification invariants:
// attribute names unique, every attribute has >= 2 levels, levels unique
// within an attribute, alternatives >= 2, choice sets >= 1, priors attached
// to declared attributes only.
func (s *DesignSpec) Validate() error {
	if len(s.Attributes) == 0 {
		return core.NewInvalidSpecError("attributes", "at least one attribute is required")
	}
	seen := make(map[string]bool, len(s.Attributes))
	for _, attr := range s.Attributes {
		if strings.TrimSpace(attr.Name) == "" {
			return core.NewInvalidSpecError("attributes", "attribute name cannot be empty")
		}
		if seen[attr.Name] {
			return core.NewInvalidSpecError("attributes", fmt.Sprintf("duplicate attribute name %q", attr.Name))
		}
		seen[attr.Name] = true

		if len(attr.Levels) < 2 {
			return core.NewInvalidSpecError(attr.Name, fmt.Sprintf("attribute must have at least 2 levels, got %d", len(attr.Levels)))
		}
		levelSeen := make(map[string]bool, len(attr.Levels))
		for _, l := range attr.Levels {
			if levelSeen[l] {
				return core.NewInvalidSpecError(attr.Name, fmt.Sprintf("duplicate level %q", l))
			}
			levelSeen[l] = true
		}
	}
	if s.Alternatives < 2 {
		return core.NewInvalidSpecError("alternatives", fmt.Sprintf("must be >= 2, got %d", s.Alternatives))
	}
	if s.ChoiceSets < 1 {
		return core.NewInvalidSpecError("choice_sets", fmt.Sprintf("must be >= 1, got %d", s.ChoiceSets))
	}
	if s.Constraints.MinFrequency < 0 {
		return core.NewInvalidSpecError("min_frequency", fmt.Sprintf("must be non-negative, got %d", s.Constraints.MinFrequency))
	}
	for name, prior := range s.Priors {
		if s.AttributeIndex(name) < 0 {
			return core.NewInvalidSpecError("priors", fmt.Sprintf("prior attached to undeclared attribute %q", name))
		}
		if err := prior.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AttributeIndex returns the declaration index of a named attribute, or -1.
func (s *DesignSpec) AttributeIndex(name string) int {
	for i, attr := range s.Attributes {
		if attr.Name == name {
			return i
		}
	}
	return -1
}

// Rows returns the number of design rows: one per (choice set, alternative).
func (s *DesignSpec) Rows() int {
	return s.ChoiceSets * s.Alternatives
}

// Parameters returns p, the model parameter count under reference-level
// dummy coding: sum over attributes of (levels - 1).
func (s *DesignSpec) Parameters() int {
	p := 0
	for _, attr := range s.Attributes {
		p += attr.LevelCount() - 1
	}
	return p
}

// Hash computes a deterministic hash of the specification.
func (s *DesignSpec) Hash() core.SpecHash {
	var b strings.Builder
	for _, attr := range s.Attributes {
		b.WriteString(attr.Name)
		b.WriteByte('=')
		b.WriteString(strings.Join(attr.Levels, ","))
		b.WriteByte(';')
	}
	fmt.Fprintf(&b, "A=%d;S=%d;balance=%t;minfreq=%d;dominance=%t",
		s.Alternatives, s.ChoiceSets,
		s.Constraints.LevelBalance, s.Constraints.MinFrequency, s.Constraints.ProhibitDominance)
	return core.NewSpecHash([]byte(b.String()))
}

// ============================================================================
// DESIGN (the mutable search state)
// ============================================================================

// Design assigns one level index per attribute to each of the S*A rows.
// Row r belongs to choice set r/A, alternative r%A. The optimizer owns the
// design exclusively during search; callers receive a snapshot.
type Design struct {
	Sets         int     `json:"choice_sets"`
	Alternatives int     `json:"alternatives"`
	Levels       [][]int `json:"levels"` // rows x attributes, level indices
}

// NewDesign allocates a design with all cells at the reference level.
func NewDesign(spec *DesignSpec) *Design {
	rows := spec.Rows()
	levels := make([][]int, rows)
	for r := range levels {
		levels[r] = make([]int, len(spec.Attributes))
	}
	return &Design{
		Sets:         spec.ChoiceSets,
		Alternatives: spec.Alternatives,
		Levels:       levels,
	}
}

// Rows returns the number of design rows.
func (d *Design) Rows() int {
	return len(d.Levels)
}

// SetOf returns the choice set a row belongs to.
func (d *Design) SetOf(row int) int {
	return row / d.Alternatives
}

// AltOf returns the alternative index of a row within its choice set.
func (d *Design) AltOf(row int) int {
	return row % d.Alternatives
}

// Clone returns an independent deep copy. Restarts each own a copy; the
// in-progress design is never shared.
func (d *Design) Clone() *Design {
	levels := make([][]int, len(d.Levels))
	for r, row := range d.Levels {
		levels[r] = make([]int, len(row))
		copy(levels[r], row)
	}
	return &Design{
		Sets:         d.Sets,
		Alternatives: d.Alternatives,
		Levels:       levels,
	}
}

// Validate checks the design's shape and level indices against a spec.
func (d *Design) Validate(spec *DesignSpec) error {
	if d.Sets != spec.ChoiceSets || d.Alternatives != spec.Alternatives {
		return core.NewInvalidSpecError("design", fmt.Sprintf("shape %dx%d does not match spec %dx%d",
			d.Sets, d.Alternatives, spec.ChoiceSets, spec.Alternatives))
	}
	if len(d.Levels) != spec.Rows() {
		return core.NewInvalidSpecError("design", fmt.Sprintf("expected %d rows, got %d", spec.Rows(), len(d.Levels)))
	}
	for r, row := range d.Levels {
		if len(row) != len(spec.Attributes) {
			return core.NewInvalidSpecError("design", fmt.Sprintf("row %d has %d cells, expected %d", r, len(row), len(spec.Attributes)))
		}
		for a, level := range row {
			if level < 0 || level >= spec.Attributes[a].LevelCount() {
				return core.NewInvalidLevelError(r, spec.Attributes[a].Name, level)
			}
		}
	}
	return nil
}

// Fingerprint computes a deterministic hash of the level assignment.
func (d *Design) Fingerprint() core.DesignFingerprint {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d:", d.Sets, d.Alternatives)
	for _, row := range d.Levels {
		for _, level := range row {
			fmt.Fprintf(&b, "%d,", level)
		}
		b.WriteByte('|')
	}
	return core.NewDesignFingerprint([]byte(b.String()))
}

// LevelCounts tallies, for one attribute, how often each level index appears
// across all rows.
func (d *Design) LevelCounts(attrIdx, levelCount int) []int {
	counts := make([]int, levelCount)
	for _, row := range d.Levels {
		counts[row[attrIdx]]++
	}
	return counts
}
