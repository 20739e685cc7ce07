package engine

import (
	"context"

	"godce/domain/design"
	"godce/ports"
)

// Scorer adapts the evaluator to the optimizer's criterion port for the
// D/G/I modes. The design matrix and information matrix are recomputed from
// scratch on every call; nothing is patched incrementally, so repeated scores
// of the same design are bit-identical.
type Scorer struct {
	evaluator *Evaluator
	scheme    *design.CodingScheme
	kind      design.CriterionKind
}

// NewScorer creates a scorer for one criterion under one coding scheme.
func NewScorer(evaluator *Evaluator, scheme *design.CodingScheme, kind design.CriterionKind) *Scorer {
	return &Scorer{
		evaluator: evaluator,
		scheme:    scheme,
		kind:      kind,
	}
}

// Kind identifies the criterion this scorer maximizes.
func (s *Scorer) Kind() design.CriterionKind {
	return s.kind
}

// Score returns the criterion value for a design.
func (s *Scorer) Score(ctx context.Context, d *design.Design) (float64, error) {
	result, err := s.Result(ctx, d)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

// Result returns the full criterion result for a design.
func (s *Scorer) Result(_ context.Context, d *design.Design) (*design.CriterionResult, error) {
	x, err := s.scheme.Encode(d)
	if err != nil {
		return nil, err
	}
	im := s.evaluator.Information(x)
	return s.evaluator.Criterion(im, s.kind)
}

var _ ports.CriterionScorer = (*Scorer)(nil)
