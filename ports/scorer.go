package ports

import (
	"context"

	"godce/domain/design"
)

// CriterionScorer scores a design under one efficiency criterion. The
// coordinate-exchange loop is criterion-agnostic: D/G/I and Bayesian modes
// plug in as scorer values, higher is better.
type CriterionScorer interface {
	// Kind identifies the criterion this scorer maximizes.
	Kind() design.CriterionKind

	// Score returns the criterion value for a design. A singular information
	// matrix is reported as an error, never as a misleading number.
	Score(ctx context.Context, d *design.Design) (float64, error)

	// Result returns the full criterion result for a design, including the
	// criterion-specific diagnostics.
	Result(ctx context.Context, d *design.Design) (*design.CriterionResult, error)
}
