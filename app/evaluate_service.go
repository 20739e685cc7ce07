package app

import (
	"context"

	"godce/adapters/stats/bayes"
	"godce/adapters/stats/engine"
	"godce/domain/core"
	"godce/domain/design"
	"godce/internal/config"
	apperrors "godce/internal/errors"
)

// EvaluateService scores externally supplied designs without running a
// search. It shares the optimizer's evaluator so both answer with the same
// numerics.
type EvaluateService struct {
	cfg       *config.Config
	evaluator *engine.Evaluator
}

// NewEvaluateService creates the evaluation entry point.
func NewEvaluateService(cfg *config.Config) *EvaluateService {
	return &EvaluateService{
		cfg:       cfg,
		evaluator: engine.NewEvaluator(cfg.SingularityTol),
	}
}

// Evaluate scores a design under the default D-optimality criterion.
func (s *EvaluateService) Evaluate(ctx context.Context, d *design.Design, spec *design.DesignSpec) (*design.CriterionResult, error) {
	return s.EvaluateCriterion(ctx, d, spec, design.CriterionD)
}

// EvaluateCriterion scores a design under one of the deterministic criteria.
func (s *EvaluateService) EvaluateCriterion(ctx context.Context, d *design.Design, spec *design.DesignSpec, kind design.CriterionKind) (*design.CriterionResult, error) {
	scheme, err := s.validate(d, spec)
	if err != nil {
		return nil, err
	}
	scorer := engine.NewScorer(s.evaluator, scheme, kind)
	return scorer.Result(ctx, d)
}

// EvaluateBayesian scores a design by Bayesian expected utility with the
// given draw count and seed. Zero draws falls back to the configured default.
func (s *EvaluateService) EvaluateBayesian(ctx context.Context, d *design.Design, spec *design.DesignSpec, draws int, seed int64, useChoiceWeights bool) (*design.CriterionResult, error) {
	scheme, err := s.validate(d, spec)
	if err != nil {
		return nil, err
	}
	if draws <= 0 {
		draws = s.cfg.DefaultDraws
	}
	integrator := bayes.NewIntegrator(spec, scheme, s.evaluator, draws, seed, useChoiceWeights)
	return integrator.Result(ctx, d)
}

// Report computes the full efficiency profile of a design: all four
// efficiency measures plus the determinant, trace, condition number, and
// leverage diagnostics.
func (s *EvaluateService) Report(d *design.Design, spec *design.DesignSpec) (*engine.EfficiencyReport, error) {
	scheme, err := s.validate(d, spec)
	if err != nil {
		return nil, err
	}
	x, err := scheme.Encode(d)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Report(s.evaluator.Information(x))
}

// Violations runs the constraint checker against a design.
func (s *EvaluateService) Violations(d *design.Design, spec *design.DesignSpec) ([]design.Violation, error) {
	if _, err := s.validate(d, spec); err != nil {
		return nil, err
	}
	return design.Check(d, spec), nil
}

func (s *EvaluateService) validate(d *design.Design, spec *design.DesignSpec) (*design.CodingScheme, error) {
	if spec == nil {
		return nil, apperrors.SpecInvalid("design specification is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeSpecInvalid, err)
	}
	if d == nil {
		return nil, apperrors.InvalidInput("design is required")
	}
	if err := d.Validate(spec); err != nil {
		if core.IsInvalidLevel(err) {
			return nil, apperrors.WithCode(apperrors.CodeLevelInvalid, err)
		}
		return nil, err
	}
	return design.NewCodingScheme(spec), nil
}
