package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"godce/adapters/stats/bayes"
	"godce/adapters/stats/engine"
	"godce/adapters/stats/power"
	"godce/domain/core"
	"godce/domain/design"
	"godce/internal/config"
	apperrors "godce/internal/errors"
	"godce/ports"
)

// Mode selects what an optimization run produces.
type Mode string

const (
	ModeDOptimal   Mode = "d-optimal"
	ModeGOptimal   Mode = "g-optimal"
	ModeIOptimal   Mode = "i-optimal"
	ModeBayesian   Mode = "bayesian"
	ModeSampleSize Mode = "sample-size"
)

// criterion maps a search mode to its scoring criterion.
func (m Mode) criterion() (design.CriterionKind, bool) {
	switch m {
	case ModeDOptimal:
		return design.CriterionD, true
	case ModeGOptimal:
		return design.CriterionG, true
	case ModeIOptimal:
		return design.CriterionI, true
	case ModeBayesian:
		return design.CriterionBayesian, true
	}
	return "", false
}

// RunState is the optimizer's lifecycle state. CONVERGED and EXHAUSTED are
// both successful terminations; FAILED means no valid search state was ever
// established.
type RunState string

const (
	StateInitialized RunState = "INITIALIZED"
	StateSearching   RunState = "SEARCHING"
	StateConverged   RunState = "CONVERGED"
	StateExhausted   RunState = "EXHAUSTED"
	StateFailed      RunState = "FAILED"
)

// Options enumerates the per-run knobs. Zero values fall back to the loaded
// configuration defaults.
type Options struct {
	Iterations int   `json:"iterations,omitempty"` // criterion-evaluation budget
	Seed       int64 `json:"seed,omitempty"`
	Restarts   int   `json:"restarts,omitempty"`

	// Bayesian mode
	Draws            int  `json:"draws,omitempty"`
	UseChoiceWeights bool `json:"use_choice_weights,omitempty"`

	// Sample-size mode
	EffectSize        float64 `json:"effect_size,omitempty"`
	TargetPower       float64 `json:"target_power,omitempty"`
	Alpha             float64 `json:"alpha,omitempty"`
	CostPerRespondent float64 `json:"cost_per_respondent,omitempty"`
	VarianceEstimate  float64 `json:"variance_estimate,omitempty"`

	// Baseline is an optional caller-supplied starting design. When set, the
	// search runs from it alone instead of synthesized restarts.
	Baseline *design.Design `json:"baseline,omitempty"`
}

// OptimizeRequest is one optimization run.
type OptimizeRequest struct {
	Spec    *design.DesignSpec `json:"spec"`
	Mode    Mode               `json:"mode"`
	Options Options            `json:"options"`
}

// ExchangeEvent records one accepted coordinate move: structured facts the
// caller may render, never formatted output. PartnerRow is the other row of a
// balance-preserving swap, or -1 for a single-cell exchange.
type ExchangeEvent struct {
	Pass       int     `json:"pass"`
	Row        int     `json:"row"`
	Attribute  string  `json:"attribute"`
	OldLevel   int     `json:"old_level"`
	NewLevel   int     `json:"new_level"`
	PartnerRow int     `json:"partner_row"`
	Delta      float64 `json:"delta"`
}

// OptimizationReport is the engine's complete answer for one run.
type OptimizationReport struct {
	RunID core.RunID `json:"run_id"`
	Mode  Mode       `json:"mode"`
	Seed  int64      `json:"seed"`

	State   RunState `json:"state"`
	Success bool     `json:"success"`

	Design     *design.Design           `json:"design,omitempty"`
	Result     *design.CriterionResult  `json:"result,omitempty"`
	SampleSize *design.SampleSizeResult `json:"sample_size,omitempty"`

	InitialValue   float64 `json:"initial_value,omitempty"`
	FinalValue     float64 `json:"final_value,omitempty"`
	ImprovementPct float64 `json:"improvement_pct,omitempty"`

	Passes     int             `json:"passes"`
	Iterations int             `json:"iterations"`
	History    []ExchangeEvent `json:"history,omitempty"`

	Fingerprint core.DesignFingerprint `json:"fingerprint,omitempty"`
	CreatedAt   core.Timestamp         `json:"created_at"`
}

// OptimizerService runs constrained coordinate-exchange design optimization.
// A run is a synchronous call: the service owns the in-progress design
// exclusively and returns only at a terminal state.
type OptimizerService struct {
	cfg       *config.Config
	rng       ports.RNGPort
	evaluator *engine.Evaluator
}

// NewOptimizerService creates the optimizer with its tunables and RNG port.
func NewOptimizerService(cfg *config.Config, rng ports.RNGPort) *OptimizerService {
	return &OptimizerService{
		cfg:       cfg,
		rng:       rng,
		evaluator: engine.NewEvaluator(cfg.SingularityTol),
	}
}

// Optimize validates the request, establishes the starting state, and runs
// the mode's search (or the power analysis for sample-size mode).
func (s *OptimizerService) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizationReport, error) {
	if req.Spec == nil {
		return nil, apperrors.SpecInvalid("design specification is required")
	}
	if err := req.Spec.Validate(); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeSpecInvalid, err)
	}

	report := &OptimizationReport{
		RunID:     core.RunID(core.NewID()),
		Mode:      req.Mode,
		Seed:      req.Options.Seed,
		State:     StateInitialized,
		CreatedAt: core.Now(),
	}

	if req.Mode == ModeSampleSize {
		return s.runSampleSize(report, req)
	}

	kind, ok := req.Mode.criterion()
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown optimization mode %q", req.Mode))
	}

	scheme := design.NewCodingScheme(req.Spec)
	scorer, err := s.buildScorer(req, scheme, kind)
	if err != nil {
		return nil, err
	}

	starts, err := s.startingDesigns(req)
	if err != nil {
		return nil, err
	}

	budget := req.Options.Iterations
	if budget <= 0 {
		budget = s.cfg.DefaultIterations
	}

	// Independent restarts: each owns its design copy, combined best-of.
	outcomes := make([]searchOutcome, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	for i, start := range starts {
		g.Go(func() error {
			outcomes[i] = s.search(gctx, req.Spec, scorer, start, budget)
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, outcome := range outcomes {
		if outcome.err != nil {
			log.Printf("optimizer: restart %d failed: %v", i, outcome.err)
			continue
		}
		if best < 0 || outcome.final > outcomes[best].final {
			best = i
		}
	}
	if best < 0 {
		report.State = StateFailed
		report.Success = false
		first := outcomes[0].err
		return report, apperrors.WithCode(apperrors.CodeSingularDesign,
			fmt.Errorf("all %d restart(s) failed to establish a valid search state: %w", len(outcomes), first))
	}

	outcome := outcomes[best]
	result, err := scorer.Result(ctx, outcome.design)
	if err != nil {
		report.State = StateFailed
		report.Success = false
		return report, err
	}
	result.Iterations = outcome.evals

	report.State = outcome.state
	report.Success = true
	report.Design = outcome.design
	report.Result = result
	report.InitialValue = outcome.initial
	report.FinalValue = outcome.final
	report.ImprovementPct = improvementPct(outcome.initial, outcome.final)
	report.Passes = outcome.passes
	report.Iterations = outcome.evals
	report.History = outcome.history
	report.Fingerprint = outcome.design.Fingerprint()
	return report, nil
}

// buildScorer constructs the criterion strategy for the run's mode.
func (s *OptimizerService) buildScorer(req OptimizeRequest, scheme *design.CodingScheme, kind design.CriterionKind) (ports.CriterionScorer, error) {
	if kind != design.CriterionBayesian {
		return engine.NewScorer(s.evaluator, scheme, kind), nil
	}
	if len(req.Spec.Priors) == 0 {
		return nil, apperrors.SpecInvalid("bayesian mode requires at least one attribute prior")
	}
	draws := req.Options.Draws
	if draws <= 0 {
		draws = s.cfg.DefaultDraws
	}
	// One integrator serves all restarts: every restart must score against
	// the same criterion function (same seed) for best-of to be meaningful.
	return bayes.NewIntegrator(req.Spec, scheme, s.evaluator, draws, req.Options.Seed, req.Options.UseChoiceWeights), nil
}

// startingDesigns returns the per-restart initial designs. A supplied
// baseline is feasibility-checked and used alone; otherwise restart 0 is the
// balanced round-robin design and later restarts are seeded random designs.
func (s *OptimizerService) startingDesigns(req OptimizeRequest) ([]*design.Design, error) {
	if req.Options.Baseline != nil {
		baseline := req.Options.Baseline
		if err := baseline.Validate(req.Spec); err != nil {
			return nil, err
		}
		if violations := design.Check(baseline, req.Spec); len(violations) > 0 {
			v := violations[0]
			return nil, apperrors.WithCode(apperrors.CodeBaselineInfeasible,
				core.NewInfeasibleBaselineError(fmt.Sprintf("%s on attribute %q (choice set %d): %s", v.Kind, v.Attribute, v.ChoiceSet, v.Detail)))
		}
		return []*design.Design{baseline.Clone()}, nil
	}

	restarts := req.Options.Restarts
	if restarts <= 0 {
		restarts = s.cfg.Restarts
	}
	balanced := design.Balanced(req.Spec)
	starts := make([]*design.Design, 0, restarts)
	starts = append(starts, balanced)
	for k := 1; k < restarts; k++ {
		stream := s.rng.SeededStream("restart", s.rng.RestartSeed(req.Options.Seed, k))
		candidate := design.Random(req.Spec, stream)
		// The randomized repair is best effort; an infeasible start would
		// poison the best-of reduction, so fall back to the balanced design.
		if req.Spec.Constraints.Any() && !design.IsFeasible(candidate, req.Spec) {
			candidate = balanced.Clone()
		}
		starts = append(starts, candidate)
	}
	return starts, nil
}

// runSampleSize handles the sample-size entry point, which consumes the
// balanced design's dimensions but never enters the search loop.
func (s *OptimizerService) runSampleSize(report *OptimizationReport, req OptimizeRequest) (*OptimizationReport, error) {
	analyzer := power.NewAnalyzer(s.cfg.PowerCurvePoints)
	result, err := analyzer.Recommend(power.Request{
		EffectSize:        req.Options.EffectSize,
		TargetPower:       req.Options.TargetPower,
		Alpha:             req.Options.Alpha,
		CostPerRespondent: req.Options.CostPerRespondent,
		VarianceEstimate:  req.Options.VarianceEstimate,
		MinFeasibleN:      req.Spec.Rows(),
	})
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodePowerTargetInvalid, err)
	}

	d := design.Balanced(req.Spec)
	report.State = StateConverged
	report.Success = true
	report.Design = d
	report.SampleSize = result
	report.Fingerprint = d.Fingerprint()
	return report, nil
}

// searchOutcome is one restart's terminal state.
type searchOutcome struct {
	state   RunState
	design  *design.Design
	initial float64
	final   float64
	passes  int
	evals   int
	history []ExchangeEvent
	err     error
}

// search runs constrained coordinate exchange from one starting design.
// Cells are visited in fixed row-then-attribute order; candidates come from
// the constraint checker in declared level order, so equal improvements
// resolve to the lower level index. Under a level-balance constraint the
// single-cell moves are supplemented with count-preserving swaps of two
// cells in the same attribute column, since an exactly balanced design
// admits no single-cell move at all; singles are scored first and a swap
// must beat them strictly, so the level-index tie-break is unaffected.
// A pass with zero accepted moves converges; running out of evaluation
// budget, or cancellation between passes, exhausts the run with the best
// design found so far.
func (s *OptimizerService) search(ctx context.Context, spec *design.DesignSpec, scorer ports.CriterionScorer, start *design.Design, budget int) searchOutcome {
	d := start.Clone()
	eps := s.cfg.ImprovementEpsilon

	current, err := scorer.Score(ctx, d)
	if err != nil {
		return searchOutcome{
			state:  StateFailed,
			design: d,
			err:    apperrors.Wrapf(err, "scoring the starting design"),
		}
	}

	outcome := searchOutcome{
		state:   StateSearching,
		design:  d,
		initial: current,
		evals:   1,
	}

	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			outcome.state = StateExhausted
			break
		}

		accepted := 0
		exhausted := false
		for row := 0; row < d.Rows() && !exhausted; row++ {
			for attrIdx := range spec.Attributes {
				if exhausted {
					break
				}
				if outcome.evals >= budget {
					exhausted = true
					break
				}

				old := d.Levels[row][attrIdx]
				bestLevel, bestValue := old, current
				bestPartner := -1
				improved := false

				score := func() (float64, bool) {
					value, scoreErr := scorer.Score(ctx, d)
					outcome.evals++
					if scoreErr != nil {
						if errors.Is(scoreErr, context.Canceled) || errors.Is(scoreErr, context.DeadlineExceeded) {
							exhausted = true
						}
						// A singular candidate is expected control flow: the
						// candidate is rejected, the search continues.
						return 0, false
					}
					return value, true
				}

				for _, candidate := range design.CandidateLevels(d, row, attrIdx, spec) {
					if candidate == old {
						continue
					}
					if outcome.evals >= budget {
						exhausted = true
					}
					if exhausted {
						break
					}

					// Apply, verify whole-design feasibility, score, revert.
					// The candidate is never left partially applied.
					d.Levels[row][attrIdx] = candidate
					if spec.Constraints.Any() && !design.IsFeasible(d, spec) {
						d.Levels[row][attrIdx] = old
						continue
					}
					value, ok := score()
					d.Levels[row][attrIdx] = old
					if !ok {
						continue
					}
					if (!improved && value > current+eps) || (improved && value > bestValue) {
						bestLevel, bestValue = candidate, value
						improved = true
					}
				}

				if spec.Constraints.LevelBalance {
					for partner := row + 1; partner < d.Rows(); partner++ {
						partnerLevel := d.Levels[partner][attrIdx]
						if partnerLevel == old {
							continue
						}
						if outcome.evals >= budget {
							exhausted = true
						}
						if exhausted {
							break
						}

						d.Levels[row][attrIdx], d.Levels[partner][attrIdx] = partnerLevel, old
						if !design.IsFeasible(d, spec) {
							d.Levels[row][attrIdx], d.Levels[partner][attrIdx] = old, partnerLevel
							continue
						}
						value, ok := score()
						d.Levels[row][attrIdx], d.Levels[partner][attrIdx] = old, partnerLevel
						if !ok {
							continue
						}
						if (!improved && value > current+eps) || (improved && value > bestValue) {
							bestLevel, bestValue = partnerLevel, value
							bestPartner = partner
							improved = true
						}
					}
				}

				if improved {
					if bestPartner >= 0 {
						d.Levels[row][attrIdx], d.Levels[bestPartner][attrIdx] = d.Levels[bestPartner][attrIdx], d.Levels[row][attrIdx]
					} else {
						d.Levels[row][attrIdx] = bestLevel
					}
					outcome.history = append(outcome.history, ExchangeEvent{
						Pass:       pass,
						Row:        row,
						Attribute:  spec.Attributes[attrIdx].Name,
						OldLevel:   old,
						NewLevel:   bestLevel,
						PartnerRow: bestPartner,
						Delta:      bestValue - current,
					})
					current = bestValue
					accepted++
				}
			}
		}
		outcome.passes = pass

		if exhausted {
			outcome.state = StateExhausted
			break
		}
		if accepted == 0 {
			outcome.state = StateConverged
			break
		}
	}

	outcome.final = current
	return outcome
}

// improvementPct is the relative criterion gain versus the initial design.
func improvementPct(initial, final float64) float64 {
	if math.Abs(initial) < 1e-15 {
		return 0
	}
	return (final - initial) / math.Abs(initial) * 100
}
