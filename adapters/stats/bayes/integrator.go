package bayes

import (
	"context"
	"math"
	randv2 "math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"godce/adapters/stats/engine"
	"godce/domain/core"
	"godce/domain/design"
	"godce/ports"
)

// batchCount fixes the draw partitioning so results do not depend on
// scheduling or GOMAXPROCS.
const batchCount = 8

// Integrator scores designs by Bayesian expected utility: the mean
// log-determinant of the information matrix over Monte Carlo draws from the
// declared parameter priors. Coded parameters without a declared prior draw
// from a standard normal. Sampling is seeded per scoring call, so repeated
// scores of the same design are identical.
type Integrator struct {
	spec             *design.DesignSpec
	scheme           *design.CodingScheme
	evaluator        *engine.Evaluator
	draws            int
	seed             int64
	useChoiceWeights bool
	priorSummary     map[string]string
}

// NewIntegrator creates a Bayesian scorer. Draws is the Monte Carlo sample
// count; useChoiceWeights switches on multinomial-logit choice-probability
// weighting of the information matrix at each parameter draw.
func NewIntegrator(spec *design.DesignSpec, scheme *design.CodingScheme, evaluator *engine.Evaluator, draws int, seed int64, useChoiceWeights bool) *Integrator {
	summary := make(map[string]string, len(spec.Attributes))
	for _, attr := range spec.Attributes {
		if prior, ok := spec.Priors[attr.Name]; ok {
			summary[attr.Name] = prior.Summary()
		} else {
			summary[attr.Name] = "normal(mean=0, sd=1)"
		}
	}
	return &Integrator{
		spec:             spec,
		scheme:           scheme,
		evaluator:        evaluator,
		draws:            draws,
		seed:             seed,
		useChoiceWeights: useChoiceWeights,
		priorSummary:     summary,
	}
}

// Kind identifies the criterion this scorer maximizes.
func (it *Integrator) Kind() design.CriterionKind {
	return design.CriterionBayesian
}

// Score returns the expected utility of a design.
func (it *Integrator) Score(ctx context.Context, d *design.Design) (float64, error) {
	result, err := it.Result(ctx, d)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

// Result computes the expected utility and its diagnostics. Draws run in
// fixed deterministic batches, parallelized with a mean reduction; each batch
// owns its own matrices and PCG stream. Cancellation is honored between
// draws.
func (it *Integrator) Result(ctx context.Context, d *design.Design) (*design.CriterionResult, error) {
	x, err := it.scheme.Encode(d)
	if err != nil {
		return nil, err
	}

	im := it.evaluator.Information(x)
	if im.Singular() {
		return &design.CriterionResult{Kind: design.CriterionBayesian, Success: false},
			core.NewSingularDesignError(string(design.CriterionBayesian), "base information matrix below tolerance")
	}

	if !it.useChoiceWeights {
		// Without choice weighting the per-draw matrix is X'X itself, so the
		// mean over draws collapses to the base log-determinant.
		return &design.CriterionResult{
			Kind:            design.CriterionBayesian,
			Value:           im.LogDet(),
			ExpectedUtility: im.LogDet(),
			LogDeterminant:  im.LogDet(),
			PriorSummary:    it.priorSummary,
			Draws:           it.draws,
			Success:         true,
		}, nil
	}

	sums := make([]float64, batchCount)
	counts := make([]int, batchCount)

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < batchCount; b++ {
		g.Go(func() error {
			src := randv2.NewPCG(uint64(it.seed), uint64(b)+1)
			samplers := it.columnSamplers(src)

			first := b * it.draws / batchCount
			last := (b + 1) * it.draws / batchCount
			beta := make([]float64, it.scheme.Columns())
			for draw := first; draw < last; draw++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j := range beta {
					beta[j] = samplers[j]()
				}
				logDet, err := it.weightedLogDet(x, beta)
				if err != nil {
					return err
				}
				sums[b] += logDet
				counts[b]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0.0
	n := 0
	for b := range sums {
		total += sums[b]
		n += counts[b]
	}
	expected := total / float64(n)

	return &design.CriterionResult{
		Kind:            design.CriterionBayesian,
		Value:           expected,
		ExpectedUtility: expected,
		LogDeterminant:  im.LogDet(),
		PriorSummary:    it.priorSummary,
		Draws:           n,
		Success:         true,
	}, nil
}

// columnSamplers builds one prior sampler per coded column, all sharing the
// batch's source. Normal draws directly, beta draws in [0,1] and maps
// linearly when a range is declared, uniform draws in its bounds.
func (it *Integrator) columnSamplers(src randv2.Source) []func() float64 {
	samplers := make([]func() float64, it.scheme.Columns())
	for col := range samplers {
		attr := it.spec.Attributes[it.scheme.ColumnAttribute(col)]
		prior, ok := it.spec.Priors[attr.Name]
		if !ok {
			prior = design.Prior{Kind: design.PriorNormal, Mean: 0, SD: 1}
		}
		samplers[col] = newSampler(prior, src)
	}
	return samplers
}

func newSampler(p design.Prior, src randv2.Source) func() float64 {
	switch p.Kind {
	case design.PriorBeta:
		dist := distuv.Beta{Alpha: p.Alpha, Beta: p.Beta, Src: src}
		if p.Lower == 0 && p.Upper == 0 {
			return dist.Rand
		}
		lower, width := p.Lower, p.Upper-p.Lower
		return func() float64 { return lower + width*dist.Rand() }
	case design.PriorUniform:
		dist := distuv.Uniform{Min: p.Lower, Max: p.Upper, Src: src}
		return dist.Rand
	default:
		dist := distuv.Normal{Mu: p.Mean, Sigma: p.SD, Src: src}
		return dist.Rand
	}
}

// weightedLogDet forms the MNL-weighted information matrix at one parameter
// draw: each row is scaled by the square root of its choice probability
// within its choice set, then X'X is evaluated as usual.
func (it *Integrator) weightedLogDet(x *mat.Dense, beta []float64) (float64, error) {
	n, p := x.Dims()
	alts := it.spec.Alternatives

	utilities := make([]float64, n)
	for r := 0; r < n; r++ {
		row := x.RawRowView(r)
		u := 0.0
		for j := 0; j < p; j++ {
			u += row[j] * beta[j]
		}
		utilities[r] = u
	}

	weighted := mat.NewDense(n, p, nil)
	for base := 0; base < n; base += alts {
		// Softmax per choice set, max-shifted for stability.
		maxU := utilities[base]
		for r := base + 1; r < base+alts; r++ {
			if utilities[r] > maxU {
				maxU = utilities[r]
			}
		}
		sum := 0.0
		for r := base; r < base+alts; r++ {
			sum += math.Exp(utilities[r] - maxU)
		}
		for r := base; r < base+alts; r++ {
			w := math.Sqrt(math.Exp(utilities[r]-maxU) / sum)
			row := x.RawRowView(r)
			for j := 0; j < p; j++ {
				weighted.Set(r, j, w*row[j])
			}
		}
	}

	im := it.evaluator.Information(weighted)
	if im.Singular() {
		return 0, core.NewSingularDesignError(string(design.CriterionBayesian), "weighted information matrix below tolerance at a parameter draw")
	}
	return im.LogDet(), nil
}

var _ ports.CriterionScorer = (*Integrator)(nil)
