package power

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"godce/domain/core"
	"godce/domain/design"
)

// Analyzer performs the power analysis behind sample-size recommendations.
// It consumes a design's efficiency output; it never participates in the
// search loop.
type Analyzer struct {
	curvePoints int
}

// NewAnalyzer creates an analyzer producing curves with the given number of
// points.
func NewAnalyzer(curvePoints int) *Analyzer {
	if curvePoints < 2 {
		curvePoints = 20
	}
	return &Analyzer{curvePoints: curvePoints}
}

// Request holds the power-analysis inputs.
type Request struct {
	EffectSize  float64 `json:"effect_size"`
	TargetPower float64 `json:"target_power"`
	Alpha       float64 `json:"alpha"`

	// CostPerRespondent scales the cost-effectiveness profile. Non-positive
	// values fall back to unit cost.
	CostPerRespondent float64 `json:"cost_per_respondent"`
	VarianceEstimate  float64 `json:"variance_estimate"`

	// MinFeasibleN anchors the low end of the power curve, typically the
	// design's row count. Zero means the built-in floor of 10.
	MinFeasibleN int `json:"min_feasible_n,omitempty"`
}

func (r Request) validate() error {
	if r.TargetPower <= 0 || r.TargetPower >= 1 {
		return core.NewInvalidPowerTargetError("target_power", r.TargetPower)
	}
	if r.Alpha <= 0 || r.Alpha >= 1 {
		return core.NewInvalidPowerTargetError("alpha", r.Alpha)
	}
	if r.EffectSize <= 0 {
		return core.NewInvalidPowerTargetError("effect_size", r.EffectSize)
	}
	if r.VarianceEstimate <= 0 {
		return core.NewInvalidPowerTargetError("variance_estimate", r.VarianceEstimate)
	}
	return nil
}

// cost returns the per-respondent cost, treating a missing or non-positive
// value as unit cost so cost-effectiveness degrades to power per respondent.
func (r Request) cost() float64 {
	if r.CostPerRespondent <= 0 {
		return 1
	}
	return r.CostPerRespondent
}

// Recommend computes the required sample size via the two-sided power
// relation N = ((z_{1-alpha/2} + z_{1-beta})^2 * variance) / effect^2,
// rounded up, together with the power curve and cost-effectiveness profile.
func (a *Analyzer) Recommend(req Request) (*design.SampleSizeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	zAlpha := distuv.UnitNormal.Quantile(1 - req.Alpha/2)
	zBeta := distuv.UnitNormal.Quantile(req.TargetPower)

	raw := (zAlpha + zBeta) * (zAlpha + zBeta) * req.VarianceEstimate / (req.EffectSize * req.EffectSize)
	recommended := int(math.Ceil(raw))
	if recommended < 1 {
		recommended = 1
	}

	result := &design.SampleSizeResult{
		RecommendedN:      recommended,
		AchievedPower:     a.Power(recommended, req.EffectSize, req.Alpha, req.VarianceEstimate),
		StandardError:     math.Sqrt(req.VarianceEstimate / float64(recommended)),
		CostEffectiveness: 0,
	}
	result.CostEffectiveness = result.AchievedPower / (float64(recommended) * req.cost())

	result.Curve = a.curve(req, recommended)

	powers := make([]float64, len(result.Curve))
	bestValue := result.Curve[0]
	for i, point := range result.Curve {
		powers[i] = point.Power
		if point.CostEffectiveness > bestValue.CostEffectiveness {
			bestValue = point
		}
	}
	result.BestValueN = bestValue.N
	result.MeanCurvePower, _ = stats.Mean(powers)

	return result, nil
}

// Power evaluates achieved power at a sample size: the inverse of the
// recommendation relation, Phi(effect * sqrt(N/variance) - z_{1-alpha/2}).
func (a *Analyzer) Power(n int, effectSize, alpha, variance float64) float64 {
	if n < 1 {
		return 0
	}
	zAlpha := distuv.UnitNormal.Quantile(1 - alpha/2)
	shift := effectSize*math.Sqrt(float64(n)/variance) - zAlpha
	return distuv.UnitNormal.CDF(shift)
}

// curve sweeps candidate N values linearly from the minimum feasible N to
// three times the recommendation, so a caller can pick a knee-point.
func (a *Analyzer) curve(req Request, recommended int) []design.PowerPoint {
	low := req.MinFeasibleN
	if low < 10 {
		low = 10
	}
	high := 3 * recommended
	if high <= low {
		high = low + a.curvePoints
	}

	points := make([]design.PowerPoint, 0, a.curvePoints)
	step := float64(high-low) / float64(a.curvePoints-1)
	prev := -1
	for i := 0; i < a.curvePoints; i++ {
		n := low + int(math.Round(float64(i)*step))
		if n == prev {
			continue
		}
		prev = n
		p := a.Power(n, req.EffectSize, req.Alpha, req.VarianceEstimate)
		cost := float64(n) * req.cost()
		points = append(points, design.PowerPoint{
			N:                 n,
			Power:             p,
			StandardError:     math.Sqrt(req.VarianceEstimate / float64(n)),
			Cost:              cost,
			CostEffectiveness: p / cost,
		})
	}
	return points
}
