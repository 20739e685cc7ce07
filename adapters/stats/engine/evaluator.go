package engine

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"godce/domain/core"
	"godce/domain/design"
)

// Evaluator computes information matrices and the efficiency criteria.
type Evaluator struct {
	singularityTol float64
}

// NewEvaluator creates an evaluator with the given relative singularity
// tolerance for near-singular detection.
func NewEvaluator(singularityTol float64) *Evaluator {
	return &Evaluator{singularityTol: singularityTol}
}

// InfoMatrix is one information matrix X'X together with its factorizations.
// All criteria requested for a scoring call are answered from the same
// instance, so cross-criterion comparisons are always consistent.
type InfoMatrix struct {
	XtX *mat.SymDense
	X   *mat.Dense
	N   int
	P   int

	logDet   float64
	detSign  float64
	singular bool

	chol    mat.Cholesky
	cholOK  bool
	inverse *mat.SymDense
}

// Information computes X'X and its determinant. Cholesky is tried first;
// when X'X is not numerically positive definite the determinant falls back
// to LU with pivoting. Near-singularity is flagged relative to matrix scale.
func (e *Evaluator) Information(x *mat.Dense) *InfoMatrix {
	n, p := x.Dims()
	im := &InfoMatrix{X: x, N: n, P: p, detSign: 1}

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())
	im.XtX = xtx

	if n < p {
		im.singular = true
		im.logDet = math.Inf(-1)
		return im
	}

	if im.chol.Factorize(xtx) {
		im.cholOK = true
		im.logDet = im.chol.LogDet()
	} else {
		var lu mat.LU
		lu.Factorize(xtx)
		im.logDet, im.detSign = lu.LogDet()
	}

	if im.detSign <= 0 {
		im.singular = true
		return im
	}

	// Relative tolerance: det(X'X) against tol * max(1, scale)^p where scale
	// is the mean absolute diagonal, compared in log space to avoid overflow.
	scale := 0.0
	for i := 0; i < p; i++ {
		scale += math.Abs(xtx.At(i, i))
	}
	scale /= float64(p)
	threshold := math.Log(e.singularityTol) + float64(p)*math.Log(math.Max(1, scale))
	if im.logDet <= threshold {
		im.singular = true
	}
	return im
}

// Singular reports whether the matrix failed the invertibility check.
func (im *InfoMatrix) Singular() bool {
	return im.singular
}

// LogDet returns the log determinant of X'X.
func (im *InfoMatrix) LogDet() float64 {
	return im.logDet
}

// Determinant returns det(X'X), zero when non-positive.
func (im *InfoMatrix) Determinant() float64 {
	if im.detSign <= 0 {
		return 0
	}
	return math.Exp(im.logDet)
}

// Inverse returns (X'X)^-1, computed once and cached. Requires a successful
// Cholesky factorization.
func (im *InfoMatrix) Inverse() (*mat.SymDense, error) {
	if im.inverse != nil {
		return im.inverse, nil
	}
	if im.singular || !im.cholOK {
		return nil, core.NewSingularDesignError("inverse", "information matrix is not positive definite")
	}
	inv := mat.NewSymDense(im.P, nil)
	if err := im.chol.InverseTo(inv); err != nil {
		return nil, core.NewSingularDesignError("inverse", err.Error())
	}
	im.inverse = inv
	return inv, nil
}

// Leverages returns h_i = x_i (X'X)^-1 x_i' for every design row.
func (im *InfoMatrix) Leverages() ([]float64, error) {
	inv, err := im.Inverse()
	if err != nil {
		return nil, err
	}
	h := make([]float64, im.N)
	tmp := make([]float64, im.P)
	for r := 0; r < im.N; r++ {
		row := im.X.RawRowView(r)
		for j := 0; j < im.P; j++ {
			s := 0.0
			for k := 0; k < im.P; k++ {
				s += inv.At(j, k) * row[k]
			}
			tmp[j] = s
		}
		lev := 0.0
		for j := 0; j < im.P; j++ {
			lev += row[j] * tmp[j]
		}
		h[r] = lev
	}
	return h, nil
}

// Criterion computes one efficiency criterion from this information matrix.
// A singular matrix yields a failed result and ErrSingularDesign instead of
// a misleading efficiency number.
func (e *Evaluator) Criterion(im *InfoMatrix, kind design.CriterionKind) (*design.CriterionResult, error) {
	failed := &design.CriterionResult{Kind: kind, Success: false}
	switch kind {
	case design.CriterionD:
		if im.Singular() {
			return failed, core.NewSingularDesignError(string(kind), "determinant below tolerance")
		}
		dEff := math.Exp(im.logDet/float64(im.P)) / float64(im.N) * float64(im.P)
		return &design.CriterionResult{
			Kind:           kind,
			Value:          dEff,
			Efficiency:     dEff,
			LogDeterminant: im.logDet,
			Success:        true,
		}, nil

	case design.CriterionG:
		lev, err := im.Leverages()
		if err != nil {
			return failed, core.NewSingularDesignError(string(kind), "leverage requires an invertible information matrix")
		}
		maxLev, err := stats.Max(lev)
		if err != nil || maxLev <= 0 {
			return failed, core.NewSingularDesignError(string(kind), "degenerate leverage profile")
		}
		gEff := 1 / maxLev
		return &design.CriterionResult{
			Kind:        kind,
			Value:       gEff,
			Efficiency:  gEff,
			MaxLeverage: maxLev,
			Success:     true,
		}, nil

	case design.CriterionI:
		lev, err := im.Leverages()
		if err != nil {
			return failed, core.NewSingularDesignError(string(kind), "prediction variance requires an invertible information matrix")
		}
		meanVar, err := stats.Mean(lev)
		if err != nil || meanVar <= 0 {
			return failed, core.NewSingularDesignError(string(kind), "degenerate prediction-variance profile")
		}
		iEff := 1 / meanVar
		return &design.CriterionResult{
			Kind:                   kind,
			Value:                  iEff,
			Efficiency:             iEff,
			MeanPredictionVariance: meanVar,
			Success:                true,
		}, nil
	}
	return failed, core.NewInvalidSpecError("criterion", "unknown criterion kind "+string(kind))
}

// EfficiencyReport is the full metrics set for analyze workflows: the three
// optimizer criteria plus A-efficiency, determinant, trace, and condition
// number.
type EfficiencyReport struct {
	DEfficiency     float64 `json:"d_efficiency"`
	AEfficiency     float64 `json:"a_efficiency"`
	GEfficiency     float64 `json:"g_efficiency"`
	IEfficiency     float64 `json:"i_efficiency"`
	Determinant     float64 `json:"determinant"`
	LogDeterminant  float64 `json:"log_determinant"`
	Trace           float64 `json:"trace"`
	ConditionNumber float64 `json:"condition_number"`
	MaxLeverage     float64 `json:"max_leverage"`
	MeanLeverage    float64 `json:"mean_leverage"`
	Rows            int     `json:"rows"`
	Parameters      int     `json:"parameters"`
}

// Report computes the full metrics set from one information matrix.
func (e *Evaluator) Report(im *InfoMatrix) (*EfficiencyReport, error) {
	if im.Singular() {
		return nil, core.NewSingularDesignError("report", "determinant below tolerance")
	}
	lev, err := im.Leverages()
	if err != nil {
		return nil, err
	}
	inv, err := im.Inverse()
	if err != nil {
		return nil, err
	}
	maxLev, _ := stats.Max(lev)
	meanLev, _ := stats.Mean(lev)

	traceInv := 0.0
	trace := 0.0
	for i := 0; i < im.P; i++ {
		traceInv += inv.At(i, i)
		trace += im.XtX.At(i, i)
	}

	return &EfficiencyReport{
		DEfficiency:     math.Exp(im.logDet/float64(im.P)) / float64(im.N) * float64(im.P),
		AEfficiency:     float64(im.P) / traceInv,
		GEfficiency:     1 / maxLev,
		IEfficiency:     1 / meanLev,
		Determinant:     im.Determinant(),
		LogDeterminant:  im.logDet,
		Trace:           trace,
		ConditionNumber: mat.Cond(im.XtX, 2),
		MaxLeverage:     maxLev,
		MeanLeverage:    meanLev,
		Rows:            im.N,
		Parameters:      im.P,
	}, nil
}
