package design

// CriterionKind identifies the efficiency criterion driving a scoring call.
// The four optimizer modes share one search skeleton and differ only in the
// scoring function, so the kind is a tag, not a type hierarchy.
type CriterionKind string

const (
	CriterionD        CriterionKind = "d-optimal"
	CriterionG        CriterionKind = "g-optimal"
	CriterionI        CriterionKind = "i-optimal"
	CriterionBayesian CriterionKind = "bayesian"
)

// CriterionResult is the outcome of scoring one design under one criterion.
// Only the fields for its Kind carry meaning beyond Value:
// D: Efficiency + LogDeterminant; G: Efficiency + MaxLeverage;
// I: Efficiency + MeanPredictionVariance; Bayesian: ExpectedUtility + priors.
type CriterionResult struct {
	Kind                   CriterionKind     `json:"kind"`
	Value                  float64           `json:"value"` // the quantity the optimizer maximizes
	Efficiency             float64           `json:"efficiency,omitempty"`
	LogDeterminant         float64           `json:"log_determinant,omitempty"`
	MaxLeverage            float64           `json:"max_leverage,omitempty"`
	MeanPredictionVariance float64           `json:"mean_prediction_variance,omitempty"`
	ExpectedUtility        float64           `json:"expected_utility,omitempty"`
	PriorSummary           map[string]string `json:"prior_summary,omitempty"`
	Draws                  int               `json:"draws,omitempty"`
	Iterations             int               `json:"iterations"`
	Success                bool              `json:"success"`
}

// PowerPoint is one point on the power-versus-N curve.
type PowerPoint struct {
	N                 int     `json:"n"`
	Power             float64 `json:"power"`
	StandardError     float64 `json:"standard_error"`
	Cost              float64 `json:"cost"`
	CostEffectiveness float64 `json:"cost_effectiveness"`
}

// SampleSizeResult is the output of the power analysis: the recommended
// respondent count, the power it achieves, and the curve a caller can use to
// pick a knee-point.
type SampleSizeResult struct {
	RecommendedN      int          `json:"recommended_n"`
	AchievedPower     float64      `json:"achieved_power"`
	StandardError     float64      `json:"standard_error"`
	Curve             []PowerPoint `json:"curve"`
	CostEffectiveness float64      `json:"cost_effectiveness"`
	MeanCurvePower    float64      `json:"mean_curve_power"`
	BestValueN        int          `json:"best_value_n"` // highest cost-effectiveness on the curve
}
