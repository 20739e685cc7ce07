package engine

import (
	"context"
	"math"
	"testing"

	"godce/domain/core"
	"godce/domain/design"
	"godce/internal/testkit"
)

func codedCoffee(t *testing.T) (*design.DesignSpec, *InfoMatrix) {
	t.Helper()
	spec := testkit.CoffeeSpec()
	scheme := design.NewCodingScheme(spec)
	d := design.Balanced(spec)
	x, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return spec, NewEvaluator(1e-10).Information(x)
}

func TestInformation_BalancedCoffeeIsInvertible(t *testing.T) {
	spec, im := codedCoffee(t)

	if im.Singular() {
		t.Fatal("the balanced coffee design must be invertible")
	}
	if im.N != spec.Rows() || im.P != spec.Parameters() {
		t.Errorf("expected %dx%d, got %dx%d", spec.Rows(), spec.Parameters(), im.N, im.P)
	}
	if im.Determinant() <= 0 {
		t.Errorf("expected a positive determinant, got %g", im.Determinant())
	}
}

func TestInformation_FewerRowsThanParameters(t *testing.T) {
	spec, err := design.NewDesignSpec(
		testkit.CoffeeSpec().Attributes, 2, 4, design.Constraints{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 8 rows against 9 parameters: singular before any factorization.
	scheme := design.NewCodingScheme(spec)
	x, err := scheme.Encode(design.Balanced(spec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	im := NewEvaluator(1e-10).Information(x)
	if !im.Singular() {
		t.Error("N < p must be flagged singular")
	}
	if !math.IsInf(im.LogDet(), -1) {
		t.Errorf("expected -Inf log determinant, got %g", im.LogDet())
	}
}

func TestInformation_CollinearColumnsAreSingular(t *testing.T) {
	spec := testkit.CoffeeSpec()
	scheme := design.NewCodingScheme(spec)

	// Force price and origin into lockstep: their coded blocks become
	// identical columns.
	d := design.NewDesign(spec)
	for r := range d.Levels {
		d.Levels[r][0] = r % 4
		d.Levels[r][1] = r % 4
		d.Levels[r][2] = r % 3
		d.Levels[r][3] = r % 2
	}
	x, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	im := NewEvaluator(1e-10).Information(x)
	if !im.Singular() {
		t.Error("collinear coded columns must be flagged singular")
	}
}

func TestCriterion_DOnBalancedDesign(t *testing.T) {
	_, im := codedCoffee(t)
	ev := NewEvaluator(1e-10)

	result, err := ev.Criterion(im, design.CriterionD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Value <= 0 {
		t.Errorf("expected a positive D-efficiency, got %+v", result)
	}
	if result.LogDeterminant != im.LogDet() {
		t.Errorf("log determinant mismatch: %g vs %g", result.LogDeterminant, im.LogDet())
	}
}

func TestCriterion_GAndIRelation(t *testing.T) {
	_, im := codedCoffee(t)
	ev := NewEvaluator(1e-10)

	g, err := ev.Criterion(im, design.CriterionG)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, err := ev.Criterion(im, design.CriterionI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.MaxLeverage <= 0 || i.MeanPredictionVariance <= 0 {
		t.Fatalf("leverage diagnostics must be positive: %+v %+v", g, i)
	}
	// Mean leverage never exceeds max leverage, so I-efficiency >= G-efficiency.
	if i.Value < g.Value {
		t.Errorf("I-efficiency %g must be at least G-efficiency %g", i.Value, g.Value)
	}
}

func TestCriterion_SingularYieldsTypedError(t *testing.T) {
	spec := testkit.CoffeeSpec()
	scheme := design.NewCodingScheme(spec)
	x, err := scheme.Encode(design.NewDesign(spec)) // all-reference design: X = 0
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := NewEvaluator(1e-10)
	im := ev.Information(x)

	for _, kind := range []design.CriterionKind{design.CriterionD, design.CriterionG, design.CriterionI} {
		result, err := ev.Criterion(im, kind)
		if !core.IsSingularDesign(err) {
			t.Errorf("%s: expected ErrSingularDesign, got %v", kind, err)
		}
		if result == nil || result.Success {
			t.Errorf("%s: a singular design must yield a failed result, got %+v", kind, result)
		}
	}
}

func TestCriterion_UnknownKind(t *testing.T) {
	_, im := codedCoffee(t)
	if _, err := NewEvaluator(1e-10).Criterion(im, "e-optimal"); !core.IsInvalidSpec(err) {
		t.Errorf("expected ErrInvalidSpec for an unknown criterion, got %v", err)
	}
}

func TestLeverages_SumToParameterCount(t *testing.T) {
	spec, im := codedCoffee(t)
	lev, err := im.Leverages()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// trace(H) = p is an identity of the hat matrix.
	sum := 0.0
	for _, h := range lev {
		sum += h
	}
	if math.Abs(sum-float64(spec.Parameters())) > 1e-8 {
		t.Errorf("leverages must sum to p=%d, got %g", spec.Parameters(), sum)
	}
}

func TestReport_FullMetrics(t *testing.T) {
	spec, im := codedCoffee(t)
	report, err := NewEvaluator(1e-10).Report(im)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.DEfficiency <= 0 || report.AEfficiency <= 0 || report.GEfficiency <= 0 || report.IEfficiency <= 0 {
		t.Errorf("all efficiencies must be positive: %+v", report)
	}
	if report.MeanLeverage > report.MaxLeverage {
		t.Errorf("mean leverage %g cannot exceed max leverage %g", report.MeanLeverage, report.MaxLeverage)
	}
	if report.ConditionNumber < 1 {
		t.Errorf("condition number must be at least 1, got %g", report.ConditionNumber)
	}
	if report.Rows != spec.Rows() || report.Parameters != spec.Parameters() {
		t.Errorf("dimension mismatch: %+v", report)
	}
}

func TestScorer_DeterministicScores(t *testing.T) {
	spec := testkit.CoffeeSpec()
	scheme := design.NewCodingScheme(spec)
	scorer := NewScorer(NewEvaluator(1e-10), scheme, design.CriterionD)
	d := design.Balanced(spec)

	a, err := scorer.Score(context.Background(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := scorer.Score(context.Background(), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("repeated scores of the same design must be bit-identical: %g vs %g", a, b)
	}
	if scorer.Kind() != design.CriterionD {
		t.Errorf("unexpected criterion kind %s", scorer.Kind())
	}
}
