package design

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"godce/domain/core"
)

func TestCodingScheme_Columns(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)

	if scheme.Columns() != spec.Parameters() {
		t.Fatalf("coded columns %d must equal parameter count %d", scheme.Columns(), spec.Parameters())
	}
}

func TestCodingScheme_ReferenceLevelCodesToZeros(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)

	d := NewDesign(spec) // every cell at the reference level
	x, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, cols := x.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if x.At(r, c) != 0 {
				t.Fatalf("reference-level design must code to all zeros, found %g at (%d,%d)", x.At(r, c), r, c)
			}
		}
	}
}

func TestCodingScheme_DummyColumnsPerAttribute(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)

	d := NewDesign(spec)
	d.Levels[0] = []int{2, 0, 0, 0} // price level 2 -> column 1 of price's block
	d.Levels[1] = []int{0, 3, 0, 0} // origin level 3 -> column 2 of origin's block
	d.Levels[2] = []int{0, 0, 1, 1} // roast level 1 and organic level 1

	x, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := map[[2]int]float64{
		{0, 1}: 1, // price block starts at 0
		{1, 5}: 1, // origin block starts at 3
		{2, 6}: 1, // roast block starts at 6
		{2, 8}: 1, // organic block starts at 8
	}
	_, cols := x.Dims()
	for r := 0; r < 3; r++ {
		for c := 0; c < cols; c++ {
			want := expect[[2]int{r, c}]
			if x.At(r, c) != want {
				t.Errorf("cell (%d,%d): expected %g, got %g", r, c, want, x.At(r, c))
			}
		}
	}
}

func TestCodingScheme_EncodeIsDeterministic(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)
	d := Balanced(spec)

	a, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Error("encoding the same design twice must yield identical matrices")
	}
}

func TestCodingScheme_UndeclaredLevelFails(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)

	d := NewDesign(spec)
	d.Levels[4][1] = 7

	if _, err := scheme.Encode(d); !core.IsInvalidLevel(err) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestCodingScheme_EncodeRowMatchesEncode(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)
	d := Balanced(spec)

	x, err := scheme.Encode(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for r := 0; r < d.Rows(); r++ {
		v, err := scheme.EncodeRow(d, r)
		if err != nil {
			t.Fatalf("row %d: unexpected error: %v", r, err)
		}
		for c := range v {
			if v[c] != x.At(r, c) {
				t.Fatalf("row %d col %d: EncodeRow %g disagrees with Encode %g", r, c, v[c], x.At(r, c))
			}
		}
	}
}

func TestCodingScheme_ColumnAttribute(t *testing.T) {
	spec, _ := NewDesignSpec(coffeeAttributes(), 3, 12, Constraints{}, nil)
	scheme := NewCodingScheme(spec)

	// price owns 0-2, origin 3-5, roast 6-7, organic 8
	expected := []int{0, 0, 0, 1, 1, 1, 2, 2, 3}
	for col, want := range expected {
		if got := scheme.ColumnAttribute(col); got != want {
			t.Errorf("column %d: expected attribute %d, got %d", col, want, got)
		}
	}
}
