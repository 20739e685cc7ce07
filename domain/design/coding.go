package design

import (
	"gonum.org/v1/gonum/mat"

	"godce/domain/core"
)

// CodingScheme is the deterministic, invertible mapping from (attribute,
// level) pairs to numeric design-matrix columns. Reference-level dummy
// coding: an attribute with L levels contributes L-1 columns, the first
// declared level being the reference. Column order is attribute declaration
// order, then level order within the attribute - this ordering is what makes
// efficiency numbers reproducible for a given spec, so it never changes for
// the lifetime of an optimization run.
type CodingScheme struct {
	attrs   []Attribute
	offsets []int // starting column per attribute
	columns int   // p
}

// NewCodingScheme builds the coding scheme for a specification.
func NewCodingScheme(spec *DesignSpec) *CodingScheme {
	offsets := make([]int, len(spec.Attributes))
	col := 0
	for i, attr := range spec.Attributes {
		offsets[i] = col
		col += attr.LevelCount() - 1
	}
	return &CodingScheme{
		attrs:   spec.Attributes,
		offsets: offsets,
		columns: col,
	}
}

// Columns returns p, the number of coded columns.
func (c *CodingScheme) Columns() int {
	return c.columns
}

// ColumnAttribute returns the declaration index of the attribute that owns a
// coded column.
func (c *CodingScheme) ColumnAttribute(col int) int {
	for i := len(c.offsets) - 1; i >= 0; i-- {
		if col >= c.offsets[i] {
			return i
		}
	}
	return -1
}

// Encode maps a design to its numeric design matrix. Encoding the same
// design under the same scheme yields bit-identical output. A row that
// references an undeclared level fails with ErrInvalidLevel.
func (c *CodingScheme) Encode(d *Design) (*mat.Dense, error) {
	rows := d.Rows()
	x := mat.NewDense(rows, c.columns, nil)
	for r, row := range d.Levels {
		if len(row) != len(c.attrs) {
			return nil, core.NewInvalidSpecError("design", "row width does not match coding scheme")
		}
		for a, level := range row {
			if level < 0 || level >= c.attrs[a].LevelCount() {
				return nil, core.NewInvalidLevelError(r, c.attrs[a].Name, level)
			}
			// Reference level (index 0) codes to all zeros for this attribute.
			if level > 0 {
				x.Set(r, c.offsets[a]+level-1, 1)
			}
		}
	}
	return x, nil
}

// EncodeRow codes a single row into a p-length vector. Shares the column
// layout with Encode.
func (c *CodingScheme) EncodeRow(d *Design, row int) ([]float64, error) {
	v := make([]float64, c.columns)
	for a, level := range d.Levels[row] {
		if level < 0 || level >= c.attrs[a].LevelCount() {
			return nil, core.NewInvalidLevelError(row, c.attrs[a].Name, level)
		}
		if level > 0 {
			v[c.offsets[a]+level-1] = 1
		}
	}
	return v, nil
}
