package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Features is an encoded feature table: every column numeric, no missing
// cells.
type Features struct {
	table *dataset.Table
}

// NewFeatures checks that t is fully numeric and complete.
func NewFeatures(t *dataset.Table) (*Features, error) {
	if t == nil {
		return nil, errors.NewInvalidInputError("preprocessing.NewFeatures", "table is nil")
	}
	for _, c := range t.Columns() {
		if c.Kind() != dataset.Numeric {
			return nil, errors.NewInvalidInputError("preprocessing.NewFeatures", "column "+c.Name()+" is not numeric")
		}
		if n := c.MissingCount(); n > 0 {
			return nil, errors.NewInvalidInputError("preprocessing.NewFeatures", "column "+c.Name()+" has missing values")
		}
	}
	return &Features{table: t}, nil
}

// Table returns the underlying table.
func (f *Features) Table() *dataset.Table { return f.table }

func (f *Features) Names() []string { return f.table.Names() }
func (f *Features) Nrow() int       { return f.table.Nrow() }
func (f *Features) Ncol() int       { return f.table.Ncol() }

// Dense copies the features into a row-major matrix. It returns nil for a
// table without rows.
func (f *Features) Dense() *mat.Dense {
	n, p := f.table.Nrow(), f.table.Ncol()
	if n == 0 || p == 0 {
		return nil
	}
	data := make([]float64, n*p)
	for j, c := range f.table.Columns() {
		for i, v := range c.Floats() {
			data[i*p+j] = v
		}
	}
	return mat.NewDense(n, p, data)
}

// Subset returns the rows at the given indices, in that order.
func (f *Features) Subset(rows []int) (*Features, error) {
	t, err := f.table.Subset(rows)
	if err != nil {
		return nil, err
	}
	return &Features{table: t}, nil
}
