package preprocessing

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/riskassess/core/model"
	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Strategy selects how a column's fill value is computed.
type Strategy string

const (
	// StrategyMean fills numeric columns with the mean of present values.
	StrategyMean Strategy = "mean"
	// StrategyMostFrequent fills categorical columns with the mode.
	StrategyMostFrequent Strategy = "most_frequent"
)

// FillValue is the imputation value of one column.
type FillValue struct {
	Column   string
	Kind     dataset.Kind
	Strategy Strategy
	Number   float64 // set for numeric columns
	Category string  // set for categorical columns
	Missing  int     // missing cells seen during Fit
}

func (f FillValue) String() string {
	if f.Kind == dataset.Categorical {
		return f.Category
	}
	return strconv.FormatFloat(f.Number, 'f', -1, 64)
}

// SimpleImputer replaces missing cells column by column: the mean for
// numeric columns and the most frequent value for categorical ones. Each
// column is handled in isolation.
type SimpleImputer struct {
	state  *model.StateManager
	values []FillValue
	index  map[string]int
}

// NewSimpleImputer creates an unfitted SimpleImputer.
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{state: model.NewStateManager()}
}

// Fit computes one fill value per column of t.
//
// A column without any present value has no mean or mode and yields an
// ImputationError naming the column.
func (im *SimpleImputer) Fit(t *dataset.Table) error {
	if t == nil {
		return errors.NewInvalidInputError("SimpleImputer.Fit", "table is nil")
	}
	if t.Nrow() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "SimpleImputer.Fit")
	}

	cols := t.Columns()
	values := make([]FillValue, len(cols))
	index := make(map[string]int, len(cols))
	for j, c := range cols {
		fv, err := fitColumn(c)
		if err != nil {
			return err
		}
		values[j] = fv
		index[c.Name()] = j
	}

	im.values = values
	im.index = index
	im.state.SetFitted(len(cols), t.Nrow())
	return nil
}

func fitColumn(c dataset.Column) (FillValue, error) {
	fv := FillValue{Column: c.Name(), Kind: c.Kind(), Missing: c.MissingCount()}
	if fv.Missing == c.Len() {
		return fv, errors.NewImputationError("SimpleImputer.Fit", c.Name(), "all values are missing")
	}

	if c.Kind() == dataset.Categorical {
		fv.Strategy = StrategyMostFrequent
		fv.Category = mode(c.Strings())
		return fv, nil
	}

	fv.Strategy = StrategyMean
	present := make([]float64, 0, c.Len()-fv.Missing)
	for _, v := range c.Floats() {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	fv.Number = stat.Mean(present, nil)
	if err := errors.CheckScalar("SimpleImputer.Fit", fv.Number); err != nil {
		return fv, errors.NewImputationError("SimpleImputer.Fit", c.Name(), fmt.Sprintf("mean is not finite: %v", err))
	}
	return fv, nil
}

// mode returns the most frequent non-empty value. Ties go to the value that
// reaches the maximum count first in order of first appearance.
func mode(values []string) string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// Transform returns a copy of t with missing cells replaced. Every column of
// t must have been seen by Fit. Numeric columns come back as float columns.
func (im *SimpleImputer) Transform(t *dataset.Table) (*dataset.Table, error) {
	if err := im.state.RequireFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NewInvalidInputError("SimpleImputer.Transform", "table is nil")
	}

	cols := t.Columns()
	out := make([]dataset.Column, len(cols))
	for j, c := range cols {
		k, ok := im.index[c.Name()]
		if !ok {
			return nil, errors.NewUnknownColumnError("SimpleImputer.Transform", c.Name())
		}
		out[j] = fill(c, im.values[k])
	}
	return dataset.NewTable(out...)
}

func fill(c dataset.Column, fv FillValue) dataset.Column {
	if fv.Kind == dataset.Categorical {
		vals := c.Strings()
		for i, v := range vals {
			if v == "" {
				vals[i] = fv.Category
			}
		}
		return dataset.NewCategorical(c.Name(), vals)
	}
	vals := c.Floats()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = fv.Number
		}
	}
	return dataset.NewNumeric(c.Name(), vals)
}

// FitTransform fits on t and returns t with missing cells replaced.
func (im *SimpleImputer) FitTransform(t *dataset.Table) (*dataset.Table, error) {
	if err := im.Fit(t); err != nil {
		return nil, err
	}
	return im.Transform(t)
}

// FillValues returns the fitted values in column order.
func (im *SimpleImputer) FillValues() []FillValue {
	out := make([]FillValue, len(im.values))
	copy(out, im.values)
	return out
}

// FillValue returns the fitted value of one column.
func (im *SimpleImputer) FillValue(column string) (FillValue, bool) {
	k, ok := im.index[column]
	if !ok {
		return FillValue{}, false
	}
	return im.values[k], true
}

// IsFitted reports whether Fit has completed.
func (im *SimpleImputer) IsFitted() bool { return im.state.IsFitted() }
