package preprocessing

import (
	"github.com/YuminosukeSato/riskassess/core/model"
	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// CategorySet is the ordered set of categories of one column, in order of
// first appearance. The first entry is the reference category.
type CategorySet struct {
	Column     string
	Categories []string
}

// Reference returns the category represented by all indicators being zero.
func (c CategorySet) Reference() string {
	if len(c.Categories) == 0 {
		return ""
	}
	return c.Categories[0]
}

// OneHotEncoder expands categorical columns into 0/1 indicator columns named
// <column>_<value>. Numeric columns pass through unchanged. With drop-first
// (the default) the first category of each column gets no indicator.
type OneHotEncoder struct {
	state     *model.StateManager
	dropFirst bool

	inputs  []string
	sets    map[string]CategorySet
	outputs []string
}

// OneHotEncoderOption configures a OneHotEncoder.
type OneHotEncoderOption func(*OneHotEncoder)

// WithDropFirst sets whether the reference category is dropped.
func WithDropFirst(drop bool) OneHotEncoderOption {
	return func(e *OneHotEncoder) {
		e.dropFirst = drop
	}
}

// NewOneHotEncoder creates an unfitted encoder.
func NewOneHotEncoder(opts ...OneHotEncoderOption) *OneHotEncoder {
	e := &OneHotEncoder{
		state:     model.NewStateManager(),
		dropFirst: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit records the categories of every categorical column of t and the
// resulting output column names.
//
// It fails with InvalidInput when an indicator name equals another output
// column (a categorical c with value b next to a column named c_b) and when
// no output column remains, which happens when every column is categorical
// with a single category.
func (e *OneHotEncoder) Fit(t *dataset.Table) error {
	if t == nil {
		return errors.NewInvalidInputError("OneHotEncoder.Fit", "table is nil")
	}

	var inputs, outputs []string
	sets := make(map[string]CategorySet)
	for _, c := range t.Columns() {
		inputs = append(inputs, c.Name())
		if c.Kind() != dataset.Categorical {
			outputs = append(outputs, c.Name())
			continue
		}
		set := CategorySet{Column: c.Name(), Categories: distinct(c.Strings())}
		sets[c.Name()] = set
		outputs = append(outputs, e.indicatorNames(set)...)
	}

	seen := make(map[string]bool, len(outputs))
	for _, name := range outputs {
		if seen[name] {
			return errors.NewInvalidInputError("OneHotEncoder.Fit",
				"encoded column "+name+" would appear twice; rename the colliding column")
		}
		seen[name] = true
	}
	if len(outputs) == 0 {
		return errors.NewInvalidInputError("OneHotEncoder.Fit",
			"encoding produced no columns: every feature is a single-category column")
	}

	e.inputs = inputs
	e.sets = sets
	e.outputs = outputs
	e.state.SetFitted(len(inputs), t.Nrow())
	return nil
}

func distinct(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (e *OneHotEncoder) encoded(set CategorySet) []string {
	if e.dropFirst && len(set.Categories) > 0 {
		return set.Categories[1:]
	}
	return set.Categories
}

func (e *OneHotEncoder) indicatorNames(set CategorySet) []string {
	cats := e.encoded(set)
	names := make([]string, len(cats))
	for i, v := range cats {
		names[i] = set.Column + "_" + v
	}
	return names
}

// Transform encodes t with the fitted categories. Every fitted column must
// be present. A category unseen during Fit encodes as all zeros.
func (e *OneHotEncoder) Transform(t *dataset.Table) (*dataset.Table, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NewInvalidInputError("OneHotEncoder.Transform", "table is nil")
	}

	var out []dataset.Column
	for _, name := range e.inputs {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		set, categorical := e.sets[name]
		if !categorical {
			out = append(out, dataset.NewNumeric(name, c.Floats()))
			continue
		}
		values := c.Strings()
		for _, cat := range e.encoded(set) {
			ind := make([]float64, len(values))
			for i, v := range values {
				if v == cat {
					ind[i] = 1
				}
			}
			out = append(out, dataset.NewNumeric(set.Column+"_"+cat, ind))
		}
	}
	return dataset.NewTable(out...)
}

// FitTransform fits on t and encodes it.
func (e *OneHotEncoder) FitTransform(t *dataset.Table) (*dataset.Table, error) {
	if err := e.Fit(t); err != nil {
		return nil, err
	}
	return e.Transform(t)
}

// FeatureNames returns the output column names in order.
func (e *OneHotEncoder) FeatureNames() []string {
	return append([]string(nil), e.outputs...)
}

// Categories returns the fitted category set of a categorical column.
func (e *OneHotEncoder) Categories(column string) (CategorySet, bool) {
	set, ok := e.sets[column]
	return set, ok
}

// IsFitted reports whether Fit has completed.
func (e *OneHotEncoder) IsFitted() bool { return e.state.IsFitted() }
