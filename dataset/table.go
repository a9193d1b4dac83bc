// Package dataset holds tabular data for the risk pipeline.
//
// A Table is a thin wrapper over a gota DataFrame: ordered, named columns of
// equal length where any cell may be missing. Column kinds are inferred from
// the values when the table is read.
package dataset

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Kind is the type classification of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// missingText is how gota spells a missing cell.
const missingText = "NaN"

// Column is one named column of a Table.
type Column struct {
	s series.Series
}

// NewNumeric creates a numeric column. NaN entries are missing.
func NewNumeric(name string, values []float64) Column {
	return Column{s: series.New(values, series.Float, name)}
}

// NewCategorical creates a categorical column. Empty strings are missing.
func NewCategorical(name string, values []string) Column {
	raw := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			raw[i] = missingText
			continue
		}
		raw[i] = v
	}
	return Column{s: series.New(raw, series.String, name)}
}

// ColumnFromSeries wraps a gota series.
func ColumnFromSeries(s series.Series) Column {
	return Column{s: s}
}

func (c Column) Name() string { return c.s.Name }

// Len returns the number of rows. The zero Column has none.
func (c Column) Len() int {
	if c.s.Type() == "" {
		return 0
	}
	return c.s.Len()
}

// Kind returns Categorical for text columns and Numeric for int, float and
// bool columns.
func (c Column) Kind() Kind {
	if c.s.Type() == series.String {
		return Categorical
	}
	return Numeric
}

// Series returns the underlying gota series.
func (c Column) Series() series.Series { return c.s }

// IsMissing reports whether row i holds no value.
func (c Column) IsMissing(i int) bool {
	return c.s.Elem(i).IsNA()
}

// MissingCount returns the number of missing cells.
func (c Column) MissingCount() int {
	if c.Len() == 0 {
		return 0
	}
	n := 0
	for _, na := range c.s.IsNaN() {
		if na {
			n++
		}
	}
	return n
}

// Floats returns the values as float64, NaN where missing. Bool values read
// as 0 and 1.
func (c Column) Floats() []float64 {
	if c.Len() == 0 {
		return nil
	}
	out := c.s.Float()
	for i := range out {
		if c.IsMissing(i) {
			out[i] = math.NaN()
		}
	}
	return out
}

// Strings returns the values as text, "" where missing.
func (c Column) Strings() []string {
	if c.Len() == 0 {
		return nil
	}
	out := c.s.Records()
	for i := range out {
		if c.IsMissing(i) {
			out[i] = ""
		}
	}
	return out
}

// Subset returns the rows at the given indices, in that order.
func (c Column) Subset(rows []int) Column {
	return Column{s: c.s.Subset(rows)}
}

// Table is an ordered set of equally long named columns.
type Table struct {
	df dataframe.DataFrame
}

// NewTable builds a table from columns. Names must be unique and lengths equal.
func NewTable(cols ...Column) (*Table, error) {
	if len(cols) == 0 {
		return nil, errors.NewInvalidInputError("dataset.NewTable", "no columns")
	}
	seen := make(map[string]bool, len(cols))
	ss := make([]series.Series, len(cols))
	for i, c := range cols {
		if seen[c.Name()] {
			return nil, errors.NewInvalidInputError("dataset.NewTable", "duplicate column name "+c.Name())
		}
		seen[c.Name()] = true
		if c.Len() != cols[0].Len() {
			return nil, errors.NewDimensionError("dataset.NewTable", cols[0].Len(), c.Len(), 0)
		}
		ss[i] = c.s
	}
	return FromDataFrame(dataframe.New(ss...))
}

// FromDataFrame wraps a gota DataFrame, surfacing its deferred error.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset: invalid dataframe")
	}
	return &Table{df: df}, nil
}

// DataFrame returns the underlying gota DataFrame.
func (t *Table) DataFrame() dataframe.DataFrame { return t.df }

func (t *Table) Names() []string { return t.df.Names() }
func (t *Table) Nrow() int       { return t.df.Nrow() }
func (t *Table) Ncol() int       { return t.df.Ncol() }

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns the named column or an UnknownColumn error.
func (t *Table) Column(name string) (Column, error) {
	if !t.HasColumn(name) {
		return Column{}, errors.NewUnknownColumnError("dataset.Table.Column", name)
	}
	return Column{s: t.df.Col(name)}, nil
}

// Columns returns every column in table order.
func (t *Table) Columns() []Column {
	names := t.df.Names()
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{s: t.df.Col(n)}
	}
	return out
}

// Drop returns a copy of the table without the named column.
func (t *Table) Drop(name string) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewUnknownColumnError("dataset.Table.Drop", name)
	}
	if t.Ncol() == 1 {
		return nil, errors.NewInvalidInputError("dataset.Table.Drop", "cannot drop the only column "+name)
	}
	return FromDataFrame(t.df.Drop(name))
}

// Subset returns the rows at the given indices, in that order.
func (t *Table) Subset(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.Nrow() {
			return nil, errors.NewValueError("dataset.Table.Subset", "row index out of range")
		}
	}
	cols := t.Columns()
	sub := make([]Column, len(cols))
	for i, c := range cols {
		sub[i] = c.Subset(rows)
	}
	return NewTable(sub...)
}

// MissingCount returns the number of missing cells over all columns.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.Columns() {
		n += c.MissingCount()
	}
	return n
}
