package preprocessing

import (
	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Schema is the ordered list of encoded feature names produced by one
// preprocessing call. It is used to align future inputs to the same shape.
type Schema struct {
	names []string
}

// NewSchema creates a schema from column names.
func NewSchema(names []string) Schema {
	return Schema{names: append([]string(nil), names...)}
}

// Names returns the feature names in order.
func (s Schema) Names() []string { return append([]string(nil), s.names...) }

// Len returns the number of features.
func (s Schema) Len() int { return len(s.names) }

// IsEmpty reports whether the schema has no features.
func (s Schema) IsEmpty() bool { return len(s.names) == 0 }

// Equal reports whether both schemas list the same names in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != o.names[i] {
			return false
		}
	}
	return true
}

// Matches reports whether names equal the schema exactly.
func (s Schema) Matches(names []string) bool {
	return s.Equal(Schema{names: names})
}

// Align reorders t to the schema. Columns not in the schema are dropped and
// schema columns absent from t are filled with zeros, as for an indicator of
// a category that never occurs. Every kept column must be numeric.
func (s Schema) Align(t *dataset.Table) (*dataset.Table, error) {
	if s.IsEmpty() {
		return nil, errors.NewNotReadyError("Schema.Align", "schema is empty")
	}
	if t == nil {
		return nil, errors.NewInvalidInputError("Schema.Align", "table is nil")
	}

	out := make([]dataset.Column, len(s.names))
	for j, name := range s.names {
		if !t.HasColumn(name) {
			out[j] = dataset.NewNumeric(name, make([]float64, t.Nrow()))
			continue
		}
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if c.Kind() != dataset.Numeric {
			return nil, errors.NewInvalidInputError("Schema.Align", "column "+name+" is not numeric")
		}
		out[j] = c
	}
	return dataset.NewTable(out...)
}
