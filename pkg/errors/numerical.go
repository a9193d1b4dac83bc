package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NumericalInstabilityError is returned when a computation meets NaN or Inf.
type NumericalInstabilityError struct {
	Op     string
	Values []float64
	Row    int // first offending row, -1 when not applicable
}

func (e *NumericalInstabilityError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("riskassess: %s: non-finite value at row %d: %v", e.Op, e.Row, e.Values)
	}
	return fmt.Sprintf("riskassess: %s: non-finite value: %v", e.Op, e.Values)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("row", e.Row).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(op string, values []float64, row int) error {
	return errors.WithStack(&NumericalInstabilityError{Op: op, Values: values, Row: row})
}

// CheckScalar checks a single value for NaN or Inf.
func CheckScalar(op string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(op, []float64{value}, -1)
	}
	return nil
}

// CheckMatrix checks every cell of a matrix for NaN or Inf and reports the
// first offending row.
func CheckMatrix(op string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		var bad []float64
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			return NewNumericalInstabilityError(op, bad, i)
		}
	}
	return nil
}

// SafeDivide returns 0 when the denominator is zero or close to it.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
