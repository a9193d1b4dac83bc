// Package errors provides the error taxonomy and warning system of the risk
// assessment pipeline.
//
// Every stage of the pipeline reports failures as typed errors carrying a Kind,
// so callers can tell a missing file from an unknown target column without
// parsing log lines. Constructors attach a stack trace via cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("riskassess-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the fallback handler used when no structured
// logger has been registered.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc registers the structured warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The structured sink wins over the fallback handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning is raised when a metric cannot be computed, for
// example precision of a class that was never predicted.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Pipeline failure kinds
//
// ===========================================================================

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is any error that does not belong to the pipeline taxonomy.
	KindUnknown Kind = iota
	// KindNotFound means the data source does not exist.
	KindNotFound
	// KindLoad means the data source exists but could not be read or parsed.
	KindLoad
	// KindInvalidInput means a stage received an absent or unusable input.
	KindInvalidInput
	// KindUnknownColumn means a column name does not exist in the table.
	KindUnknownColumn
	// KindImputation means a fill value could not be computed for a column.
	KindImputation
	// KindNotReady means a stage ran before the stage it depends on.
	KindNotReady
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindLoad:
		return "LoadError"
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnknownColumn:
		return "UnknownColumn"
	case KindImputation:
		return "ImputationError"
	case KindNotReady:
		return "NotReady"
	default:
		return "Unknown"
	}
}

// PipelineError is the failure of one pipeline stage.
type PipelineError struct {
	Op      string // stage or method, e.g. "dataset.Load"
	Kind    Kind
	Subject string // path or column name the failure is about, may be empty
	Reason  string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("riskassess: %s: %s", e.Op, e.Kind)
	if e.Subject != "" {
		msg += fmt.Sprintf(" '%s'", e.Subject)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the failure fields to a zerolog event.
func (e *PipelineError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("kind", e.Kind.String()).
		Str("subject", e.Subject).
		Str("type", "PipelineError")
	if e.Reason != "" {
		event.Str("reason", e.Reason)
	}
}

func newPipelineError(op string, kind Kind, subject, reason string, err error) error {
	return errors.WithStackDepth(&PipelineError{Op: op, Kind: kind, Subject: subject, Reason: reason, Err: err}, 2)
}

// NewNotFoundError reports a data source that does not exist.
func NewNotFoundError(op, path string, err error) error {
	return newPipelineError(op, KindNotFound, path, "source does not exist", err)
}

// NewLoadError reports a data source that could not be read or parsed.
func NewLoadError(op, path string, err error) error {
	return newPipelineError(op, KindLoad, path, "", err)
}

// NewInvalidInputError reports an absent or unusable stage input.
func NewInvalidInputError(op, reason string) error {
	return newPipelineError(op, KindInvalidInput, "", reason, nil)
}

// NewUnknownColumnError reports a column name missing from a table.
func NewUnknownColumnError(op, column string) error {
	return newPipelineError(op, KindUnknownColumn, column, "column not found", nil)
}

// NewImputationError reports a column for which no fill value exists.
func NewImputationError(op, column, reason string) error {
	return newPipelineError(op, KindImputation, column, reason, nil)
}

// NewNotReadyError reports a stage invoked before its prerequisite.
func NewNotReadyError(op, reason string) error {
	return newPipelineError(op, KindNotReady, "", reason, nil)
}

// KindOf returns the pipeline kind of err, looking through wrapping.
// A NotFittedError counts as KindNotReady.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var nf *NotFittedError
	if errors.As(err, &nf) {
		return KindNotReady
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// ===========================================================================
//
//	Estimator errors
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("riskassess: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when input dimensions do not match.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("riskassess: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("riskassess: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument has an unusable value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("riskassess: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData is returned when a stage receives no rows.
	ErrEmptyData = New("empty data")
)
