// Package preprocessing turns a raw table into model-ready features.
//
// Preprocess splits off the target column, fills missing cells per column
// (mean for numeric, mode for categorical) and expands categorical columns
// into drop-first indicator columns. The fitted imputation values and
// categories are returned so new data can be transformed the same way.
package preprocessing

import (
	"time"

	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/pkg/log"
)

// Result is the output of one preprocessing call.
type Result struct {
	Features *Features
	Target   dataset.Column
	Schema   Schema
	Fitted   *Fitted
}

// Preprocessor runs the preprocessing steps. It holds no per-call state and
// may be shared between goroutines.
type Preprocessor struct {
	logger log.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l log.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = l
	}
}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("preprocessing")
	}
	return p
}

// Preprocess splits table into encoded features and the target column.
//
// It fails with InvalidInput when table is nil, UnknownColumn when target is
// not a column of table and ImputationError when a feature column has no
// present value. A failure is logged at ERROR. Row order is preserved.
func (p *Preprocessor) Preprocess(table *dataset.Table, target string) (res *Result, err error) {
	defer func() {
		if err != nil {
			res = nil
			p.logger.Error("Preprocessing failed", err, log.TargetKey, target)
		}
	}()
	defer errors.Recover(&err, "preprocessing.Preprocess")

	if table == nil {
		return nil, errors.NewInvalidInputError("preprocessing.Preprocess", "table is nil")
	}
	if !table.HasColumn(target) {
		return nil, errors.NewUnknownColumnError("preprocessing.Preprocess", target)
	}
	start := time.Now()

	targetCol, err := table.Column(target)
	if err != nil {
		return nil, err
	}
	if table.Ncol() < 2 {
		return nil, errors.NewInvalidInputError("preprocessing.Preprocess", "table has no feature columns besides "+target)
	}
	raw, err := table.Drop(target)
	if err != nil {
		return nil, err
	}

	imputer := NewSimpleImputer()
	imputed, err := imputer.FitTransform(raw)
	if err != nil {
		return nil, err
	}
	for _, fv := range imputer.FillValues() {
		p.logger.Info("Missing values filled",
			log.ColumnKey, fv.Column,
			log.ColumnKindKey, fv.Kind.String(),
			log.StrategyKey, string(fv.Strategy),
			log.FillValueKey, fv.String(),
			log.MissingKey, fv.Missing,
		)
	}

	encoder := NewOneHotEncoder(WithDropFirst(true))
	encoded, err := encoder.FitTransform(imputed)
	if err != nil {
		return nil, err
	}
	features, err := NewFeatures(encoded)
	if err != nil {
		return nil, err
	}
	schema := NewSchema(encoded.Names())

	p.logger.Info("Preprocessing completed",
		log.OperationKey, log.OperationFitTransform,
		log.SamplesKey, features.Nrow(),
		log.FeaturesKey, features.Ncol(),
		log.SchemaKey, schema.Names(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Result{
		Features: features,
		Target:   targetCol,
		Schema:   schema,
		Fitted: &Fitted{
			target:  target,
			imputer: imputer,
			encoder: encoder,
			schema:  schema,
		},
	}, nil
}

// Fitted holds the imputation values and categories of one Preprocess call.
type Fitted struct {
	target  string
	imputer *SimpleImputer
	encoder *OneHotEncoder
	schema  Schema
}

// Schema returns the fitted feature schema.
func (f *Fitted) Schema() Schema { return f.schema }

// Target returns the name of the target column.
func (f *Fitted) Target() string { return f.target }

// Imputer returns the fitted imputer.
func (f *Fitted) Imputer() *SimpleImputer { return f.imputer }

// Encoder returns the fitted encoder.
func (f *Fitted) Encoder() *OneHotEncoder { return f.encoder }

// Transform applies the stored fill values and categories to new rows and
// aligns the result to the schema. Columns of t that were not features at
// fit time, the target included, are ignored. Every original feature column
// must be present.
func (f *Fitted) Transform(t *dataset.Table) (*Features, error) {
	if f == nil {
		return nil, errors.NewNotReadyError("Fitted.Transform", "preprocessing has not run")
	}
	if t == nil {
		return nil, errors.NewInvalidInputError("Fitted.Transform", "table is nil")
	}
	fills := f.imputer.FillValues()
	cols := make([]dataset.Column, len(fills))
	for j, fv := range fills {
		c, err := t.Column(fv.Column)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	inputs, err := dataset.NewTable(cols...)
	if err != nil {
		return nil, err
	}

	imputed, err := f.imputer.Transform(inputs)
	if err != nil {
		return nil, err
	}
	encoded, err := f.encoder.Transform(imputed)
	if err != nil {
		return nil, err
	}
	aligned, err := f.schema.Align(encoded)
	if err != nil {
		return nil, err
	}
	return NewFeatures(aligned)
}
