// Package assessment runs the financial risk pipeline: load a CSV, fill and
// encode the features, split, train a random forest and evaluate it.
//
//	a := assessment.New(assessment.DefaultConfig())
//	out, err := a.Run("financial_data.csv", "risk_level")
//	if err != nil {
//	    // errors.KindOf(err) tells which stage failed and why
//	}
//	fmt.Println(out.Report)
//
// Every stage is also exposed on its own. A failing stage logs the failure
// at ERROR and returns a typed error from pkg/errors; nothing is retried.
package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/metrics"
	"github.com/YuminosukeSato/riskassess/model_selection"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/pkg/log"
	"github.com/YuminosukeSato/riskassess/preprocessing"
	"github.com/YuminosukeSato/riskassess/sklearn/ensemble"
)

// Assessment runs pipeline stages with one configuration. It holds no
// per-run state.
type Assessment struct {
	cfg    Config
	logger log.Logger
}

// Option configures an Assessment.
type Option func(*Assessment)

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l log.Logger) Option {
	return func(a *Assessment) { a.logger = l }
}

// New creates an Assessment. The configuration is validated when a run starts.
func New(cfg Config, opts ...Option) *Assessment {
	a := &Assessment{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.GetLoggerWithName("assessment")
	}
	return a
}

// Config returns the configuration.
func (a *Assessment) Config() Config { return a.cfg }

// logFailure logs *err at ERROR when the stage failed.
func (a *Assessment) logFailure(err *error, msg, stage string, fields ...any) {
	if *err == nil {
		return
	}
	a.logger.Error(msg, append([]any{*err, log.StageKey, stage}, fields...)...)
}

// Load reads the CSV at path.
func (a *Assessment) Load(path string) (table *dataset.Table, err error) {
	defer a.logFailure(&err, "Data loading failed", log.StageLoad, log.DataPathKey, path)

	table, err = dataset.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Data loaded",
		log.StageKey, log.StageLoad,
		log.DataPathKey, path,
		log.SamplesKey, table.Nrow(),
		log.FeaturesKey, table.Ncol(),
		log.MissingKey, table.MissingCount(),
	)
	return table, nil
}

// Preprocess splits off target and encodes the remaining columns. Failures
// are logged by the preprocessor.
func (a *Assessment) Preprocess(table *dataset.Table, target string) (*preprocessing.Result, error) {
	p := preprocessing.NewPreprocessor(preprocessing.WithLogger(a.logger.With(log.StageKey, log.StagePreprocess)))
	return p.Preprocess(table, target)
}

// Partition is one train/test split of preprocessed data.
type Partition struct {
	Rows   *model_selection.Split
	TrainX *preprocessing.Features
	TrainY dataset.Column
	TestX  *preprocessing.Features
	TestY  dataset.Column
}

// Split divides preprocessed rows into training and test sets as configured.
func (a *Assessment) Split(res *preprocessing.Result) (part *Partition, err error) {
	defer a.logFailure(&err, "Data split failed", log.StageSplit)

	if res == nil || res.Features == nil {
		return nil, errors.NewNotReadyError("assessment.Split", "no preprocessed data")
	}
	rows, err := model_selection.TrainTestSplit(res.Features.Nrow(), res.Target.Strings(),
		model_selection.WithTestSize(a.cfg.TestSize),
		model_selection.WithRandomState(a.cfg.RandomState),
		model_selection.WithStratify(a.cfg.Stratify),
	)
	if err != nil {
		return nil, err
	}
	trainX, err := res.Features.Subset(rows.Train)
	if err != nil {
		return nil, err
	}
	testX, err := res.Features.Subset(rows.Test)
	if err != nil {
		return nil, err
	}
	part = &Partition{
		Rows:   rows,
		TrainX: trainX,
		TrainY: res.Target.Subset(rows.Train),
		TestX:  testX,
		TestY:  res.Target.Subset(rows.Test),
	}
	a.logger.Info("Data split",
		log.StageKey, log.StageSplit,
		log.TrainSamplesKey, len(rows.Train),
		log.TestSamplesKey, len(rows.Test),
	)
	return part, nil
}

// Train fits a random forest on features and target. schema must be the
// schema that produced features; an empty or different schema is NotReady.
func (a *Assessment) Train(schema preprocessing.Schema, features *preprocessing.Features, target dataset.Column) (*Model, error) {
	return a.TrainContext(context.Background(), schema, features, target)
}

// TrainContext is Train with cancellation between trees.
func (a *Assessment) TrainContext(ctx context.Context, schema preprocessing.Schema, features *preprocessing.Features, target dataset.Column) (m *Model, err error) {
	const op = "assessment.Train"
	defer a.logFailure(&err, "Training failed", log.StageTrain)

	if schema.IsEmpty() {
		return nil, errors.NewNotReadyError(op, "preprocessing has not been fitted")
	}
	if features == nil {
		return nil, errors.NewInvalidInputError(op, "features are nil")
	}
	if !schema.Matches(features.Names()) {
		return nil, errors.NewNotReadyError(op, "feature columns do not match the fitted schema")
	}
	if target.Len() != features.Nrow() {
		return nil, errors.NewDimensionError(op, features.Nrow(), target.Len(), 0)
	}
	if features.Nrow() == 0 {
		return nil, errors.NewInvalidInputError(op, "no training rows")
	}
	if target.MissingCount() > 0 {
		return nil, errors.NewInvalidInputError(op, "target column "+target.Name()+" has missing labels")
	}

	encoder := preprocessing.NewLabelEncoder()
	encoded, err := encoder.FitTransform(target.Strings())
	if err != nil {
		return nil, err
	}
	y := mat.NewDense(len(encoded), 1, nil)
	for i, k := range encoded {
		y.Set(i, 0, float64(k))
	}

	logger := a.logger.With(log.StageKey, log.StageTrain)
	logger.Info("Training random forest",
		log.ModelNameKey, "RandomForestClassifier",
		log.SamplesKey, features.Nrow(),
		log.FeaturesKey, features.Ncol(),
		log.ClassesKey, len(encoder.Classes()),
		log.NEstimatorsKey, a.cfg.NEstimators,
	)
	start := time.Now()

	forest := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(a.cfg.NEstimators),
		ensemble.WithRandomState(a.cfg.RandomState),
		ensemble.WithMaxDepth(a.cfg.MaxDepth),
		ensemble.WithNJobs(a.cfg.NJobs),
		ensemble.WithLogger(logger),
	)
	if err := forest.FitContext(ctx, features.Dense(), y); err != nil {
		return nil, err
	}

	logger.Info("Random forest trained",
		log.ModelNameKey, "RandomForestClassifier",
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Model{schema: schema, forest: forest, labels: encoder, target: target.Name()}, nil
}

// Evaluation is the outcome of scoring a model on held-out rows.
type Evaluation struct {
	Accuracy    float64
	Report      *metrics.Report
	Truth       []string
	Predictions []string
}

// Evaluate predicts features with m and scores the predictions against
// target. A nil or unfitted model is NotReady.
func (a *Assessment) Evaluate(m *Model, features *preprocessing.Features, target dataset.Column) (eval *Evaluation, err error) {
	const op = "assessment.Evaluate"
	defer a.logFailure(&err, "Evaluation failed", log.StageEvaluate)

	if m == nil || !m.IsFitted() {
		return nil, errors.NewNotReadyError(op, "model has not been trained")
	}
	if features == nil {
		return nil, errors.NewInvalidInputError(op, "features are nil")
	}
	if target.Len() != features.Nrow() {
		return nil, errors.NewDimensionError(op, features.Nrow(), target.Len(), 0)
	}

	pred, err := m.PredictFeatures(features)
	if err != nil {
		return nil, err
	}
	truth := target.Strings()
	acc, err := metrics.Accuracy(truth, pred)
	if err != nil {
		return nil, err
	}
	rep, err := metrics.ClassificationReport(truth, pred)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Model evaluated",
		log.StageKey, log.StageEvaluate,
		log.SamplesKey, len(truth),
		log.AccuracyKey, acc,
		log.MacroF1Key, rep.MacroAvg.F1,
	)
	return &Evaluation{Accuracy: acc, Report: rep, Truth: truth, Predictions: pred}, nil
}

// Outcome is the result of a successful run.
type Outcome struct {
	RunID      string
	Model      *Model
	Accuracy   float64
	Report     *metrics.Report
	Partition  *Partition
	Evaluation *Evaluation
}

// Run executes every stage on the CSV at path with target as the label
// column. It stops at the first failing stage, which has logged the cause,
// and returns its error with a nil Outcome after a final ERROR line.
func (a *Assessment) Run(path, target string) (*Outcome, error) {
	return a.RunContext(context.Background(), path, target)
}

// RunContext is Run with cancellation during training.
func (a *Assessment) RunContext(ctx context.Context, path, target string) (out *Outcome, err error) {
	defer errors.Recover(&err, "assessment.Run")

	runID := uuid.NewString()
	r := &Assessment{cfg: a.cfg, logger: a.logger.With(log.RunIDKey, runID)}
	start := time.Now()

	fail := func(stage string, err error) (*Outcome, error) {
		r.logger.Error("Risk assessment failed",
			log.StageKey, stage,
			log.ErrorKindKey, errors.KindOf(err).String(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if err := r.cfg.Validate(); err != nil {
		r.logger.Error("Invalid configuration", err, log.StageKey, log.StageConfig)
		return fail(log.StageConfig, err)
	}
	r.logger.Info("Starting risk assessment",
		log.DataPathKey, path,
		log.TargetKey, target,
		log.NEstimatorsKey, r.cfg.NEstimators,
		log.RandomSeedKey, r.cfg.RandomState,
	)

	table, err := r.Load(path)
	if err != nil {
		return fail(log.StageLoad, err)
	}
	res, err := r.Preprocess(table, target)
	if err != nil {
		return fail(log.StagePreprocess, err)
	}
	part, err := r.Split(res)
	if err != nil {
		return fail(log.StageSplit, err)
	}
	m, err := r.TrainContext(ctx, res.Schema, part.TrainX, part.TrainY)
	if err != nil {
		return fail(log.StageTrain, err)
	}
	m.preprocess = res.Fitted
	eval, err := r.Evaluate(m, part.TestX, part.TestY)
	if err != nil {
		return fail(log.StageEvaluate, err)
	}

	r.logger.Info("Risk assessment completed",
		log.AccuracyKey, eval.Accuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Outcome{
		RunID:      runID,
		Model:      m,
		Accuracy:   eval.Accuracy,
		Report:     eval.Report,
		Partition:  part,
		Evaluation: eval,
	}, nil
}
