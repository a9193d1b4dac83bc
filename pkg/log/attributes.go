package log

// Standard attribute keys. Keys are hierarchical ("data.samples") so entries
// can be filtered by prefix.

// Run and component context.
const (
	// RunIDKey identifies one pipeline run. Every entry of a run carries it.
	RunIDKey = "run.id"

	// StageKey names the pipeline stage: load, preprocess, split, train, evaluate.
	StageKey = "run.stage"

	// ModelNameKey identifies the estimator type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the estimator operation: fit, predict, transform, score.
	OperationKey = "ml.operation"

	// ComponentKey is the package emitting the entry.
	ComponentKey = "ml.component"

	PhaseKey = "ml.phase"
)

// Data shape and content.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"

	// DataPathKey is the source file of a load.
	DataPathKey = "data.path"

	// ColumnKey names the column an entry is about.
	ColumnKey = "data.column"

	// ColumnKindKey is "categorical" or "numeric".
	ColumnKindKey = "data.column_kind"

	// TargetKey names the target column.
	TargetKey = "data.target"

	// MissingKey counts missing cells.
	MissingKey = "data.missing"
)

// Preprocessing.
const (
	// FillValueKey is the imputation value chosen for a column.
	FillValueKey = "preprocess.fill_value"

	// StrategyKey is the imputation strategy: mean or most_frequent.
	StrategyKey = "preprocess.strategy"

	// SchemaKey lists the encoded feature names.
	SchemaKey = "preprocess.schema"
)

// Training and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	MacroF1Key    = "metrics.macro_f1"

	// TrainSamplesKey and TestSamplesKey are the sizes of the split halves.
	TrainSamplesKey = "split.train_samples"
	TestSamplesKey  = "split.test_samples"

	NEstimatorsKey = "hyperparams.n_estimators"
	NJobsKey       = "hyperparams.n_jobs"
	RandomSeedKey  = "config.random_seed"
)

// Error context.
const (
	ErrorKey      = "error"
	ErrorKindKey  = "error.kind"
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	StageConfig     = "config"
	StageLoad       = "load"
	StagePreprocess = "preprocess"
	StageSplit      = "split"
	StageTrain      = "train"
	StageEvaluate   = "evaluate"
)
