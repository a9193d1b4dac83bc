// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskassess/core/model"
	"github.com/YuminosukeSato/riskassess/core/parallel"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/pkg/log"
	"github.com/YuminosukeSato/riskassess/sklearn/tree"
)

// Max feature rules, resolved against the number of features at fit time.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// predictParallelThreshold is the row count below which prediction stays on
// the calling goroutine.
const predictParallelThreshold = 256

// RandomForestClassifier averages the class probabilities of decision trees
// fitted on bootstrap samples with random feature subsets per split.
type RandomForestClassifier struct {
	state  *model.StateManager
	logger log.Logger

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     int64
	nJobs           int

	// Fitted
	estimators_ []*tree.DecisionTreeClassifier
	classes_    []float64
	nFeatures_  int
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithRandomState seeds bootstrap sampling and feature selection. Tree i is
// seeded with seed+i. A negative seed draws a random one per fit.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits tree depth. A negative value means no limit.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features examined per split: "sqrt", "log2" or "all".
func WithMaxFeatures(rule string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = rule }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithNJobs sets the number of goroutines fitting trees. Values below 1 use
// one per CPU.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// WithLogger sets the logger for fit progress.
func WithLogger(l log.Logger) Option {
	return func(rf *RandomForestClassifier) { rf.logger = l }
}

// NewRandomForestClassifier creates a forest with 100 trees, seed 42, sqrt
// feature sampling and bootstrap enabled.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       tree.CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesSqrt,
		bootstrap:       true,
		randomState:     42,
		nJobs:           1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("ensemble")
	}
	return rf
}

func (rf *RandomForestClassifier) validate() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	switch rf.maxFeatures {
	case MaxFeaturesSqrt, MaxFeaturesLog2, MaxFeaturesAll:
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", rf.maxFeatures)
	}
	return nil
}

// featuresPerSplit resolves the max_features rule, never below 1.
func (rf *RandomForestClassifier) featuresPerSplit(nFeatures int) int {
	var k int
	switch rf.maxFeatures {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Fit builds the forest from X (n_samples × n_features) and y (n_samples × 1).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation between trees.
func (rf *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if err := rf.validate(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("RandomForestClassifier.Fit", y, yRows, 1); err != nil {
		return err
	}

	classes, encoded := encodeLabels(y, nSamples)
	x := mat.DenseCopyOf(X)

	seed := rf.randomState
	if seed < 0 {
		seed = int64(rand.Uint64() >> 2)
	}
	k := rf.featuresPerSplit(nFeatures)
	workers := parallel.Workers(rf.nJobs)

	rf.logger.Debug("Fitting random forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.NEstimatorsKey, rf.nEstimators,
		log.NJobsKey, workers,
		log.RandomSeedKey, seed,
	)
	start := time.Now()

	rf.state.Reset()
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(ctx, rf.nEstimators, workers, func(_ context.Context, i int) error {
		treeSeed := seed + int64(i)
		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.criterion),
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesSplit(rf.minSamplesSplit),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(k),
			tree.WithRandomState(treeSeed),
		)
		if err := dt.FitSamples(x, encoded, len(classes), rf.drawSamples(nSamples, treeSeed)); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.estimators_ = trees
	rf.classes_ = classes
	rf.nFeatures_ = nFeatures
	rf.state.SetFitted(nFeatures, nSamples)

	rf.logger.Debug("Random forest fitted",
		log.OperationKey, log.OperationFit,
		log.NEstimatorsKey, len(trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// drawSamples returns the training rows of one tree: a bootstrap sample of
// size n, or every row when bootstrap is off.
func (rf *RandomForestClassifier) drawSamples(n int, seed int64) []int {
	samples := make([]int, n)
	if !rf.bootstrap {
		for i := range samples {
			samples[i] = i
		}
		return samples
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0x5851f42d4c957f2d))
	for i := range samples {
		samples[i] = rng.IntN(n)
	}
	return samples
}

func encodeLabels(y mat.Matrix, n int) ([]float64, []int) {
	seen := make(map[float64]bool)
	var classes []float64
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	encoded := make([]int, n)
	for i := range encoded {
		encoded[i] = index[y.At(i, 0)]
	}
	return classes, encoded
}

// PredictProba returns the mean class probabilities over all trees, one
// column per class in the order of Classes.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestClassifier.PredictProba", cols); err != nil {
		return nil, err
	}

	perTree := make([]mat.Matrix, len(rf.estimators_))
	for i, dt := range rf.estimators_ {
		p, err := dt.PredictProba(X)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		perTree[i] = p
	}

	nClasses := len(rf.classes_)
	out := mat.NewDense(rows, nClasses, nil)
	scale := 1 / float64(len(perTree))
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, parallel.Workers(rf.nJobs), func(start, end int) {
		for i := start; i < end; i++ {
			for k := 0; k < nClasses; k++ {
				sum := 0.0
				for _, p := range perTree {
					sum += p.At(i, k)
				}
				out.Set(i, k, sum*scale)
			}
		}
	})
	return out, nil
}

// Predict returns the class with the highest mean probability for each row.
// Ties go to the class that sorts first.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, nClasses := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < nClasses; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, rf.classes_[best])
	}
	return out, nil
}

// Score returns the mean accuracy on X and y, or 0 when prediction fails.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := y.Dims()
	if r == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}

// GetFeatureImportances averages the importances of trees that split at
// least once and normalizes the result to sum to 1.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures_)
	used := 0
	for _, dt := range rf.estimators_ {
		if dt.NodeCount() <= 1 {
			continue
		}
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
		}
		used++
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if used == 0 || total == 0 {
		return out
	}
	for j := range out {
		out[j] /= total
	}
	return out
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return append([]*tree.DecisionTreeClassifier(nil), rf.estimators_...)
}

func (rf *RandomForestClassifier) NClasses() int { return len(rf.classes_) }

// Classes returns the class labels in column order of PredictProba.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

var _ model.Classifier = (*RandomForestClassifier)(nil)
var _ model.FeatureImporter = (*RandomForestClassifier)(nil)
var _ model.ParameterGetter = (*RandomForestClassifier)(nil)
