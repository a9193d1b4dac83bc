// Package tree implements CART decision tree classifiers.
//
// The API mirrors scikit-learn's DecisionTreeClassifier: functional options
// for hyperparameters, Fit on a feature matrix and a column vector of class
// labels, Predict and PredictProba on new rows.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskassess/core/model"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Supported split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// featureThreshold is the smallest gap between two sorted feature values
// that can hold a split.
const featureThreshold = 1e-7

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64 // class probabilities
	nSamples  int
	impurity  float64
	depth     int
	leaf      bool
}

// DecisionTreeClassifier is a CART classifier. Rows with
// x[feature] <= threshold go to the left child.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string
	maxDepth        int // -1 for unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features drawn per split, 0 for all
	randomState     int64

	// Fitted
	nodes               []node
	classes_            []float64
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. A negative value means no limit.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many non-constant features are examined per
// split. Zero examines all of them.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState seeds the feature sampling. A negative seed draws a
// random one.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// NewDecisionTreeClassifier creates a classifier with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != CriterionGini && dt.criterion != CriterionEntropy {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must not be negative", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree from X (n_samples × n_features) and y (n_samples × 1).
// Class labels are the distinct values of y in ascending order.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	labels := make([]float64, nSamples)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	if err := errors.CheckMatrix("DecisionTreeClassifier.Fit", y, yRows, 1); err != nil {
		return err
	}
	classes := uniqueSorted(labels)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	encoded := make([]int, nSamples)
	for i, l := range labels {
		encoded[i] = index[l]
	}

	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	if err := dt.FitSamples(X, encoded, len(classes), samples); err != nil {
		return err
	}
	dt.classes_ = classes
	return nil
}

// FitSamples builds the tree from the rows of X listed in samples, with
// labels already encoded as 0..nClasses-1. A row may be listed more than
// once, as in a bootstrap sample. Ensembles use it so that every tree shares
// one class space.
func (dt *DecisionTreeClassifier) FitSamples(X mat.Matrix, y []int, nClasses int, samples []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	nRows, nFeatures := X.Dims()
	if len(y) != nRows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nRows, len(y), 0)
	}
	if len(samples) == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if nClasses < 1 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "at least one class is required")
	}
	if err := errors.CheckMatrix("DecisionTreeClassifier.Fit", X, nRows, nFeatures); err != nil {
		return err
	}
	for _, s := range samples {
		if s < 0 || s >= nRows {
			return errors.NewValueError("DecisionTreeClassifier.Fit", "sample index out of range")
		}
		if y[s] < 0 || y[s] >= nClasses {
			return errors.NewValueError("DecisionTreeClassifier.Fit", "class index out of range")
		}
	}

	dt.state.Reset()
	dt.nClasses_ = nClasses
	dt.nFeatures_ = nFeatures
	dt.classes_ = make([]float64, nClasses)
	for k := range dt.classes_ {
		dt.classes_[k] = float64(k)
	}
	dt.nodes = nil

	b := &builder{
		x:           mat.DenseCopyOf(X),
		y:           y,
		rng:         newRand(dt.randomState),
		importances: make([]float64, nFeatures),
	}
	dt.grow(b, append([]int(nil), samples...), 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	dt.featureImportances_ = b.importances

	dt.state.SetFitted(nFeatures, len(samples))
	return nil
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

type builder struct {
	x           *mat.Dense
	y           []int
	rng         *rand.Rand
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	childImp  float64 // sample-weighted impurity of both children
}

func (dt *DecisionTreeClassifier) grow(b *builder, samples []int, depth int) int {
	counts := make([]float64, dt.nClasses_)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	n := len(samples)
	imp := dt.impurity(counts, float64(n))

	id := len(dt.nodes)
	dt.nodes = append(dt.nodes, node{
		feature:  -1,
		value:    normalized(counts, float64(n)),
		nSamples: n,
		impurity: imp,
		depth:    depth,
		leaf:     true,
	})

	if imp <= 1e-12 ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		(dt.maxDepth >= 0 && depth >= dt.maxDepth) {
		return id
	}

	sp, ok := dt.bestSplit(b, samples, counts)
	if !ok {
		return id
	}

	var left, right []int
	for _, s := range samples {
		if b.x.At(s, sp.feature) <= sp.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	b.importances[sp.feature] += float64(n)*imp - sp.childImp

	l := dt.grow(b, left, depth+1)
	r := dt.grow(b, right, depth+1)

	nd := &dt.nodes[id]
	nd.leaf = false
	nd.feature = sp.feature
	nd.threshold = sp.threshold
	nd.left = l
	nd.right = r
	return id
}

func (dt *DecisionTreeClassifier) bestSplit(b *builder, samples []int, counts []float64) (split, bool) {
	n := len(samples)
	nFeatures := dt.nFeatures_

	order := make([]int, nFeatures)
	for j := range order {
		order[j] = j
	}
	limit := nFeatures
	if dt.maxFeatures > 0 && dt.maxFeatures < nFeatures {
		b.rng.Shuffle(nFeatures, func(i, j int) { order[i], order[j] = order[j], order[i] })
		limit = dt.maxFeatures
	}

	best := split{childImp: math.Inf(1)}
	found := false
	visited := 0
	sorted := make([]int, n)
	left := make([]float64, dt.nClasses_)
	right := make([]float64, dt.nClasses_)

	for _, f := range order {
		if visited >= limit {
			break
		}
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x.At(sorted[i], f) < b.x.At(sorted[j], f)
		})
		if b.x.At(sorted[n-1], f) <= b.x.At(sorted[0], f)+featureThreshold {
			continue // constant feature
		}
		visited++

		for k := range left {
			left[k] = 0
		}
		copy(right, counts)

		for i := 0; i < n-1; i++ {
			c := b.y[sorted[i]]
			left[c]++
			right[c]--

			v, next := b.x.At(sorted[i], f), b.x.At(sorted[i+1], f)
			if next <= v+featureThreshold {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < dt.minSamplesLeaf || nr < dt.minSamplesLeaf {
				continue
			}
			childImp := float64(nl)*dt.impurity(left, float64(nl)) + float64(nr)*dt.impurity(right, float64(nr))
			if childImp < best.childImp-1e-12 {
				threshold := v/2 + next/2
				if threshold >= next || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = v
				}
				best = split{feature: f, threshold: threshold, childImp: childImp}
				found = true
			}
		}
	}
	return best, found
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	switch dt.criterion {
	case CriterionEntropy:
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / n
			g -= p * p
		}
		return g
	}
}

func normalized(counts []float64, n float64) []float64 {
	out := make([]float64, len(counts))
	for k, c := range counts {
		out[k] = errors.SafeDivide(c, n)
	}
	return out
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func (dt *DecisionTreeClassifier) leaf(row func(j int) float64) *node {
	nd := &dt.nodes[0]
	for !nd.leaf {
		if row(nd.feature) <= nd.threshold {
			nd = &dt.nodes[nd.left]
		} else {
			nd = &dt.nodes[nd.right]
		}
	}
	return nd
}

func (dt *DecisionTreeClassifier) checkPredict(X mat.Matrix, method string) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	_, c := X.Dims()
	return dt.state.RequireFeatures("DecisionTreeClassifier."+method, c)
}

// PredictProba returns the class distribution of the leaf reached by each
// row, one column per class.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "PredictProba"); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, dt.nClasses_, nil)
	for i := 0; i < r; i++ {
		nd := dt.leaf(func(j int) float64 { return X.At(i, j) })
		out.SetRow(i, nd.value)
	}
	return out, nil
}

// Predict returns the most probable class label for each row.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict(X, "Predict"); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		nd := dt.leaf(func(j int) float64 { return X.At(i, j) })
		out.Set(i, 0, dt.classes_[argmax(nd.value)])
	}
	return out, nil
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}

// Score returns the mean accuracy on X and y, or 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
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

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature. A tree without splits has all zeros.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeClassifier) GetDepth() int {
	depth := 0
	for _, nd := range dt.nodes {
		if nd.depth > depth {
			depth = nd.depth
		}
	}
	return depth
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for _, nd := range dt.nodes {
		if nd.leaf {
			n++
		}
	}
	return n
}

// NodeCount returns the number of nodes, leaves included.
func (dt *DecisionTreeClassifier) NodeCount() int { return len(dt.nodes) }

// NClasses returns the number of classes seen during fitting.
func (dt *DecisionTreeClassifier) NClasses() int { return dt.nClasses_ }

// Classes returns the class labels in column order of PredictProba.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters by name.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = v
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			switch key {
			case "max_depth":
				dt.maxDepth = v
			case "min_samples_split":
				dt.minSamplesSplit = v
			case "min_samples_leaf":
				dt.minSamplesLeaf = v
			case "max_features":
				dt.maxFeatures = v
			}
		case "random_state":
			switch v := value.(type) {
			case int:
				dt.randomState = int64(v)
			case int64:
				dt.randomState = v
			default:
				return errors.NewValidationError(key, "must be an integer", value)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return dt.validate()
}

var _ model.Classifier = (*DecisionTreeClassifier)(nil)
var _ model.FeatureImporter = (*DecisionTreeClassifier)(nil)
