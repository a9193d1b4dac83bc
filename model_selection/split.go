// Package model_selection splits row indices into training and test sets.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Split holds row indices of the two halves. Together they cover every row
// exactly once.
type Split struct {
	Train []int
	Test  []int
}

type splitConfig struct {
	testSize    float64
	randomState int64
	stratify    bool
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

// WithTestSize sets the fraction of rows held out, in (0, 1). Default 0.25.
func WithTestSize(size float64) SplitOption {
	return func(c *splitConfig) { c.testSize = size }
}

// WithRandomState seeds the shuffle. A negative seed draws a random one.
func WithRandomState(seed int64) SplitOption {
	return func(c *splitConfig) { c.randomState = seed }
}

// WithStratify keeps the class proportions of labels in both halves.
func WithStratify(stratify bool) SplitOption {
	return func(c *splitConfig) { c.stratify = stratify }
}

// TrainTestSplit shuffles the row indices 0..n-1 and holds out
// ceil(testSize*n) of them as the test set. labels is only read when
// stratifying and must then have length n.
//
// A stratified split gives each class a share of the test set proportional
// to its size, rounding by largest remainder, and leaves at least one row of
// every class in the training set.
func TrainTestSplit(n int, labels []string, opts ...SplitOption) (*Split, error) {
	cfg := splitConfig{testSize: 0.25, randomState: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.testSize <= 0 || cfg.testSize >= 1 || math.IsNaN(cfg.testSize) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}
	if n < 2 {
		return nil, errors.NewInvalidInputError("model_selection.TrainTestSplit", "at least 2 rows are required to split")
	}

	nTest := int(math.Ceil(cfg.testSize*float64(n) - 1e-9))
	if nTest >= n {
		nTest = n - 1
	}
	rng := newRand(cfg.randomState)

	if !cfg.stratify {
		perm := rng.Perm(n)
		return &Split{Train: perm[nTest:], Test: perm[:nTest]}, nil
	}

	if len(labels) != n {
		return nil, errors.NewDimensionError("model_selection.TrainTestSplit", n, len(labels), 0)
	}
	return stratified(labels, nTest, rng)
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0xda3e39cb94b95bdb))
}

type stratum struct {
	label string
	rows  []int
	test  int
	frac  float64
}

func stratified(labels []string, nTest int, rng *rand.Rand) (*Split, error) {
	n := len(labels)
	byLabel := make(map[string]*stratum)
	var strata []*stratum
	for i, l := range labels {
		s, ok := byLabel[l]
		if !ok {
			s = &stratum{label: l}
			byLabel[l] = s
			strata = append(strata, s)
		}
		s.rows = append(s.rows, i)
	}
	sort.Slice(strata, func(i, j int) bool { return strata[i].label < strata[j].label })

	capacity := 0
	for _, s := range strata {
		capacity += len(s.rows) - 1
	}
	if nTest > capacity {
		nTest = capacity
	}
	if nTest == 0 {
		return nil, errors.NewInvalidInputError("model_selection.TrainTestSplit",
			"every class has a single row, so the test set would be empty")
	}

	allocated := 0
	for _, s := range strata {
		exact := float64(len(s.rows)) * float64(nTest) / float64(n)
		s.test = int(math.Floor(exact))
		if limit := len(s.rows) - 1; s.test > limit {
			s.test = limit
		}
		s.frac = exact - float64(s.test)
		allocated += s.test
	}

	// Hand out the remainder by largest fractional share.
	order := append([]*stratum(nil), strata...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].frac > order[j].frac })
	for allocated < nTest {
		progressed := false
		for _, s := range order {
			if allocated == nTest {
				break
			}
			if s.test < len(s.rows)-1 {
				s.test++
				allocated++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	split := &Split{}
	for _, s := range strata {
		rows := append([]int(nil), s.rows...)
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		split.Test = append(split.Test, rows[:s.test]...)
		split.Train = append(split.Train, rows[s.test:]...)
	}
	rng.Shuffle(len(split.Train), func(i, j int) { split.Train[i], split.Train[j] = split.Train[j], split.Train[i] })
	rng.Shuffle(len(split.Test), func(i, j int) { split.Test[i], split.Test[j] = split.Test[j], split.Test[i] })
	return split, nil
}
