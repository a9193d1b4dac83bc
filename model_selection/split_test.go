package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

func riskLabels() []string {
	return []string{"low", "low", "medium", "low", "medium", "high", "high", "high", "low", "medium"}
}

func assertPartition(t *testing.T, s *Split, n int) {
	t.Helper()
	all := append(append([]int(nil), s.Train...), s.Test...)
	sort.Ints(all)
	require.Len(t, all, n)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func countLabels(labels []string, rows []int) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[labels[r]]++
	}
	return out
}

func TestTrainTestSplit_Stratified(t *testing.T) {
	labels := riskLabels()
	s, err := TrainTestSplit(len(labels), labels,
		WithTestSize(0.3), WithRandomState(42), WithStratify(true))
	require.NoError(t, err)

	assertPartition(t, s, 10)
	assert.Len(t, s.Test, 3)
	assert.Len(t, s.Train, 7)
	assert.Equal(t, map[string]int{"low": 1, "medium": 1, "high": 1}, countLabels(labels, s.Test))
	assert.Equal(t, map[string]int{"low": 3, "medium": 2, "high": 2}, countLabels(labels, s.Train))
}

func TestTrainTestSplit_Seeded(t *testing.T) {
	labels := riskLabels()
	for _, stratify := range []bool{true, false} {
		a, err := TrainTestSplit(10, labels, WithTestSize(0.3), WithRandomState(7), WithStratify(stratify))
		require.NoError(t, err)
		b, err := TrainTestSplit(10, labels, WithTestSize(0.3), WithRandomState(7), WithStratify(stratify))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestTrainTestSplit_Random(t *testing.T) {
	s, err := TrainTestSplit(101, nil, WithTestSize(0.2), WithRandomState(1))
	require.NoError(t, err)
	assertPartition(t, s, 101)
	assert.Len(t, s.Test, 21)
}

func TestTrainTestSplit_TestSizeRounding(t *testing.T) {
	tests := []struct {
		n        int
		testSize float64
		want     int
	}{
		{10, 0.3, 3},
		{10, 0.25, 3},
		{4, 0.5, 2},
		{2, 0.9, 1},
		{100, 0.01, 1},
	}
	for _, tt := range tests {
		s, err := TrainTestSplit(tt.n, nil, WithTestSize(tt.testSize), WithRandomState(0))
		require.NoError(t, err)
		assert.Len(t, s.Test, tt.want, "n=%d test_size=%v", tt.n, tt.testSize)
	}
}

func TestTrainTestSplit_EveryClassKeepsATrainingRow(t *testing.T) {
	labels := []string{"a", "a", "a", "a", "a", "a", "b", "c", "c", "d"}
	s, err := TrainTestSplit(len(labels), labels, WithTestSize(0.5), WithRandomState(3), WithStratify(true))
	require.NoError(t, err)

	assertPartition(t, s, 10)
	train := countLabels(labels, s.Train)
	for _, class := range []string{"a", "b", "c", "d"} {
		assert.GreaterOrEqual(t, train[class], 1, class)
	}
	assert.Len(t, s.Test, 5)
	assert.Equal(t, 0, countLabels(labels, s.Test)["b"])
}

func TestTrainTestSplit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		labels []string
		opts   []SplitOption
		check  func(error) bool
	}{
		{
			name: "test size zero",
			n:    10,
			opts: []SplitOption{WithTestSize(0)},
			check: func(err error) bool {
				var ve *errors.ValidationError
				return errors.As(err, &ve)
			},
		},
		{
			name: "test size one",
			n:    10,
			opts: []SplitOption{WithTestSize(1)},
			check: func(err error) bool {
				var ve *errors.ValidationError
				return errors.As(err, &ve)
			},
		},
		{
			name:  "single row",
			n:     1,
			check: func(err error) bool { return errors.IsKind(err, errors.KindInvalidInput) },
		},
		{
			name:   "label length",
			n:      4,
			labels: []string{"a", "b"},
			opts:   []SplitOption{WithStratify(true)},
			check: func(err error) bool {
				var de *errors.DimensionError
				return errors.As(err, &de)
			},
		},
		{
			name:   "singleton classes",
			n:      3,
			labels: []string{"a", "b", "c"},
			opts:   []SplitOption{WithStratify(true)},
			check:  func(err error) bool { return errors.IsKind(err, errors.KindInvalidInput) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := TrainTestSplit(tt.n, tt.labels, tt.opts...)
			assert.Nil(t, s)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}
