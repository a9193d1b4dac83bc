package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// captureWarnings collects warnings raised through errors.Warn for the rest
// of the test.
func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var got []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), got...)
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []string
		yPred   []string
		want    float64
		wantErr bool
	}{
		{name: "perfect", yTrue: []string{"a", "b", "c"}, yPred: []string{"a", "b", "c"}, want: 1},
		{name: "80 percent", yTrue: []string{"a", "b", "c", "b", "a"}, yPred: []string{"a", "b", "b", "b", "a"}, want: 0.8},
		{name: "none", yTrue: []string{"a", "a"}, yPred: []string{"b", "b"}, want: 0},
		{name: "empty", yTrue: []string{}, yPred: []string{}, wantErr: true},
		{name: "length mismatch", yTrue: []string{"a"}, yPred: []string{"a", "b"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []string{"low", "low", "medium", "high"}
	yPred := []string{"low", "medium", "medium", "medium"}

	cm, labels, err := ConfusionMatrix(yTrue, yPred, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low", "medium"}, labels)

	want := [][]float64{
		{0, 0, 1},
		{0, 1, 1},
		{0, 0, 1},
	}
	for i, row := range want {
		for j, v := range row {
			assert.Equal(t, v, cm.At(i, j), "(%d,%d)", i, j)
		}
	}

	_, _, err = ConfusionMatrix(yTrue, yPred, []string{"low", "low"})
	assert.Error(t, err)
}

func TestPrecisionRecallFScoreSupport(t *testing.T) {
	warnings := captureWarnings(t)
	yTrue := []string{"low", "low", "medium", "high"}
	yPred := []string{"low", "medium", "medium", "medium"}

	p, r, f, s, err := PrecisionRecallFScoreSupport(yTrue, yPred, nil)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0, 1, 1.0 / 3}, p, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1}, r, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 2.0 / 3, 0.5}, f, 1e-12)
	assert.Equal(t, []int{1, 2, 1}, s)

	got := warnings()
	require.Len(t, got, 1)
	var w *errors.UndefinedMetricWarning
	require.True(t, errors.As(got[0], &w))
	assert.Equal(t, "precision", w.Metric)
	assert.Contains(t, w.Condition, "high")
}

func TestPrecisionRecallFScoreSupport_LabelWithoutSamples(t *testing.T) {
	warnings := captureWarnings(t)

	p, r, f, s, err := PrecisionRecallFScoreSupport(
		[]string{"a", "b"}, []string{"a", "b"}, []string{"a", "b", "z"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0}, p)
	assert.Equal(t, []float64{1, 1, 0}, r)
	assert.Equal(t, []float64{1, 1, 0}, f)
	assert.Equal(t, []int{1, 1, 0}, s)

	metrics := map[string]bool{}
	for _, w := range warnings() {
		var um *errors.UndefinedMetricWarning
		require.True(t, errors.As(w, &um))
		metrics[um.Metric] = true
	}
	assert.Equal(t, map[string]bool{"precision": true, "recall": true}, metrics)
}

func TestClassificationReport(t *testing.T) {
	captureWarnings(t)
	yTrue := []string{"low", "low", "medium", "high"}
	yPred := []string{"low", "medium", "medium", "medium"}

	rep, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	assert.Equal(t, 0.5, rep.Accuracy)
	require.Len(t, rep.Classes, 3)
	low, ok := rep.Class("low")
	require.True(t, ok)
	assert.Equal(t, 2, low.Support)
	_, ok = rep.Class("unknown")
	assert.False(t, ok)

	assert.InDelta(t, 4.0/9, rep.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, 0.5, rep.MacroAvg.Recall, 1e-12)
	assert.InDelta(t, 7.0/18, rep.MacroAvg.F1, 1e-12)
	assert.InDelta(t, 7.0/12, rep.WeightedAvg.Precision, 1e-12)
	assert.InDelta(t, 0.5, rep.WeightedAvg.Recall, 1e-12)
	assert.InDelta(t, 11.0/24, rep.WeightedAvg.F1, 1e-12)
	assert.Equal(t, 4, rep.WeightedAvg.Support)

	want := strings.Join([]string{
		strings.Repeat(" ", 14) + "precision    recall  f1-score   support",
		"",
		"        high       0.00      0.00      0.00         1",
		"         low       1.00      0.50      0.67         2",
		"      medium       0.33      1.00      0.50         1",
		"",
		"    accuracy" + strings.Repeat(" ", 27) + "0.50" + strings.Repeat(" ", 9) + "4",
		"   macro avg       0.44      0.50      0.39         4",
		"weighted avg       0.58      0.50      0.46         4",
		"",
	}, "\n")
	assert.Equal(t, want, rep.String())
}

func TestClassificationReport_Options(t *testing.T) {
	captureWarnings(t)
	yTrue := []string{"x", "y", "y"}
	yPred := []string{"x", "y", "x"}

	rep, err := ClassificationReport(yTrue, yPred, WithLabels([]string{"y", "x"}), WithDigits(4))
	require.NoError(t, err)
	assert.Equal(t, "y", rep.Classes[0].Label)
	assert.Contains(t, rep.String(), "1.0000")

	_, err = ClassificationReport(yTrue, yPred, WithDigits(-1))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = ClassificationReport(nil, nil)
	assert.Error(t, err)
}
