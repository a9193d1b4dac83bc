package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/riskassess/core/model"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// LabelEncoder maps class labels to indices 0..n-1. Classes are sorted, so
// "high" < "low" < "medium".
type LabelEncoder struct {
	state   *model.StateManager
	classes []string
	index   map[string]int
}

// NewLabelEncoder creates an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit records the sorted distinct labels. Empty labels are rejected.
func (le *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LabelEncoder.Fit")
	}
	index := make(map[string]int)
	var classes []string
	for _, l := range labels {
		if l == "" {
			return errors.NewValueError("LabelEncoder.Fit", "target contains missing labels")
		}
		if _, ok := index[l]; !ok {
			index[l] = 0
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	for i, c := range classes {
		index[c] = i
	}
	le.classes = classes
	le.index = index
	le.state.SetFitted(1, len(labels))
	return nil
}

// Transform maps labels to class indices.
func (le *LabelEncoder) Transform(labels []string) ([]int, error) {
	if err := le.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		k, ok := le.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", "unseen label '"+l+"'")
		}
		out[i] = k
	}
	return out, nil
}

// FitTransform fits on labels and encodes them.
func (le *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := le.Fit(labels); err != nil {
		return nil, err
	}
	return le.Transform(labels)
}

// InverseTransform maps class indices back to labels.
func (le *LabelEncoder) InverseTransform(idx []int) ([]string, error) {
	if err := le.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	out := make([]string, len(idx))
	for i, k := range idx {
		if k < 0 || k >= len(le.classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", "class index out of range")
		}
		out[i] = le.classes[k]
	}
	return out, nil
}

// Classes returns the sorted class labels.
func (le *LabelEncoder) Classes() []string {
	return append([]string(nil), le.classes...)
}
