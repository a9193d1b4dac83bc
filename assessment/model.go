package assessment

import (
	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/preprocessing"
	"github.com/YuminosukeSato/riskassess/report"
	"github.com/YuminosukeSato/riskassess/sklearn/ensemble"
)

// Model is a trained forest together with the feature schema and class
// labels it was trained on.
type Model struct {
	schema     preprocessing.Schema
	forest     *ensemble.RandomForestClassifier
	labels     *preprocessing.LabelEncoder
	target     string
	preprocess *preprocessing.Fitted
}

// IsFitted reports whether the model can predict.
func (m *Model) IsFitted() bool {
	return m != nil && m.forest != nil && m.forest.IsFitted()
}

// Schema returns the encoded feature names in training order.
func (m *Model) Schema() preprocessing.Schema { return m.schema }

// Target returns the name of the label column.
func (m *Model) Target() string { return m.target }

// Classes returns the class labels in sorted order.
func (m *Model) Classes() []string { return m.labels.Classes() }

// Forest returns the underlying classifier.
func (m *Model) Forest() *ensemble.RandomForestClassifier { return m.forest }

// Preprocessing returns the fitted preprocessing used by Predict, or nil
// when the model was trained outside Run.
func (m *Model) Preprocessing() *preprocessing.Fitted { return m.preprocess }

// WithPreprocessing attaches the preprocessing that produced the training
// features so Predict can accept raw tables.
func (m *Model) WithPreprocessing(f *preprocessing.Fitted) *Model {
	m.preprocess = f
	return m
}

// FeatureImportances returns the forest's importances ranked by weight.
func (m *Model) FeatureImportances() ([]report.FeatureImportance, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotReadyError("assessment.Model.FeatureImportances", "model has not been trained")
	}
	return report.RankFeatures(m.schema.Names(), m.forest.GetFeatureImportances())
}

// SaveFeatureImportances writes a feature importance chart to path.
func (m *Model) SaveFeatureImportances(path string) error {
	if !m.IsFitted() {
		return errors.NewNotReadyError("assessment.Model.SaveFeatureImportances", "model has not been trained")
	}
	return report.SaveFeatureImportances(path, m.schema.Names(), m.forest.GetFeatureImportances())
}

// PredictFeatures returns the predicted label of each row of encoded
// features. The columns must match the training schema.
func (m *Model) PredictFeatures(features *preprocessing.Features) ([]string, error) {
	const op = "assessment.Model.Predict"
	if !m.IsFitted() {
		return nil, errors.NewNotReadyError(op, "model has not been trained")
	}
	if features == nil {
		return nil, errors.NewInvalidInputError(op, "features are nil")
	}
	if !m.schema.Matches(features.Names()) {
		return nil, errors.NewNotReadyError(op, "feature columns do not match the fitted schema")
	}
	if features.Nrow() == 0 {
		return []string{}, nil
	}

	pred, err := m.forest.Predict(features.Dense())
	if err != nil {
		return nil, err
	}
	rows, _ := pred.Dims()
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = int(pred.At(i, 0))
	}
	return m.labels.InverseTransform(idx)
}

// Predict returns the predicted label of each row of a raw table, applying
// the fitted imputation and encoding first. A target column in t is ignored.
func (m *Model) Predict(t *dataset.Table) ([]string, error) {
	const op = "assessment.Model.Predict"
	if !m.IsFitted() {
		return nil, errors.NewNotReadyError(op, "model has not been trained")
	}
	if m.preprocess == nil {
		return nil, errors.NewNotReadyError(op, "model has no fitted preprocessing")
	}
	features, err := m.preprocess.Transform(t)
	if err != nil {
		return nil, err
	}
	return m.PredictFeatures(features)
}
