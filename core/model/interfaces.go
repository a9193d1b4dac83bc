package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is an estimator trained on features X and a column vector y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor predicts one value per row of X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier predicts numeric class labels and their probabilities.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns one column of class probabilities per class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Score returns the mean accuracy on X and y.
	Score(X, y mat.Matrix) float64

	// NClasses returns the number of classes seen during fitting.
	NClasses() int

	// IsFitted reports whether Fit has completed.
	IsFitted() bool
}

// FeatureImporter exposes impurity-based feature importances summing to 1.
type FeatureImporter interface {
	GetFeatureImportances() []float64
}

// ParameterGetter exposes hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter allows changing hyperparameters before Fit.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}
