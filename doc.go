// Package riskassess assesses the credit risk of loan applicants from tabular
// data with a random forest classifier.
//
// The pipeline reads a CSV file with a header row, fills missing cells (mean
// for numeric columns, most frequent value for categorical ones), expands
// categorical columns into drop-first indicator columns, splits the rows
// into training and test sets, trains a random forest and reports accuracy
// together with a per-class classification report.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/riskassess/assessment"
//	)
//
//	func main() {
//	    a := assessment.New(assessment.DefaultConfig())
//	    out, err := a.Run("financial_data.csv", "risk_level")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("Accuracy: %.2f\n", out.Accuracy)
//	    fmt.Print(out.Report)
//	}
//
// The riskassess command does the same from the shell and writes a sample
// data set when no --data flag is given.
//
// # Packages
//
//   - assessment: the orchestrator, its Config and the trained Model
//   - dataset: CSV loading and the Table/Column types (gota)
//   - preprocessing: imputation, one-hot encoding, label encoding, schema alignment
//   - model_selection: seeded, optionally stratified train/test splits
//   - sklearn/tree: CART decision tree classifier
//   - sklearn/ensemble: random forest classifier
//   - metrics: accuracy, confusion matrix, classification report
//   - report: feature importance charts (gonum/plot)
//   - core/model: estimator interfaces and fit state
//   - core/parallel: bounded worker fan-out
//   - pkg/errors: typed failures and warnings
//   - pkg/log: structured logging on zerolog
//
// # Errors
//
// Every stage fails with an error whose kind is recovered by errors.KindOf:
// NotFound, LoadError, InvalidInput, UnknownColumn, ImputationError or
// NotReady. Hyperparameter and configuration problems are ValidationErrors.
//
// # Reproducibility
//
// The split and every tree are seeded from Config.RandomState. Results do
// not depend on Config.NJobs.
package riskassess
