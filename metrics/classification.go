// Package metrics scores classifier predictions against true labels.
//
// Labels are strings. Unless given explicitly, the label set is the sorted
// union of the true and predicted labels.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

func checkPair(op string, yTrue, yPred []string) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty label vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// Accuracy returns the fraction of positions where yPred equals yTrue.
func Accuracy(yTrue, yPred []string) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// UniqueLabels returns the sorted union of the given label vectors.
func UniqueLabels(ys ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, y := range ys {
		for _, l := range y {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ConfusionMatrix counts predictions per (true, predicted) label pair. Row i
// holds samples whose true label is labels[i], column j those predicted as
// labels[j]. Pairs involving a label outside labels are ignored. A nil
// labels uses UniqueLabels of both vectors.
func ConfusionMatrix(yTrue, yPred, labels []string) (*mat.Dense, []string, error) {
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "no labels")
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, nil, errors.NewValueError("ConfusionMatrix", "duplicate label "+l)
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range yTrue {
		r, okT := index[yTrue[i]]
		c, okP := index[yPred[i]]
		if okT && okP {
			cm.Set(r, c, cm.At(r, c)+1)
		}
	}
	return cm, labels, nil
}

// PrecisionRecallFScoreSupport returns per-label precision, recall, F1 and
// support (number of true samples). A precision with no predicted samples
// or a recall with no true samples is set to 0 and reported through
// errors.Warn as an UndefinedMetricWarning.
func PrecisionRecallFScoreSupport(yTrue, yPred, labels []string) (precision, recall, f1 []float64, support []int, err error) {
	cm, labels, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	k := len(labels)
	precision = make([]float64, k)
	recall = make([]float64, k)
	f1 = make([]float64, k)
	support = make([]int, k)

	// Samples whose other label falls outside labels still count toward
	// the totals.
	predicted := make([]float64, k)
	actual := make([]float64, k)
	index := make(map[string]int, k)
	for i, l := range labels {
		index[l] = i
	}
	for i := range yTrue {
		if j, ok := index[yTrue[i]]; ok {
			actual[j]++
		}
		if j, ok := index[yPred[i]]; ok {
			predicted[j]++
		}
	}

	var noPredicted, noTrue []string
	for i := 0; i < k; i++ {
		tp := cm.At(i, i)
		support[i] = int(actual[i])
		if predicted[i] == 0 {
			noPredicted = append(noPredicted, labels[i])
		} else {
			precision[i] = tp / predicted[i]
		}
		if actual[i] == 0 {
			noTrue = append(noTrue, labels[i])
		} else {
			recall[i] = tp / actual[i]
		}
		if s := precision[i] + recall[i]; s > 0 {
			f1[i] = 2 * precision[i] * recall[i] / s
		}
	}

	if len(noPredicted) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision",
			"no predicted samples for labels "+strings.Join(noPredicted, ", "), 0))
	}
	if len(noTrue) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall",
			"no true samples for labels "+strings.Join(noTrue, ", "), 0))
	}
	return precision, recall, f1, support, nil
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class summary of classifier quality.
type Report struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Digits      int
}

type reportConfig struct {
	labels []string
	digits int
}

// ReportOption configures ClassificationReport.
type ReportOption func(*reportConfig)

// WithLabels restricts and orders the report rows.
func WithLabels(labels []string) ReportOption {
	return func(c *reportConfig) { c.labels = labels }
}

// WithDigits sets the decimals used by Report.String. Default 2.
func WithDigits(digits int) ReportOption {
	return func(c *reportConfig) { c.digits = digits }
}

// ClassificationReport builds per-label precision, recall, F1 and support
// together with overall accuracy and macro and support-weighted averages.
func ClassificationReport(yTrue, yPred []string, opts ...ReportOption) (*Report, error) {
	cfg := reportConfig{digits: 2}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.digits < 0 {
		return nil, errors.NewValidationError("digits", "must not be negative", cfg.digits)
	}
	labels := cfg.labels
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}

	p, r, f, s, err := PrecisionRecallFScoreSupport(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Accuracy:    acc,
		Digits:      cfg.digits,
		MacroAvg:    ClassMetrics{Label: "macro avg"},
		WeightedAvg: ClassMetrics{Label: "weighted avg"},
	}
	total := 0
	for i, l := range labels {
		rep.Classes = append(rep.Classes, ClassMetrics{Label: l, Precision: p[i], Recall: r[i], F1: f[i], Support: s[i]})
		total += s[i]
	}

	k := float64(len(labels))
	for _, c := range rep.Classes {
		rep.MacroAvg.Precision += c.Precision / k
		rep.MacroAvg.Recall += c.Recall / k
		rep.MacroAvg.F1 += c.F1 / k
		if total > 0 {
			w := float64(c.Support) / float64(total)
			rep.WeightedAvg.Precision += c.Precision * w
			rep.WeightedAvg.Recall += c.Recall * w
			rep.WeightedAvg.F1 += c.F1 * w
		}
	}
	rep.MacroAvg.Support = total
	rep.WeightedAvg.Support = total
	return rep, nil
}

// Class returns the row for label.
func (r *Report) Class(label string) (ClassMetrics, bool) {
	for _, c := range r.Classes {
		if c.Label == label {
			return c, true
		}
	}
	return ClassMetrics{}, false
}

// String renders the report in scikit-learn's text layout.
func (r *Report) String() string {
	const average = "weighted avg"
	width := len(average)
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	if r.Digits > width {
		width = r.Digits
	}
	d := r.Digits

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(c ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, c.Label, d, c.Precision, d, c.Recall, d, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, "accuracy", "", "", d, r.Accuracy, r.MacroAvg.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// MarshalZerologObject logs the summary figures of the report.
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("accuracy", r.Accuracy).
		Float64("macro_f1", r.MacroAvg.F1).
		Float64("weighted_f1", r.WeightedAvg.F1).
		Int("support", r.WeightedAvg.Support).
		Int("classes", len(r.Classes))
}
