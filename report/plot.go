// Package report renders charts of a fitted risk model.
package report

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// FeatureImportance pairs an encoded feature name with its importance.
type FeatureImportance struct {
	Name       string
	Importance float64
}

// RankFeatures pairs names with importances, most important first. Equal
// importances keep their input order.
func RankFeatures(names []string, importances []float64) ([]FeatureImportance, error) {
	if len(names) == 0 {
		return nil, errors.NewInvalidInputError("report.RankFeatures", "no features")
	}
	if len(importances) != len(names) {
		return nil, errors.NewDimensionError("report.RankFeatures", len(names), len(importances), 1)
	}
	ranked := make([]FeatureImportance, len(names))
	for i := range names {
		if err := errors.CheckScalar("report.RankFeatures", importances[i]); err != nil {
			return nil, err
		}
		ranked[i] = FeatureImportance{Name: names[i], Importance: importances[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Importance > ranked[j].Importance })
	return ranked, nil
}

// FeatureImportancePlot builds a bar chart of feature importances, most
// important first.
func FeatureImportancePlot(names []string, importances []float64) (*plot.Plot, error) {
	ranked, err := RankFeatures(names, importances)
	if err != nil {
		return nil, err
	}
	vals := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, f := range ranked {
		vals[i] = f.Importance
		labels[i] = f.Name
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "Mean impurity decrease"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return nil, errors.Wrap(err, "report: bar chart")
	}
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// SaveFeatureImportances writes the feature importance chart to path. The
// image format follows the file extension, e.g. .png or .svg.
func SaveFeatureImportances(path string, names []string, importances []float64) error {
	p, err := FeatureImportancePlot(names, importances)
	if err != nil {
		return err
	}
	width := vg.Length(len(names))*0.6*vg.Inch + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	return nil
}
