package dataset

import (
	"os"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// SampleTarget is the target column of the sample financial data.
const SampleTarget = "risk_level"

// SampleFinancialData returns the 10-row demonstration table: five numeric
// applicant attributes and the categorical risk_level target.
func SampleFinancialData() *Table {
	ints := func(name string, v ...int) Column {
		return ColumnFromSeries(series.New(v, series.Int, name))
	}
	t, err := NewTable(
		ints("age", 25, 30, 35, 40, 45, 50, 55, 60, 28, 33),
		ints("income", 30000, 40000, 50000, 60000, 70000, 80000, 90000, 100000, 35000, 45000),
		ints("loan_amount", 10000, 15000, 20000, 25000, 30000, 35000, 40000, 45000, 12000, 18000),
		ints("credit_score", 650, 700, 720, 750, 780, 800, 820, 850, 680, 710),
		ints("employment_duration", 2, 5, 7, 10, 12, 15, 18, 20, 3, 6),
		NewCategorical(SampleTarget, []string{
			"low", "low", "medium", "low", "medium", "high", "high", "high", "low", "medium",
		}),
	)
	if err != nil {
		panic(err) // static data
	}
	return t
}

// WriteSampleCSV writes SampleFinancialData to path, replacing any file there.
func WriteSampleCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: create %s", path)
	}
	if err := SampleFinancialData().WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "dataset: close %s", path)
}
