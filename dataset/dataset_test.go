package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInfersKindsAndMissing(t *testing.T) {
	path := writeFile(t, "data.csv", "age,segment,score,flag\n25,retail,1.5,true\n,corp,NA,false\n40,,2.5,true\n")

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "segment", "score", "flag"}, table.Names())
	assert.Equal(t, 3, table.Nrow())

	age, err := table.Column("age")
	require.NoError(t, err)
	assert.Equal(t, Numeric, age.Kind())
	assert.True(t, age.IsMissing(1))
	assert.Equal(t, 1, age.MissingCount())
	assert.True(t, math.IsNaN(age.Floats()[1]))
	assert.Equal(t, 40.0, age.Floats()[2])

	segment, err := table.Column("segment")
	require.NoError(t, err)
	assert.Equal(t, Categorical, segment.Kind())
	assert.Equal(t, []string{"retail", "corp", ""}, segment.Strings())

	score, err := table.Column("score")
	require.NoError(t, err)
	assert.Equal(t, Numeric, score.Kind())
	assert.True(t, score.IsMissing(1))

	flag, err := table.Column("flag")
	require.NoError(t, err)
	assert.Equal(t, Numeric, flag.Kind())
	assert.Equal(t, []float64{1, 0, 1}, flag.Floats())

	assert.Equal(t, 3, table.MissingCount())
}

func TestLoadStripsBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", "\ufeffage,risk\n30,low\n")

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "risk"}, table.Names())
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want errors.Kind
	}{
		{name: "nonexistent path", path: filepath.Join(dir, "non_existent_file.csv"), want: errors.KindNotFound},
		{name: "directory", path: dir, want: errors.KindLoad},
		{name: "empty file", path: writeFile(t, "empty.csv", ""), want: errors.KindLoad},
		{name: "header only", path: writeFile(t, "header.csv", "a,b\n"), want: errors.KindLoad},
		{name: "ragged row", path: writeFile(t, "ragged.csv", "a,b\n1,2\n3\n"), want: errors.KindLoad},
		{name: "invalid utf-8", path: writeFile(t, "latin1.csv", "name\n\xe9t\xe9\n"), want: errors.KindLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(tt.path)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.Equal(t, tt.want, errors.KindOf(err), "err: %v", err)
		})
	}
}

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("x,y\n1,a\n2,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Nrow())

	_, err = ReadCSV(strings.NewReader(""))
	assert.Equal(t, errors.KindLoad, errors.KindOf(err))
}

func TestTableOperations(t *testing.T) {
	table, err := NewTable(
		NewNumeric("x", []float64{1, 2, math.NaN()}),
		NewCategorical("c", []string{"a", "", "b"}),
	)
	require.NoError(t, err)

	_, err = table.Column("missing")
	assert.Equal(t, errors.KindUnknownColumn, errors.KindOf(err))

	dropped, err := table.Drop("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, dropped.Names())
	assert.Equal(t, []string{"x", "c"}, table.Names(), "Drop must not modify the receiver")

	_, err = dropped.Drop("x")
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	sub, err := table.Subset([]int{2, 0})
	require.NoError(t, err)
	c, err := sub.Column("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, c.Strings())

	_, err = table.Subset([]int{5})
	require.Error(t, err)
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable()
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = NewTable(NewNumeric("x", []float64{1}), NewNumeric("x", []float64{2}))
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))

	_, err = NewTable(NewNumeric("x", []float64{1}), NewNumeric("y", []float64{1, 2}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financial_data.csv")
	require.NoError(t, WriteSampleCSV(path))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, table.Nrow())
	assert.Equal(t, []string{"age", "income", "loan_amount", "credit_score", "employment_duration", SampleTarget}, table.Names())
	assert.Zero(t, table.MissingCount())

	target, err := table.Column(SampleTarget)
	require.NoError(t, err)
	assert.Equal(t, Categorical, target.Kind())
	assert.Equal(t, SampleFinancialData().Columns()[5].Strings(), target.Strings())

	income, err := table.Column("income")
	require.NoError(t, err)
	assert.Equal(t, Numeric, income.Kind())
	assert.Equal(t, 100000.0, income.Floats()[7])
}

func TestWriteCSVKeepsMissing(t *testing.T) {
	table, err := NewTable(
		NewNumeric("x", []float64{1.5, math.NaN()}),
		NewCategorical("c", []string{"", "b"}),
	)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, table.WriteCSV(&sb))

	back, err := ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, back.MissingCount())
}
