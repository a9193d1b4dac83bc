package assessment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/pkg/log"
	"github.com/YuminosukeSato/riskassess/preprocessing"
)

func sampleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "financial_data.csv")
	require.NoError(t, dataset.WriteSampleCSV(path))
	return path
}

// bandedCSV writes rows whose numeric columns fall into well separated bands
// per risk level. region is noise with a few missing cells.
func bandedCSV(t *testing.T, n int) string {
	t.Helper()
	levels := []string{"low", "medium", "high"}
	regions := []string{"north", "south", "east"}
	var b strings.Builder
	b.WriteString("age,income,credit_score,region,risk_level\n")
	for i := 0; i < n; i++ {
		c := i % 3
		region := regions[(i/3)%3]
		if i%8 == 5 {
			region = ""
		}
		fmt.Fprintf(&b, "%d,%d,%d,%s,%s\n",
			25+c*15+i%5,
			30000+c*30000+(i%7)*1000,
			850-c*100-i%10,
			region,
			levels[c],
		)
	}
	path := filepath.Join(t.TempDir(), "banded.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NEstimators = 30
	return cfg
}

func TestRun_SampleData(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	a := New(DefaultConfig(), WithLogger(logger))

	out, err := a.Run(sampleCSV(t), dataset.SampleTarget)
	require.NoError(t, err)
	require.NotNil(t, out)

	_, err = uuid.Parse(out.RunID)
	assert.NoError(t, err)
	assert.Greater(t, out.Accuracy, 0.3)
	assert.LessOrEqual(t, out.Accuracy, 1.0)
	// Seed 42 holds out rows 1, 5 and 9; row 1 is a young low-risk applicant.
	assert.ElementsMatch(t, []int{1, 5, 9}, out.Partition.Rows.Test)
	assert.Equal(t, out.Accuracy, out.Report.Accuracy)

	assert.Len(t, out.Partition.Rows.Train, 7)
	assert.Len(t, out.Partition.Rows.Test, 3)
	assert.ElementsMatch(t, []string{"high", "low", "medium"}, out.Evaluation.Truth)
	assert.Equal(t, 3, out.Report.WeightedAvg.Support)
	assert.Equal(t, []string{"high", "low", "medium"}, out.Model.Classes())
	assert.Equal(t, []string{"age", "income", "loan_amount", "credit_score", "employment_duration"},
		out.Model.Schema().Names())
	assert.Equal(t, 100, len(out.Model.Forest().Estimators()))

	// Every entry of the run carries its id.
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, out.RunID, e[log.RunIDKey], e["message"])
	}
	assert.True(t, logger.ContainsMessage("Data loaded"))
	assert.True(t, logger.ContainsMessage("Missing values filled"))
	assert.True(t, logger.ContainsMessage("Data split"))
	assert.True(t, logger.ContainsMessage("Random forest trained"))
	assert.True(t, logger.ContainsMessage("Model evaluated"))
	assert.True(t, logger.ContainsMessage("Risk assessment completed"))
	assert.Empty(t, logger.EntriesAt(log.LevelError))
}

func TestRun_SeparableData(t *testing.T) {
	path := bandedCSV(t, 90)
	logger, _ := log.NewTestLogger(log.LevelInfo)
	out, err := New(testConfig(), WithLogger(logger)).Run(path, "risk_level")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.Accuracy, 0.9)
	assert.Len(t, out.Partition.Rows.Test, 27)
	for _, level := range []string{"low", "medium", "high"} {
		row, ok := out.Report.Class(level)
		require.True(t, ok, level)
		assert.Equal(t, 9, row.Support, level)
	}
	// region has three categories, so two indicator columns.
	assert.Equal(t, []string{"age", "income", "credit_score", "region_south", "region_east"},
		out.Model.Schema().Names())
}

func TestRun_Deterministic(t *testing.T) {
	path := bandedCSV(t, 60)
	run := func(jobs int) *Outcome {
		cfg := testConfig()
		cfg.NJobs = jobs
		logger, _ := log.NewTestLogger(log.LevelInfo)
		out, err := New(cfg, WithLogger(logger)).Run(path, "risk_level")
		require.NoError(t, err)
		return out
	}
	first, second, parallel := run(1), run(1), run(4)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Partition.Rows, second.Partition.Rows)
	assert.Equal(t, first.Evaluation.Predictions, second.Evaluation.Predictions)
	assert.Equal(t, first.Evaluation.Predictions, parallel.Evaluation.Predictions)
	assert.Equal(t, first.Model.Forest().GetFeatureImportances(), parallel.Model.Forest().GetFeatureImportances())
}

func TestRun_UnstratifiedSplit(t *testing.T) {
	cfg := testConfig()
	cfg.Stratify = false
	cfg.TestSize = 0.2
	logger, _ := log.NewTestLogger(log.LevelInfo)
	out, err := New(cfg, WithLogger(logger)).Run(bandedCSV(t, 50), "risk_level")
	require.NoError(t, err)
	assert.Len(t, out.Partition.Rows.Test, 10)
	assert.Len(t, out.Partition.Rows.Train, 40)
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()
	noTarget := filepath.Join(dir, "no_target.csv")
	require.NoError(t, os.WriteFile(noTarget, []byte("a,b\n1,2\n3,4\n"), 0o644))
	allMissing := filepath.Join(dir, "all_missing.csv")
	require.NoError(t, os.WriteFile(allMissing, []byte("a,empty,y\n1,,x\n2,,y\n3,,x\n"), 0o644))
	missingLabel := filepath.Join(dir, "missing_label.csv")
	require.NoError(t, os.WriteFile(missingLabel,
		[]byte("a,y\n1,x\n2,\n3,x\n4,y\n5,y\n6,x\n7,y\n8,x\n9,y\n10,x\n"), 0o644))

	tests := []struct {
		name    string
		path    string
		target  string
		stage   string
		message string
		kind    errors.Kind
	}{
		{"missing file", filepath.Join(dir, "nope.csv"), "y", log.StageLoad, "Data loading failed", errors.KindNotFound},
		{"unknown target", noTarget, "risk_level", log.StagePreprocess, "Preprocessing failed", errors.KindUnknownColumn},
		{"column without values", allMissing, "y", log.StagePreprocess, "Preprocessing failed", errors.KindImputation},
		{"missing target label", missingLabel, "y", log.StageTrain, "Training failed", errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := log.NewTestLogger(log.LevelInfo)
			out, err := New(testConfig(), WithLogger(logger)).Run(tt.path, tt.target)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err), err.Error())

			// The stage logs the cause once and Run adds the summary line.
			errs := logger.EntriesAt(log.LevelError)
			require.Len(t, errs, 2)
			assert.Equal(t, tt.message, errs[0]["message"])
			assert.Equal(t, tt.stage, errs[0][log.StageKey])
			assert.NotEmpty(t, errs[0][log.ErrorKey])
			assert.Equal(t, "Risk assessment failed", errs[1]["message"])
			assert.Equal(t, tt.stage, errs[1][log.StageKey])
			assert.Nil(t, errs[1][log.ErrorKey])
			assert.False(t, logger.ContainsMessage("Risk assessment completed"))
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TestSize = 1.5
	logger, _ := log.NewTestLogger(log.LevelInfo)
	out, err := New(cfg, WithLogger(logger)).Run(sampleCSV(t), dataset.SampleTarget)
	assert.Nil(t, out)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "test_size", ve.ParamName)
	assert.False(t, logger.ContainsMessage("Data loaded"))

	errs := logger.EntriesAt(log.LevelError)
	require.Len(t, errs, 2)
	assert.Equal(t, "Invalid configuration", errs[0]["message"])
	assert.Equal(t, log.StageConfig, errs[0][log.StageKey])
	assert.Equal(t, "Risk assessment failed", errs[1]["message"])
}

func TestStages_LogTheirFailures(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	a := New(testConfig(), WithLogger(logger))

	missing := filepath.Join(t.TempDir(), "missing.csv")
	table, err := a.Load(missing)
	assert.Nil(t, table)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	errs := logger.EntriesAt(log.LevelError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Data loading failed", errs[0]["message"])
	assert.Equal(t, log.StageLoad, errs[0][log.StageKey])
	assert.Equal(t, missing, errs[0][log.DataPathKey])
	assert.Equal(t, "NotFound", errs[0][log.ErrorKindKey])

	res, err := a.Preprocess(dataset.SampleFinancialData(), "nope")
	assert.Nil(t, res)
	assert.True(t, errors.IsKind(err, errors.KindUnknownColumn))

	_, err = a.Split(nil)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	_, err = a.Train(preprocessing.Schema{}, nil, dataset.Column{})
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	_, err = a.Evaluate(nil, nil, dataset.Column{})
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	errs = logger.EntriesAt(log.LevelError)
	require.Len(t, errs, 5)
	for i, want := range []struct{ message, stage string }{
		{"Data loading failed", log.StageLoad},
		{"Preprocessing failed", log.StagePreprocess},
		{"Data split failed", log.StageSplit},
		{"Training failed", log.StageTrain},
		{"Evaluation failed", log.StageEvaluate},
	} {
		assert.Equal(t, want.message, errs[i]["message"])
		assert.Equal(t, want.stage, errs[i][log.StageKey])
		assert.NotEmpty(t, errs[i][log.ErrorKey])
	}
}

func preprocessed(t *testing.T, a *Assessment) *preprocessing.Result {
	t.Helper()
	table, err := a.Load(sampleCSV(t))
	require.NoError(t, err)
	res, err := a.Preprocess(table, dataset.SampleTarget)
	require.NoError(t, err)
	return res
}

func TestTrain_RequiresFittedSchema(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	a := New(testConfig(), WithLogger(logger))
	res := preprocessed(t, a)

	_, err := a.Train(preprocessing.Schema{}, res.Features, res.Target)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	other := preprocessing.NewSchema([]string{"age", "income"})
	_, err = a.Train(other, res.Features, res.Target)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	_, err = a.Train(res.Schema, nil, res.Target)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = a.Train(res.Schema, res.Features, dataset.Column{})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	m, err := a.Train(res.Schema, res.Features, res.Target)
	require.NoError(t, err)
	assert.True(t, m.IsFitted())
	assert.Equal(t, dataset.SampleTarget, m.Target())
}

func TestEvaluate_RequiresModel(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	a := New(testConfig(), WithLogger(logger))
	res := preprocessed(t, a)

	_, err := a.Evaluate(nil, res.Features, res.Target)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	_, err = a.Evaluate(&Model{}, res.Features, res.Target)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))

	m, err := a.Train(res.Schema, res.Features, res.Target)
	require.NoError(t, err)
	eval, err := a.Evaluate(m, res.Features, res.Target)
	require.NoError(t, err)
	assert.Len(t, eval.Predictions, 10)
	assert.Greater(t, eval.Accuracy, 0.5)
}

func TestSplit_RequiresPreprocessedData(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	_, err := New(testConfig(), WithLogger(logger)).Split(nil)
	assert.True(t, errors.IsKind(err, errors.KindNotReady))
}
