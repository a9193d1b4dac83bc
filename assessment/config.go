package assessment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/errors"
	"github.com/YuminosukeSato/riskassess/pkg/log"
)

// Config holds the settings of an assessment run.
type Config struct {
	// NEstimators is the number of trees in the forest.
	NEstimators int `toml:"n_estimators" json:"n_estimators"`
	// RandomState seeds the split and the forest.
	RandomState int64 `toml:"random_state" json:"random_state"`
	// TestSize is the fraction of rows held out for evaluation.
	TestSize float64 `toml:"test_size" json:"test_size"`
	// Stratify keeps class proportions in both halves of the split.
	Stratify bool `toml:"stratify" json:"stratify"`
	// NJobs is the number of goroutines fitting trees. Below 1 means one per CPU.
	NJobs int `toml:"n_jobs" json:"n_jobs"`
	// MaxDepth limits tree depth. Negative means unlimited.
	MaxDepth int `toml:"max_depth" json:"max_depth"`

	LogLevel string `toml:"log_level" json:"log_level"`
	DataPath string `toml:"data_path" json:"data_path"`
	Target   string `toml:"target" json:"target"`
	// PlotPath, when set, receives a feature importance chart.
	PlotPath string `toml:"plot_path" json:"plot_path"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		NEstimators: 100,
		RandomState: 42,
		TestSize:    0.3,
		Stratify:    true,
		NJobs:       1,
		MaxDepth:    -1,
		LogLevel:    "info",
		DataPath:    "financial_data.csv",
		Target:      dataset.SampleTarget,
	}
}

// ReadConfig reads a config file over DefaultConfig. Files ending in .toml
// are read as TOML, anything else as JSON. An empty name returns the
// defaults. Unknown TOML keys are rejected.
func ReadConfig(name string) (Config, error) {
	cfg := DefaultConfig()
	if name == "" {
		return cfg, nil
	}
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		md, err := toml.DecodeFile(name, &cfg)
		if err != nil {
			return Config{}, configError(name, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.NewValidationError(undecoded[0].String(), "unknown configuration key", name)
		}
		return cfg, cfg.Validate()
	}

	f, err := os.Open(name)
	if err != nil {
		return Config{}, configError(name, err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, configError(name, err)
	}
	return cfg, cfg.Validate()
}

func configError(name string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return errors.NewNotFoundError("assessment.ReadConfig", name, err)
	}
	return errors.NewLoadError("assessment.ReadConfig", name, err)
}

// Validate checks every field and returns the first ValidationError.
func (c Config) Validate() error {
	switch {
	case c.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", c.NEstimators)
	case c.TestSize <= 0 || c.TestSize >= 1:
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	case strings.TrimSpace(c.Target) == "":
		return errors.NewValidationError("target", "must not be empty", c.Target)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
