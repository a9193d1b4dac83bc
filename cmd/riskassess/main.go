// Command riskassess trains and evaluates a risk classifier on a CSV file.
//
// Without --data it writes the sample applicant table to financial_data.csv
// and runs on that.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/riskassess/assessment"
	"github.com/YuminosukeSato/riskassess/dataset"
	"github.com/YuminosukeSato/riskassess/pkg/log"
)

var flags = struct {
	config   string
	data     string
	target   string
	logLevel string
	plot     string
	json     bool
}{}

var root = &cobra.Command{
	Use:          "riskassess",
	Short:        "Train and evaluate a financial risk classifier",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	root.Flags().StringVarP(&flags.config, "config", "c", "", "read settings from a TOML or JSON file")
	root.Flags().StringVarP(&flags.data, "data", "d", "", "CSV file to assess (default: write and use the sample data)")
	root.Flags().StringVarP(&flags.target, "target", "t", "", "name of the label column")
	root.Flags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	root.Flags().StringVar(&flags.plot, "plot", "", "write a feature importance chart to this file (.png, .svg)")
	root.Flags().BoolVar(&flags.json, "json", false, "log JSON lines instead of console output")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := assessment.ReadConfig(flags.config)
	if err != nil {
		return err
	}
	if flags.target != "" {
		cfg.Target = flags.target
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.plot != "" {
		cfg.PlotPath = flags.plot
	}
	if err := log.SetupLogger(cfg.LogLevel, os.Stderr, flags.json); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("riskassess")

	path := flags.data
	if path == "" {
		path = cfg.DataPath
		if err := dataset.WriteSampleCSV(path); err != nil {
			return err
		}
		if flags.target == "" {
			cfg.Target = dataset.SampleTarget
		}
		logger.Info("Sample data written", log.DataPathKey, path)
	}

	out, err := assessment.New(cfg).Run(path, cfg.Target)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Accuracy: %.2f\n\n", out.Accuracy)
	fmt.Fprint(w, out.Report.String())

	if cfg.PlotPath != "" {
		if err := out.Model.SaveFeatureImportances(cfg.PlotPath); err != nil {
			return err
		}
		logger.Info("Feature importance chart written", log.DataPathKey, cfg.PlotPath)
	}
	return nil
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
