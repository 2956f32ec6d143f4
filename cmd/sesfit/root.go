package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/sesfit/internal/config"
)

var (
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sesfit",
	Short: "Survey SES and health-status analysis pipeline",
	Long: "Loads adult survey extracts, derives socioeconomic and insurance " +
		"indicators, fits the structural health models by full-information " +
		"maximum likelihood and renders descriptive tables and charts.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
}

// addInputFlags registers the flags shared by every command that reads the
// survey file.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.Input, "input", "", "Path to survey data file (required)")
	f.StringVar(&cfg.Format, "format", "", "Input format: csv or parquet (default: infer from extension)")
	f.StringVar(&cfg.Delimiter, "delimiter", "", "CSV field separator (default \";\")")
	f.StringVar(&cfg.Missing, "missing", "", "Missing-data policy: pairwise or listwise (default pairwise)")
	f.StringVar(&cfg.InsLabel, "ins-label", "", "Insurance label convention: source or corrected (default source)")
	_ = cmd.MarkFlagRequired("input")
}

// mergeConfigFile folds the YAML config, when given, into cfg.
func mergeConfigFile() error {
	if configPath == "" {
		return nil
	}
	return cfg.LoadFromFile(configPath)
}
