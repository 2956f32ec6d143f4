package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/report"
	"github.com/gyeh/sesfit/internal/stats"
)

// Config holds all runtime configuration for a sesfit run. Flags fill it
// first; a YAML config file, when given, overrides the file-backed fields.
type Config struct {
	Input     string   // survey data file
	Format    string   // "csv", "parquet", or "" to infer from the extension
	Delimiter string   `yaml:"delimiter"` // CSV field separator, one rune
	OutDir    string   `yaml:"out_dir"`   // destination for plots and reports
	Missing   string   `yaml:"missing"`   // "pairwise" or "listwise"
	InsLabel  string   `yaml:"ins_label"` // "source" or "corrected"
	Plots     []string `yaml:"plots"`     // subset of report.AllPlots names
	DSN       string
	LogFormat string // "text" or "json"
	Model     string // "health" or "interaction"
	Estimator string // "fiml" or "ols"
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	Input     string   `yaml:"input"`
	Format    string   `yaml:"format"`
	Delimiter string   `yaml:"delimiter"`
	OutDir    string   `yaml:"out_dir"`
	Missing   string   `yaml:"missing"`
	InsLabel  string   `yaml:"ins_label"`
	Plots     []string `yaml:"plots"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Only fields present in the file override the current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.Input != "" {
		c.Input = yc.Input
	}
	if yc.Format != "" {
		c.Format = yc.Format
	}
	if yc.Delimiter != "" {
		c.Delimiter = yc.Delimiter
	}
	if yc.OutDir != "" {
		c.OutDir = yc.OutDir
	}
	if yc.Missing != "" {
		c.Missing = yc.Missing
	}
	if yc.InsLabel != "" {
		c.InsLabel = yc.InsLabel
	}
	if len(yc.Plots) > 0 {
		c.Plots = yc.Plots
	}
	return c.validatePlots()
}

// validatePlots checks that every requested plot name is known. An empty
// list means all plots.
func (c *Config) validatePlots() error {
	for _, name := range c.Plots {
		if _, ok := report.PlotByName(name); !ok {
			return fmt.Errorf("unknown plot %q in config", name)
		}
	}
	return nil
}

// Validate checks required fields and returns an error if the config is
// invalid.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("--input is required")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("input not accessible: %w", err)
	}
	switch c.InputFormat() {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unknown input format %q (want csv or parquet)", c.InputFormat())
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if _, err := stats.ParsePolicy(c.Missing); err != nil {
		return err
	}
	if _, err := derive.ParseLabelConvention(c.InsLabel); err != nil {
		return err
	}
	return c.validatePlots()
}

// ValidateWithDSN checks both input and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}

// InputFormat resolves the input format, inferring from the file extension
// when Format is unset.
func (c *Config) InputFormat() string {
	if c.Format != "" {
		return c.Format
	}
	switch strings.ToLower(filepath.Ext(c.Input)) {
	case ".parquet", ".pq":
		return "parquet"
	default:
		return "csv"
	}
}

// DelimiterRune returns the CSV field separator. An unset delimiter
// defaults to semicolon, the convention of the source survey extracts.
func (c *Config) DelimiterRune() (rune, error) {
	if c.Delimiter == "" {
		return ';', nil
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r, nil
}

// Policy returns the parsed missing-data policy.
func (c *Config) Policy() (stats.Policy, error) {
	return stats.ParsePolicy(c.Missing)
}

// DeriveOptions returns the feature-derivation options.
func (c *Config) DeriveOptions() (derive.Options, error) {
	conv, err := derive.ParseLabelConvention(c.InsLabel)
	if err != nil {
		return derive.Options{}, err
	}
	return derive.Options{InsLabel: conv}, nil
}
