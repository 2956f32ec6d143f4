package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/exitcode"
	"github.com/gyeh/sesfit/internal/frame"
)

// loadDerived validates the config, reads the survey file and applies the
// feature derivations. Failures exit with the matching code.
func loadDerived(log zerolog.Logger) (*frame.Frame, string) {
	if err := mergeConfigFile(); err != nil {
		log.Error().Err(err).Msg("config file invalid")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	sha, err := frame.FileHash(cfg.Input)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash input")
		os.Exit(exitcode.LoadError)
	}

	var f *frame.Frame
	switch cfg.InputFormat() {
	case "parquet":
		f, err = frame.ReadParquet(cfg.Input)
	default:
		delim, _ := cfg.DelimiterRune()
		f, err = frame.ReadCSV(cfg.Input, delim)
	}
	if err != nil {
		log.Error().Err(err).Str("file", cfg.Input).Msg("failed to load input")
		os.Exit(exitcode.LoadError)
	}
	log.Info().
		Str("file", cfg.Input).
		Str("format", cfg.InputFormat()).
		Str("sha256", sha).
		Int("rows", f.NumRows()).
		Msg("data loaded")

	opts, _ := cfg.DeriveOptions()
	df, err := derive.Derive(f, opts)
	if err != nil {
		log.Error().Err(err).Msg("feature derivation failed")
		os.Exit(exitcode.DeriveError)
	}

	return df, sha
}

// describeVars are the numeric columns summarized by the descriptive tables.
var describeVars = []string{
	"EDUCP_A", "POVRATTC_A", "DIBEV_A", "HYPEV_A",
	"PHSTAT_A", "PHQCAT_A", "LSATIS4_A",
	derive.InsBin, derive.SESScore, derive.SESxIns, derive.PhstatReversed,
}

// corrVars are the columns in the reported correlation matrix.
var corrVars = []string{
	"EDUCP_A", "POVRATTC_A", "PHSTAT_A", "PHQCAT_A", "LSATIS4_A",
	derive.InsBin, derive.SESScore,
}
