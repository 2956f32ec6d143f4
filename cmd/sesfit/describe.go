package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/exitcode"
	"github.com/gyeh/sesfit/internal/logging"
	"github.com/gyeh/sesfit/internal/report"
	"github.com/gyeh/sesfit/internal/stats"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print descriptive tables (no model fitting, no writes)",
	RunE:  runDescribe,
}

func init() {
	addInputFlags(describeCmd)
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	f, _ := loadDerived(log)

	policy, _ := cfg.Policy()

	sums, err := stats.Describe(f, describeVars)
	if err != nil {
		log.Error().Err(err).Msg("describe failed")
		os.Exit(exitcode.DeriveError)
	}
	report.WriteSummary(os.Stdout, sums)

	for _, pair := range [][2]string{
		{derive.SESCat, derive.InsBin},
		{derive.SESGroup, derive.InsBin},
		{derive.InsLabel, "PHSTAT_A"},
	} {
		ct, err := stats.CrossTabulate(f, pair[0], pair[1])
		if err != nil {
			log.Error().Err(err).Msg("cross-tabulation failed")
			os.Exit(exitcode.DeriveError)
		}
		report.WriteCrossTab(os.Stdout, ct)
	}

	r, err := stats.CorrMatrix(f, corrVars, policy)
	if err != nil {
		log.Error().Err(err).Msg("correlation failed")
		os.Exit(exitcode.DeriveError)
	}
	report.WriteCorr(os.Stdout, corrVars, r)

	return nil
}
