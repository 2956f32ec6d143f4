package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/exitcode"
	"github.com/gyeh/sesfit/internal/logging"
	"github.com/gyeh/sesfit/internal/model"
	"github.com/gyeh/sesfit/internal/report"
	"github.com/gyeh/sesfit/internal/sem"
	"github.com/gyeh/sesfit/internal/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Full pipeline: tables, both model fits and all plots",
	RunE:  runAnalyze,
}

func init() {
	addInputFlags(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&cfg.OutDir, "out", "out", "Directory for rendered charts")
	f.StringSliceVar(&cfg.Plots, "plots", nil, "Plots to render (default: all)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	f, _ := loadDerived(log)

	policy, _ := cfg.Policy()

	sums, err := stats.Describe(f, describeVars)
	if err != nil {
		log.Error().Err(err).Msg("describe failed")
		os.Exit(exitcode.DeriveError)
	}
	report.WriteSummary(os.Stdout, sums)

	for _, row := range []string{derive.SESCat, derive.SESGroup} {
		ct, err := stats.CrossTabulate(f, row, derive.InsBin)
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

	for _, spec := range []*model.Spec{model.HealthModel(), model.InteractionModel()} {
		res, err := sem.Fit(spec, f, sem.Options{})
		if err != nil {
			log.Error().Err(err).Str("model", spec.Name).Msg("fit failed")
			os.Exit(exitcode.FitError)
		}
		report.WriteFit(os.Stdout, res)
	}

	if err := report.RenderAll(f, cfg.OutDir, cfg.Plots, policy, log); err != nil {
		log.Error().Err(err).Msg("some plots failed")
		os.Exit(exitcode.PlotError)
	}
	log.Info().Str("dir", cfg.OutDir).Msg("charts written")

	return nil
}
