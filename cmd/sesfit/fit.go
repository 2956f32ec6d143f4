package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/sesfit/internal/exitcode"
	"github.com/gyeh/sesfit/internal/logging"
	"github.com/gyeh/sesfit/internal/model"
	"github.com/gyeh/sesfit/internal/regress"
	"github.com/gyeh/sesfit/internal/report"
	"github.com/gyeh/sesfit/internal/sem"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit one structural model and print the parameter table",
	RunE:  runFit,
}

func init() {
	addInputFlags(fitCmd)
	f := fitCmd.Flags()
	f.StringVar(&cfg.Model, "model", "health", "Model to fit: health or interaction")
	f.StringVar(&cfg.Estimator, "estimator", "fiml", "Estimator: fiml or ols (interaction model only)")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	spec, ok := model.ByName(cfg.Model)
	if !ok {
		log.Error().Str("model", cfg.Model).Msg("unknown model (want health or interaction)")
		os.Exit(exitcode.UsageError)
	}

	f, _ := loadDerived(log)

	switch cfg.Estimator {
	case "fiml":
		res, err := sem.Fit(spec, f, sem.Options{})
		if err != nil {
			log.Error().Err(err).Str("model", spec.Name).Msg("fit failed")
			os.Exit(exitcode.FitError)
		}
		report.WriteFit(os.Stdout, res)
	case "ols":
		res, err := regress.FitOLS(spec, f)
		if err != nil {
			log.Error().Err(err).Str("model", spec.Name).Msg("fit failed")
			os.Exit(exitcode.FitError)
		}
		report.WriteOLS(os.Stdout, res)
	default:
		log.Error().Str("estimator", cfg.Estimator).Msg("unknown estimator (want fiml or ols)")
		os.Exit(exitcode.UsageError)
	}

	return nil
}
