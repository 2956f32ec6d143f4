package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/sesfit/internal/db"
	"github.com/gyeh/sesfit/internal/exitcode"
	"github.com/gyeh/sesfit/internal/logging"
	"github.com/gyeh/sesfit/internal/model"
	"github.com/gyeh/sesfit/internal/sem"
	"github.com/gyeh/sesfit/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fit both models and persist the run to Postgres",
	RunE:  runExport,
}

func init() {
	addInputFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	f, sha := loadDerived(log)

	var fits []*sem.Result
	for _, spec := range []*model.Spec{model.HealthModel(), model.InteractionModel()} {
		res, err := sem.Fit(spec, f, sem.Options{})
		if err != nil {
			log.Error().Err(err).Str("model", spec.Name).Msg("fit failed")
			os.Exit(exitcode.FitError)
		}
		fits = append(fits, res)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	meta := store.RunMeta{
		InputPath:     cfg.Input,
		InputSHA256:   sha,
		InputFormat:   cfg.InputFormat(),
		InsLabel:      cfg.InsLabel,
		MissingPolicy: cfg.Missing,
	}
	sum, err := store.ExportRun(ctx, pool, log, meta, f, fits)
	if err != nil {
		if ee, ok := err.(*store.ExportError); ok {
			log.Error().Err(ee.Err).Str("phase", ee.Phase).Msg("export failed")
		} else {
			log.Error().Err(err).Msg("export failed")
		}
		os.Exit(exitcode.ExportError)
	}

	fmt.Printf("Export complete: run %s, %d rows, %d fits (%.1fs)\n",
		sum.RunID, sum.Rows, sum.Fits, sum.Duration.Seconds())
	return nil
}
