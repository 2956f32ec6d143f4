// Package store persists analysis runs to Postgres: the derived data frame,
// run metadata and fitted model results.
package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/sesfit/internal/db"
	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/sem"
)

// ExportError wraps an error with the export phase where it occurred.
type ExportError struct {
	Phase string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// RunMeta describes the run being exported.
type RunMeta struct {
	InputPath     string
	InputSHA256   string
	InputFormat   string
	InsLabel      string
	MissingPolicy string
}

// ExportSummary reports what a completed export wrote.
type ExportSummary struct {
	RunID    uuid.UUID
	Rows     int64
	Fits     int
	Duration time.Duration
}

// observationColumns is the COPY column order for ses.observations.
var observationColumns = []string{
	"run_id", "row_idx",
	"hicov_a", "educp_a", "povrattc_a", "dibev_a", "hypev_a",
	"phstat_a", "phqcat_a", "lsatis4_a",
	"ins_bin", "ses_score", "ses_x_ins", "phstat_reversed",
	"ses_cat", "ses_group", "ins_label",
}

// ExportRun writes the run, its derived observations and the fitted models
// in one transaction. The frame must already carry the derived columns.
func ExportRun(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, meta RunMeta, f *frame.Frame, fits []*sem.Result) (*ExportSummary, error) {
	start := time.Now()
	runID := uuid.New()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, &ExportError{Phase: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO ses.runs (run_id, input_path, input_sha256, input_format, n_rows, ins_label, missing_policy)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, meta.InputPath, meta.InputSHA256, meta.InputFormat, f.NumRows(), meta.InsLabel, meta.MissingPolicy)
	if err != nil {
		return nil, &ExportError{Phase: "run", Err: err}
	}

	rows, err := copyObservations(ctx, tx, runID, f)
	if err != nil {
		return nil, &ExportError{Phase: "observations", Err: err}
	}
	log.Info().Int64("rows", rows).Msg("observations copied")

	for _, r := range fits {
		if err := insertFit(ctx, tx, runID, r); err != nil {
			return nil, &ExportError{Phase: "fits", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &ExportError{Phase: "commit", Err: err}
	}

	summary := &ExportSummary{RunID: runID, Rows: rows, Fits: len(fits), Duration: time.Since(start)}
	log.Info().
		Str("run_id", runID.String()).
		Int64("rows", rows).
		Int("fits", len(fits)).
		Str("duration", summary.Duration.String()).
		Msg("export complete")
	return summary, nil
}

// copyObservations streams the frame through COPY. Rows flow through a
// channel so the builder and the writer overlap.
func copyObservations(ctx context.Context, tx pgx.Tx, runID uuid.UUID, f *frame.Frame) (int64, error) {
	numeric := []string{
		"HICOV_A", "EDUCP_A", "POVRATTC_A", "DIBEV_A", "HYPEV_A",
		"PHSTAT_A", "PHQCAT_A", "LSATIS4_A",
		derive.InsBin, derive.SESScore, derive.SESxIns, derive.PhstatReversed,
	}
	labeled := []string{derive.SESCat, derive.SESGroup, derive.InsLabel}

	nums := make([][]float64, len(numeric))
	for i, name := range numeric {
		col, err := f.Floats(name)
		if err != nil {
			return 0, err
		}
		nums[i] = col
	}
	labs := make([][]string, len(labeled))
	for i, name := range labeled {
		col, err := f.Labels(name)
		if err != nil {
			return 0, err
		}
		labs[i] = col
	}

	ch := make(chan []any, 64)
	go func() {
		defer close(ch)
		for i := 0; i < f.NumRows(); i++ {
			row := make([]any, 0, len(observationColumns))
			row = append(row, runID, i)
			for _, col := range nums {
				row = append(row, nullFloat(col[i]))
			}
			for _, col := range labs {
				row = append(row, nullLabel(col[i]))
			}
			select {
			case ch <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	return tx.CopyFrom(ctx,
		pgx.Identifier{"ses", "observations"},
		observationColumns,
		db.NewChannelSource(ch))
}

func insertFit(ctx context.Context, tx pgx.Tx, runID uuid.UUID, r *sem.Result) error {
	fitID := uuid.New()
	_, err := tx.Exec(ctx,
		`INSERT INTO ses.model_fits (fit_id, run_id, model, estimator, n_used, patterns, converged,
		    loglik, sat_loglik, base_loglik, chisq, df, pvalue, cfi, tli, rmsea, srmr, warnings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		fitID, runID, r.Model, r.Estimator, r.NUsed, r.Patterns, r.Converged,
		nullFloat(r.LogLik), nullFloat(r.SatLogLik), nullFloat(r.BaseLogLik),
		nullFloat(r.ChiSq), r.DF, nullFloat(r.PValue),
		nullFloat(r.CFI), nullFloat(r.TLI), nullFloat(r.RMSEA), nullFloat(r.SRMR),
		r.Warnings)
	if err != nil {
		return fmt.Errorf("insert fit %s: %w", r.Model, err)
	}

	for _, e := range r.Estimates {
		_, err := tx.Exec(ctx,
			`INSERT INTO ses.model_params (fit_id, label, kind, fixed, est, se, z, p, std)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			fitID, e.Label, e.Kind.String(), e.Fixed,
			nullFloat(e.Est), nullFloat(e.SE), nullFloat(e.Z), nullFloat(e.P), nullFloat(e.Std))
		if err != nil {
			return fmt.Errorf("insert param %s: %w", e.Label, err)
		}
	}
	return nil
}

// nullFloat maps NaN to SQL NULL.
func nullFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// nullLabel maps the empty label to SQL NULL.
func nullLabel(s string) any {
	if s == "" {
		return nil
	}
	return s
}
