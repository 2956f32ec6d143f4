// Package report renders the terminal outputs of a run: descriptive tables
// on stdout and chart files on disk. Every plot is an independent branch; a
// failing branch is reported and the rest still render.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/gyeh/sesfit/internal/regress"
	"github.com/gyeh/sesfit/internal/sem"
	"github.com/gyeh/sesfit/internal/stats"
)

// WriteSummary prints a descriptive-statistics table.
func WriteSummary(w io.Writer, sums []stats.ColumnSummary) {
	fmt.Fprintln(w, "=== summary statistics ===")
	fmt.Fprintf(w, "%-16s %6s %6s %9s %9s %9s %9s %9s %9s %9s\n",
		"variable", "n", "miss", "mean", "sd", "min", "q25", "median", "q75", "max")
	for _, s := range sums {
		fmt.Fprintf(w, "%-16s %6d %6d %9.3f %9.3f %9.3f %9.3f %9.3f %9.3f %9.3f\n",
			s.Name, s.N, s.Missing, s.Mean, s.SD, s.Min, s.Q25, s.Median, s.Q75, s.Max)
	}
	fmt.Fprintln(w)
}

// WriteCrossTab prints a two-way frequency table with margins.
func WriteCrossTab(w io.Writer, ct *stats.CrossTab) {
	fmt.Fprintf(w, "=== %s x %s ===\n", ct.RowName, ct.ColName)
	fmt.Fprintf(w, "%-12s", "")
	for _, c := range ct.ColLevels {
		fmt.Fprintf(w, " %8g", c)
	}
	fmt.Fprintf(w, " %8s\n", "total")
	for i, l := range ct.RowLevels {
		fmt.Fprintf(w, "%-12s", l)
		for j := range ct.ColLevels {
			fmt.Fprintf(w, " %8d", ct.Counts[i][j])
		}
		fmt.Fprintf(w, " %8d\n", ct.RowTotals[i])
	}
	fmt.Fprintf(w, "%-12s", "total")
	for j := range ct.ColLevels {
		fmt.Fprintf(w, " %8d", ct.ColTotals[j])
	}
	fmt.Fprintf(w, " %8d\n", ct.Total)
	if ct.Dropped > 0 {
		fmt.Fprintf(w, "(%d rows dropped for missing values)\n", ct.Dropped)
	}
	fmt.Fprintln(w)
}

// WriteCorr prints a correlation matrix.
func WriteCorr(w io.Writer, names []string, r [][]float64) {
	fmt.Fprintln(w, "=== correlations ===")
	fmt.Fprintf(w, "%-12s", "")
	for _, n := range names {
		fmt.Fprintf(w, " %10s", n)
	}
	fmt.Fprintln(w)
	for i, n := range names {
		fmt.Fprintf(w, "%-12s", n)
		for j := range names {
			fmt.Fprintf(w, " %10.3f", r[i][j])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// WriteFit prints a FIML fit: parameter table, fit indices and warnings.
func WriteFit(w io.Writer, r *sem.Result) {
	fmt.Fprintf(w, "=== model %s (%s) ===\n", r.Model, r.Estimator)
	fmt.Fprintf(w, "rows: %d  used: %d  missing patterns: %d  converged: %v\n",
		r.N, r.NUsed, r.Patterns, r.Converged)
	fmt.Fprintf(w, "loglik: %.3f  saturated: %.3f  baseline: %.3f\n",
		r.LogLik, r.SatLogLik, r.BaseLogLik)
	fmt.Fprintf(w, "chisq: %.3f  df: %d  p: %s\n", r.ChiSq, r.DF, fmtP(r.PValue))
	fmt.Fprintf(w, "cfi: %.3f  tli: %.3f  rmsea: %.3f  srmr: %.3f\n\n",
		r.CFI, r.TLI, r.RMSEA, r.SRMR)

	fmt.Fprintf(w, "%-36s %-10s %10s %10s %8s %8s %10s\n",
		"parameter", "type", "estimate", "std.err", "z", "p", "std")
	for _, e := range r.Estimates {
		if e.Fixed {
			fmt.Fprintf(w, "%-36s %-10s %10.4f %10s %8s %8s %10.4f\n",
				e.Label, e.Kind, e.Est, "-", "-", "-", e.Std)
			continue
		}
		fmt.Fprintf(w, "%-36s %-10s %10.4f %10.4f %8.3f %8s %10.4f\n",
			e.Label, e.Kind, e.Est, e.SE, e.Z, fmtP(e.P), e.Std)
	}
	fmt.Fprintln(w)

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
	}
}

// WriteOLS prints an OLS cross-check fit.
func WriteOLS(w io.Writer, r *regress.Result) {
	fmt.Fprintf(w, "=== model %s (ols) ===\n", r.Model)
	fmt.Fprintf(w, "outcome: %s  rows used: %d  dropped: %d\n\n", r.Outcome, r.N, r.Dropped)
	fmt.Fprintf(w, "%-16s %10s %10s %8s %8s\n", "coefficient", "estimate", "std.err", "z", "p")
	for _, c := range r.Coefs {
		fmt.Fprintf(w, "%-16s %10.4f %10.4f %8.3f %8s\n", c.Name, c.Est, c.SE, c.Z, fmtP(c.P))
	}
	fmt.Fprintln(w)
}

func fmtP(p float64) string {
	if math.IsNaN(p) {
		return "-"
	}
	if p < 0.001 {
		return "<0.001"
	}
	return fmt.Sprintf("%.3f", p)
}
