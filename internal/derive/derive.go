// Package derive computes the analysis columns from the raw survey columns.
// Derivation is a pure step: it returns a new frame with the derived columns
// appended and never modifies its input, so re-deriving from unchanged raw
// columns yields bit-identical values.
package derive

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/stats"
)

// Derived column names.
const (
	InsBin         = "INS_BIN"
	SESScore       = "SES_SCORE"
	SESxIns        = "SESxINS"
	SESCat         = "SES_cat"
	SESGroup       = "SES_GROUP"
	InsLabel       = "INS_LABEL"
	PhstatReversed = "PHSTAT_REVERSED"
)

// Derived describes one derived column and the raw columns it needs.
type Derived struct {
	Name     string
	Requires []string
}

// AllDerived lists the derived columns in the order they are appended.
var AllDerived = []Derived{
	{Name: InsBin, Requires: []string{"HICOV_A"}},
	{Name: SESScore, Requires: []string{"EDUCP_A", "POVRATTC_A"}},
	{Name: SESxIns, Requires: []string{"HICOV_A", "EDUCP_A", "POVRATTC_A"}},
	{Name: SESCat, Requires: []string{"EDUCP_A", "POVRATTC_A"}},
	{Name: SESGroup, Requires: []string{"EDUCP_A", "POVRATTC_A"}},
	{Name: InsLabel, Requires: []string{"HICOV_A"}},
	{Name: PhstatReversed, Requires: []string{"PHSTAT_A"}},
}

// LabelConvention selects how INS_LABEL maps HICOV_A codes to text.
type LabelConvention int

const (
	// LabelSource reproduces the original analysis script literally:
	// HICOV_A == 1 is labeled "Uninsured". This is the inverse of INS_BIN
	// and is kept as the default so stored outputs match the source.
	LabelSource LabelConvention = iota
	// LabelCorrected labels HICOV_A == 1 as "Insured", agreeing with INS_BIN.
	LabelCorrected
)

// ParseLabelConvention maps a config string to a LabelConvention.
func ParseLabelConvention(s string) (LabelConvention, error) {
	switch s {
	case "", "source":
		return LabelSource, nil
	case "corrected":
		return LabelCorrected, nil
	}
	return 0, fmt.Errorf("unknown ins_label convention %q (want source or corrected)", s)
}

// Options control derivation behavior.
type Options struct {
	InsLabel LabelConvention
}

// DerivationError reports a derived column that could not be computed.
type DerivationError struct {
	Column string
	Err    error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive %s: %s", e.Column, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// Derive appends all derived columns to f and returns the new frame.
// Missing raw values propagate: a derived numeric value is NaN and a derived
// label is "" whenever any input it needs is missing on that row.
func Derive(f *frame.Frame, opts Options) (*frame.Frame, error) {
	for _, d := range AllDerived {
		for _, req := range d.Requires {
			if !f.Has(req) {
				return nil, &frame.MissingColumnError{Column: req, Op: "derive " + d.Name}
			}
		}
	}

	hicov, err := f.Floats("HICOV_A")
	if err != nil {
		return nil, err
	}
	phstat, err := f.Floats("PHSTAT_A")
	if err != nil {
		return nil, err
	}

	insBin := make([]float64, len(hicov))
	for i, v := range hicov {
		switch {
		case math.IsNaN(v):
			insBin[i] = math.NaN()
		case v == 1:
			insBin[i] = 1
		default:
			insBin[i] = 0
		}
	}

	sesScore, err := sesScore(f)
	if err != nil {
		return nil, err
	}

	sesXIns := make([]float64, len(sesScore))
	for i := range sesScore {
		sesXIns[i] = sesScore[i] * insBin[i]
	}

	med := stats.Median(sesScore)
	sesCat := make([]string, len(sesScore))
	for i, v := range sesScore {
		switch {
		case math.IsNaN(v) || math.IsNaN(med):
		case v >= med:
			sesCat[i] = "High SES"
		default:
			sesCat[i] = "Low SES"
		}
	}

	q33 := stats.Quantile(0.33, sesScore)
	q66 := stats.Quantile(0.66, sesScore)
	sesGroup := make([]string, len(sesScore))
	for i, v := range sesScore {
		switch {
		case math.IsNaN(v) || math.IsNaN(q33) || math.IsNaN(q66):
		case v < q33:
			sesGroup[i] = "Low SES"
		case v > q66:
			sesGroup[i] = "High SES"
		default:
			sesGroup[i] = "Mid SES"
		}
	}

	insLabel := make([]string, len(hicov))
	for i, v := range hicov {
		if math.IsNaN(v) {
			continue
		}
		covered := v == 1
		if opts.InsLabel == LabelSource {
			// Literal source behavior: the coverage code gets the
			// "Uninsured" text.
			if covered {
				insLabel[i] = "Uninsured"
			} else {
				insLabel[i] = "Insured"
			}
		} else {
			if covered {
				insLabel[i] = "Insured"
			} else {
				insLabel[i] = "Uninsured"
			}
		}
	}

	maxPh := math.NaN()
	for _, v := range phstat {
		if !math.IsNaN(v) && (math.IsNaN(maxPh) || v > maxPh) {
			maxPh = v
		}
	}
	phRev := make([]float64, len(phstat))
	for i, v := range phstat {
		if math.IsNaN(v) || math.IsNaN(maxPh) {
			phRev[i] = math.NaN()
			continue
		}
		phRev[i] = maxPh + 1 - v
	}

	return f.WithColumns(
		frame.NumericColumn(InsBin, insBin),
		frame.NumericColumn(SESScore, sesScore),
		frame.NumericColumn(SESxIns, sesXIns),
		frame.LabelColumn(SESCat, sesCat),
		frame.LabelColumn(SESGroup, sesGroup),
		frame.LabelColumn(InsLabel, insLabel),
		frame.NumericColumn(PhstatReversed, phRev),
	)
}

// sesScore sums the z-scores of the education and poverty-ratio columns.
func sesScore(f *frame.Frame) ([]float64, error) {
	educ, err := f.Floats("EDUCP_A")
	if err != nil {
		return nil, err
	}
	pov, err := f.Floats("POVRATTC_A")
	if err != nil {
		return nil, err
	}

	zEduc, err := zscore("EDUCP_A", educ)
	if err != nil {
		return nil, err
	}
	zPov, err := zscore("POVRATTC_A", pov)
	if err != nil {
		return nil, err
	}

	score := make([]float64, len(educ))
	for i := range score {
		score[i] = zEduc[i] + zPov[i]
	}
	return score, nil
}

// zscore standardizes x to mean 0 and unit variance using the sample
// standard deviation (n-1 denominator). Missing values are excluded from
// the moments and stay missing in the result.
func zscore(name string, x []float64) ([]float64, error) {
	v := stats.DropMissing(x)
	if len(v) < 2 {
		return nil, &DerivationError{Column: name, Err: fmt.Errorf("need at least 2 non-missing values, have %d", len(v))}
	}
	mean := stat.Mean(v, nil)
	sd := stat.StdDev(v, nil)
	if sd == 0 {
		return nil, &DerivationError{Column: name, Err: fmt.Errorf("zero variance, z-score undefined")}
	}

	z := make([]float64, len(x))
	for i, u := range x {
		if math.IsNaN(u) {
			z[i] = math.NaN()
			continue
		}
		z[i] = (u - mean) / sd
	}
	return z, nil
}
