// Package stats provides the descriptive statistics used by the reporter:
// summaries, quantiles, correlations and cross-tabulations. Every operation
// that can see missing data takes an explicit Policy rather than relying on
// a library default.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gyeh/sesfit/internal/frame"
)

// Policy names a missing-data handling rule for descriptive operations.
type Policy int

const (
	// Pairwise uses, for each statistic, all rows complete on the columns
	// that statistic touches.
	Pairwise Policy = iota
	// Listwise restricts every statistic to rows complete on all requested
	// columns.
	Listwise
)

// ParsePolicy maps a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "pairwise":
		return Pairwise, nil
	case "listwise":
		return Listwise, nil
	}
	return 0, fmt.Errorf("unknown missing-data policy %q (want pairwise or listwise)", s)
}

// Mean is the sample mean of the non-missing values, NaN when empty.
func Mean(x []float64) float64 {
	v := DropMissing(x)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// SD is the sample standard deviation (n-1 denominator) of the non-missing
// values, NaN when fewer than two are present.
func SD(x []float64) float64 {
	v := DropMissing(x)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// ColumnSummary holds the descriptive summary of one numeric column.
type ColumnSummary struct {
	Name    string
	N       int
	Missing int
	Mean    float64
	SD      float64
	Min     float64
	Q25     float64
	Median  float64
	Q75     float64
	Max     float64
}

// Describe summarizes the named numeric columns. A missing column fails
// with the frame's MissingColumnError.
func Describe(f *frame.Frame, cols []string) ([]ColumnSummary, error) {
	out := make([]ColumnSummary, 0, len(cols))
	for _, name := range cols {
		x, err := f.Floats(name)
		if err != nil {
			return nil, err
		}
		v := DropMissing(x)
		cs := ColumnSummary{
			Name:    name,
			N:       len(v),
			Missing: len(x) - len(v),
			Mean:    Mean(x),
			SD:      SD(x),
			Q25:     Quantile(0.25, x),
			Median:  Quantile(0.5, x),
			Q75:     Quantile(0.75, x),
		}
		if len(v) > 0 {
			cs.Min = floats.Min(v)
			cs.Max = floats.Max(v)
		} else {
			cs.Min, cs.Max = math.NaN(), math.NaN()
		}
		out = append(out, cs)
	}
	return out, nil
}
