package stats

import (
	"math"
	"sort"
)

// Quantile computes the p-th quantile (0 <= p <= 1) of the non-missing
// values in x using the linear interpolation rule h = (n-1)p + 1, the
// convention of mainstream statistical software. Returns NaN when no
// non-missing values exist.
func Quantile(p float64, x []float64) float64 {
	v := DropMissing(x)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	if len(v) == 1 {
		return v[0]
	}

	h := float64(len(v)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo < 0 {
		lo, hi = 0, 0
	}
	if hi > len(v)-1 {
		lo, hi = len(v)-1, len(v)-1
	}
	return v[lo] + (h-float64(lo))*(v[hi]-v[lo])
}

// Median is the 0.5 quantile.
func Median(x []float64) float64 { return Quantile(0.5, x) }

// DropMissing returns a copy of x without NaN entries.
func DropMissing(x []float64) []float64 {
	v := make([]float64, 0, len(x))
	for _, u := range x {
		if !math.IsNaN(u) {
			v = append(v, u)
		}
	}
	return v
}
