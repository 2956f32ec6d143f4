package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gyeh/sesfit/internal/frame"
)

// CorrMatrix computes the Pearson correlation matrix of the named numeric
// columns under the given missing-data policy. Under Pairwise, each entry
// uses the rows complete on its own pair; under Listwise, only rows
// complete on every requested column contribute anywhere.
func CorrMatrix(f *frame.Frame, cols []string, policy Policy) ([][]float64, error) {
	data := make([][]float64, len(cols))
	for i, name := range cols {
		x, err := f.Floats(name)
		if err != nil {
			return nil, err
		}
		data[i] = x
	}

	if policy == Listwise {
		keep := completeRows(data)
		for i := range data {
			data[i] = selectRows(data[i], keep)
		}
	}

	r := make([][]float64, len(cols))
	for i := range r {
		r[i] = make([]float64, len(cols))
		r[i][i] = 1
	}
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			xi, xj := pairComplete(data[i], data[j])
			var c float64
			if len(xi) < 2 {
				c = math.NaN()
			} else {
				c = stat.Correlation(xi, xj, nil)
			}
			r[i][j], r[j][i] = c, c
		}
	}
	return r, nil
}

func completeRows(data [][]float64) []bool {
	if len(data) == 0 {
		return nil
	}
	keep := make([]bool, len(data[0]))
	for i := range keep {
		keep[i] = true
		for _, col := range data {
			if math.IsNaN(col[i]) {
				keep[i] = false
				break
			}
		}
	}
	return keep
}

func selectRows(x []float64, keep []bool) []float64 {
	v := make([]float64, 0, len(x))
	for i, k := range keep {
		if k {
			v = append(v, x[i])
		}
	}
	return v
}

func pairComplete(x, y []float64) ([]float64, []float64) {
	xi := make([]float64, 0, len(x))
	yi := make([]float64, 0, len(y))
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			xi = append(xi, x[i])
			yi = append(yi, y[i])
		}
	}
	return xi, yi
}
