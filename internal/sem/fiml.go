package sem

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

const log2pi = 1.8378770664093453

// fimlData is the observed data grouped by missing-data pattern. Rows with
// no observed modeled variable are dropped; everything else contributes the
// likelihood of its observed subset.
type fimlData struct {
	nobs     int
	nTotal   int
	nUsed    int
	patterns []pattern
}

type pattern struct {
	obs  []int       // indices of observed variables present
	rows [][]float64 // values at obs positions, one slice per case
}

// buildPatterns groups the n x p data matrix by missingness pattern.
func buildPatterns(x [][]float64, nobs int) *fimlData {
	d := &fimlData{nobs: nobs, nTotal: len(x)}
	byKey := make(map[string]int)

	var key strings.Builder
	for _, row := range x {
		key.Reset()
		var obs []int
		for j, v := range row {
			if math.IsNaN(v) {
				key.WriteByte('0')
			} else {
				key.WriteByte('1')
				obs = append(obs, j)
			}
		}
		if len(obs) == 0 {
			continue
		}
		d.nUsed++

		k := key.String()
		pi, ok := byKey[k]
		if !ok {
			pi = len(d.patterns)
			byKey[k] = pi
			d.patterns = append(d.patterns, pattern{obs: obs})
		}
		vals := make([]float64, len(d.patterns[pi].obs))
		for t, j := range d.patterns[pi].obs {
			vals[t] = row[j]
		}
		d.patterns[pi].rows = append(d.patterns[pi].rows, vals)
	}
	return d
}

// logLik evaluates the FIML log-likelihood of the data under the model at
// theta. Returns -Inf when the implied covariance (or any pattern submatrix)
// is not positive definite, which the line search treats as an infeasible
// step.
func (m *ramModel) logLik(d *fimlData, theta []float64) float64 {
	mu, sigma, _, err := m.implied(theta)
	if err != nil {
		return math.Inf(-1)
	}

	ll := 0.0
	for _, pat := range d.patterns {
		k := len(pat.obs)
		sub := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				sub.SetSym(i, j, sigma.At(pat.obs[i], pat.obs[j]))
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(sub); !ok {
			return math.Inf(-1)
		}
		ld := chol.LogDet()

		diff := mat.NewVecDense(k, nil)
		sol := mat.NewVecDense(k, nil)
		for _, row := range pat.rows {
			for i := 0; i < k; i++ {
				diff.SetVec(i, row[i]-mu[pat.obs[i]])
			}
			if err := chol.SolveVecTo(sol, diff); err != nil {
				return math.Inf(-1)
			}
			ll += -0.5 * (float64(k)*log2pi + ld + mat.Dot(diff, sol))
		}
	}
	return ll
}

// negLogLik is the objective handed to the optimizer.
func (m *ramModel) negLogLik(d *fimlData) func(theta []float64) float64 {
	return func(theta []float64) float64 {
		return -m.logLik(d, theta)
	}
}
