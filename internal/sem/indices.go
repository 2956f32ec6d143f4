package sem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// saturatedModel has one free mean, variance and covariance per observed
// variable/pair: the unrestricted multivariate-normal model whose FIML
// log-likelihood anchors the chi-square test.
func saturatedModel(names []string, mom *moments) *ramModel {
	p := len(names)
	m := &ramModel{names: names, nobs: p, endog: make([]bool, p)}

	cov := shrinkToPD(mom.cov)
	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			m.prms = append(m.prms, param{mat: matS, r: i, c: j, kind: Covariance, free: true,
				val: cov[i][j], label: fmt.Sprintf("cov(%s, %s)", names[i], names[j])})
		}
	}
	for i := 0; i < p; i++ {
		m.prms = append(m.prms, param{mat: matS, r: i, c: i, kind: Variance, free: true,
			val: math.Max(cov[i][i], 0.05), label: fmt.Sprintf("var(%s)", names[i])})
	}
	for i := 0; i < p; i++ {
		m.prms = append(m.prms, param{mat: matNu, r: i, kind: Intercept, free: true,
			val: mom.mean[i], label: fmt.Sprintf("mean(%s)", names[i])})
	}
	m.indexFree()
	return m
}

// baselineModel frees only means and variances: the independence model used
// by the incremental fit indices.
func baselineModel(names []string, mom *moments) *ramModel {
	p := len(names)
	m := &ramModel{names: names, nobs: p, endog: make([]bool, p)}
	for i := 0; i < p; i++ {
		m.prms = append(m.prms, param{mat: matS, r: i, c: i, kind: Variance, free: true,
			val: math.Max(mom.vr[i], 0.05), label: fmt.Sprintf("var(%s)", names[i])})
	}
	for i := 0; i < p; i++ {
		m.prms = append(m.prms, param{mat: matNu, r: i, kind: Intercept, free: true,
			val: mom.mean[i], label: fmt.Sprintf("mean(%s)", names[i])})
	}
	m.indexFree()
	return m
}

// shrinkToPD pulls a covariance matrix toward its diagonal until it is
// positive definite. Pairwise-available moments need not be PD when data
// are missing.
func shrinkToPD(cov [][]float64) [][]float64 {
	p := len(cov)
	for lambda := 0.0; lambda < 1.0; lambda += 0.1 {
		s := mat.NewSymDense(p, nil)
		shrunk := make([][]float64, p)
		for i := 0; i < p; i++ {
			shrunk[i] = make([]float64, p)
			for j := 0; j < p; j++ {
				v := cov[i][j]
				if i != j {
					v *= 1 - lambda
				}
				shrunk[i][j] = v
			}
		}
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				s.SetSym(i, j, shrunk[i][j])
			}
		}
		var chol mat.Cholesky
		if chol.Factorize(s) {
			return shrunk
		}
	}

	// Fall back to the diagonal only.
	diag := make([][]float64, p)
	for i := range diag {
		diag[i] = make([]float64, p)
		diag[i][i] = math.Max(cov[i][i], 0.05)
	}
	return diag
}

// computeIndices fits the saturated and baseline models and fills the global
// fit statistics on res. When the reference fits fail, indices stay NaN and
// a warning is recorded.
func computeIndices(res *Result, m *ramModel, d *fimlData, mom *moments, maxIter int, theta []float64) {
	res.ChiSq, res.PValue = math.NaN(), math.NaN()
	res.CFI, res.TLI, res.RMSEA, res.SRMR = math.NaN(), math.NaN(), math.NaN(), math.NaN()
	res.SatLogLik, res.BaseLogLik = math.NaN(), math.NaN()

	obsNames := m.names[:m.nobs]
	p := m.nobs
	// p means plus p(p+1)/2 covariances.
	nMoments := p * (p + 3) / 2
	res.DF = nMoments - m.nfree

	sat := saturatedModel(obsNames, mom)
	satTheta, satLL, satConv, _, err := minimizeModel(sat, d, maxIter)
	if err != nil || !satConv {
		res.Warnings = append(res.Warnings, "saturated model did not converge; chi-square and fit indices unavailable")
		return
	}
	res.SatLogLik = satLL

	base := baselineModel(obsNames, mom)
	_, baseLL, baseConv, _, err := minimizeModel(base, d, maxIter)
	if err != nil || !baseConv {
		res.Warnings = append(res.Warnings, "baseline model did not converge; incremental fit indices unavailable")
	} else {
		res.BaseLogLik = baseLL
	}

	chisq := 2 * (satLL - res.LogLik)
	if chisq < 0 {
		chisq = 0
	}
	res.ChiSq = chisq
	df := res.DF
	if df > 0 {
		res.PValue = distuv.ChiSquared{K: float64(df)}.Survival(chisq)
		res.RMSEA = math.Sqrt(math.Max(chisq-float64(df), 0) / (float64(df) * float64(res.NUsed)))
	} else {
		res.RMSEA = 0
	}

	if !math.IsNaN(res.BaseLogLik) {
		chisqB := 2 * (satLL - baseLL)
		if chisqB < 0 {
			chisqB = 0
		}
		dfB := nMoments - base.nfree
		num := math.Max(chisq-float64(df), 0)
		den := math.Max(math.Max(chisqB-float64(dfB), num), 1e-12)
		res.CFI = 1 - num/den
		if dfB > 0 && df > 0 {
			rb := chisqB / float64(dfB)
			rm := chisq / float64(df)
			if rb > 1 {
				res.TLI = (rb - rm) / (rb - 1)
			}
		}
	}

	res.SRMR = srmr(m, theta, sat, satTheta)
}

// srmr is the standardized root mean square residual between the
// model-implied and saturated (sample) covariance matrices.
func srmr(m *ramModel, theta []float64, sat *ramModel, satTheta []float64) float64 {
	_, sigma, _, err := m.implied(theta)
	if err != nil {
		return math.NaN()
	}
	_, sample, _, err := sat.implied(satTheta)
	if err != nil {
		return math.NaN()
	}

	p := m.nobs
	sum, cnt := 0.0, 0
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			di := sample.At(i, i)
			dj := sample.At(j, j)
			if di <= 0 || dj <= 0 {
				return math.NaN()
			}
			r := (sample.At(i, j) - sigma.At(i, j)) / math.Sqrt(di*dj)
			sum += r * r
			cnt++
		}
	}
	return math.Sqrt(sum / float64(cnt))
}
