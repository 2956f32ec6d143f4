package sem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/model"
	"github.com/gyeh/sesfit/internal/stats"
)

// FitError reports a model that could not be estimated at all. Recoverable
// estimation problems surface as warnings on the Result instead.
type FitError struct {
	Model string
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit %s: %s", e.Model, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// Options control the fit.
type Options struct {
	// MaxIterations caps the optimizer's major iterations. Zero means the
	// default (500).
	MaxIterations int
}

// Estimate is one fitted parameter.
type Estimate struct {
	Label string
	Kind  ParamKind
	Fixed bool
	Est   float64
	SE    float64
	Z     float64
	P     float64
	Std   float64
}

// Result holds the complete output of a model fit.
type Result struct {
	Model     string
	Estimator string
	N         int // rows in the table
	NUsed     int // rows contributing to the likelihood
	Patterns  int // distinct missing-data patterns
	Converged bool

	LogLik     float64
	SatLogLik  float64
	BaseLogLik float64
	ChiSq      float64
	DF         int
	PValue     float64
	CFI        float64
	TLI        float64
	RMSEA      float64
	SRMR       float64

	Estimates []Estimate
	Warnings  []string
}

// Fit estimates the spec on the table by FIML and returns estimates,
// standard errors, a standardized solution and global fit indices.
func Fit(spec *model.Spec, f *frame.Frame, opts Options) (*Result, error) {
	m, err := buildRAM(spec)
	if err != nil {
		return nil, &FitError{Model: spec.Name, Err: err}
	}

	// Bind the observed columns. A missing column fails here, at point of
	// first use.
	x := make([][]float64, f.NumRows())
	for i := range x {
		x[i] = make([]float64, m.nobs)
	}
	for j := 0; j < m.nobs; j++ {
		col, err := f.Floats(m.names[j])
		if err != nil {
			return nil, err
		}
		sd := stats.SD(col)
		if math.IsNaN(sd) || sd == 0 {
			return nil, &FitError{Model: spec.Name,
				Err: fmt.Errorf("column %s has zero variance, model is degenerate", m.names[j])}
		}
		for i, v := range col {
			x[i][j] = v
		}
	}

	d := buildPatterns(x, m.nobs)
	if d.nUsed == 0 {
		return nil, &FitError{Model: spec.Name, Err: fmt.Errorf("no rows with observed data")}
	}

	mom := pairwiseMoments(x, m.nobs)
	m.setStarts(mom)

	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = 500
	}

	theta, loglik, converged, warns, err := minimizeModel(m, d, maxIter)
	if err != nil {
		return nil, &FitError{Model: spec.Name, Err: err}
	}

	res := &Result{
		Model:     spec.Name,
		Estimator: "fiml",
		N:         f.NumRows(),
		NUsed:     d.nUsed,
		Patterns:  len(d.patterns),
		Converged: converged,
		LogLik:    loglik,
		Warnings:  warns,
	}

	res.Estimates = m.estimates(theta, d)
	res.Warnings = append(res.Warnings, m.solutionWarnings(theta)...)

	// Saturated and baseline fits provide the reference log-likelihoods
	// for the chi-square test and incremental indices.
	computeIndices(res, m, d, mom, maxIter, theta)

	return res, nil
}

// minimizeModel runs BFGS on the FIML deviance, with the gradient taken by
// central finite differences.
func minimizeModel(m *ramModel, d *fimlData, maxIter int) (theta []float64, loglik float64, converged bool, warns []string, err error) {
	fn := m.negLogLik(d)
	x0 := m.start()

	if math.IsInf(fn(x0), 1) {
		return nil, 0, false, nil, fmt.Errorf("starting values give a non-positive-definite covariance")
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-5,
		MajorIterations:   maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
	}

	// BFGS needs an explicit gradient; Minimize panics if Problem.Grad is
	// nil when a gradient-based method is passed.
	problem := optimize.Problem{
		Func: fn,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, fn, x, nil)
		},
	}

	result, oerr := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil {
		return nil, 0, false, nil, fmt.Errorf("optimizer failed: %v", oerr)
	}
	if oerr != nil {
		// Line searches can stall in a flat region near the optimum; the
		// best point found is still reported, flagged as not converged.
		warns = append(warns, fmt.Sprintf("optimizer stopped early: %v", oerr))
		return result.X, -result.F, false, warns, nil
	}
	if result.Status == optimize.IterationLimit {
		warns = append(warns, fmt.Sprintf("iteration limit (%d) reached before convergence", maxIter))
		return result.X, -result.F, false, warns, nil
	}
	return result.X, -result.F, true, warns, nil
}

// estimates builds the parameter table: estimates, standard errors from the
// numeric Hessian, z tests, and the standardized solution.
func (m *ramModel) estimates(theta []float64, d *fimlData) []Estimate {
	se := m.standardErrors(theta, d)
	std := m.standardized(theta)

	out := make([]Estimate, 0, len(m.prms))
	for _, p := range m.prms {
		e := Estimate{Label: p.label, Kind: p.kind, Fixed: !p.free, Std: std[p.label]}
		if p.free {
			e.Est = theta[p.idx]
			e.SE = se[p.idx]
			if !math.IsNaN(e.SE) && e.SE > 0 {
				e.Z = e.Est / e.SE
				e.P = 2 * distuv.UnitNormal.Survival(math.Abs(e.Z))
			} else {
				e.Z, e.P = math.NaN(), math.NaN()
			}
		} else {
			e.Est = p.val
			e.SE, e.Z, e.P = math.NaN(), math.NaN(), math.NaN()
		}
		out = append(out, e)
	}
	return out
}

// standardErrors inverts the numeric Hessian of the deviance at the
// optimum. A non-invertible information matrix yields NaN errors.
func (m *ramModel) standardErrors(theta []float64, d *fimlData) []float64 {
	se := make([]float64, m.nfree)
	for i := range se {
		se[i] = math.NaN()
	}

	hess := mat.NewSymDense(m.nfree, nil)
	fd.Hessian(hess, m.negLogLik(d), theta, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return se
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return se
	}
	for i := 0; i < m.nfree; i++ {
		v := cov.At(i, i)
		if v > 0 {
			se[i] = math.Sqrt(v)
		}
	}
	return se
}

// solutionWarnings inspects the solution for diagnosable estimation
// problems: Heywood cases and a non-positive-definite implied covariance.
func (m *ramModel) solutionWarnings(theta []float64) []string {
	var warns []string
	for _, p := range m.prms {
		if p.kind == Variance && p.free && theta[p.idx] < 0 {
			warns = append(warns, fmt.Sprintf("negative variance estimate for %s", p.label))
		}
	}
	_, sigma, _, err := m.implied(theta)
	if err != nil {
		warns = append(warns, fmt.Sprintf("implied covariance undefined at solution: %v", err))
		return warns
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		warns = append(warns, "implied covariance matrix is not positive definite")
	}
	return warns
}

// moments holds pairwise-available first and second sample moments.
type moments struct {
	mean []float64
	vr   []float64
	cov  [][]float64
}

func pairwiseMoments(x [][]float64, p int) *moments {
	mom := &moments{
		mean: make([]float64, p),
		vr:   make([]float64, p),
		cov:  make([][]float64, p),
	}
	for j := range mom.cov {
		mom.cov[j] = make([]float64, p)
	}

	for j := 0; j < p; j++ {
		n, sum := 0, 0.0
		for i := range x {
			if !math.IsNaN(x[i][j]) {
				n++
				sum += x[i][j]
			}
		}
		if n > 0 {
			mom.mean[j] = sum / float64(n)
		}
	}

	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			n, acc := 0, 0.0
			for i := range x {
				if !math.IsNaN(x[i][j]) && !math.IsNaN(x[i][k]) {
					n++
					acc += (x[i][j] - mom.mean[j]) * (x[i][k] - mom.mean[k])
				}
			}
			c := 0.0
			if n > 1 {
				c = acc / float64(n)
			}
			mom.cov[j][k], mom.cov[k][j] = c, c
			if j == k {
				mom.vr[j] = c
			}
		}
	}
	return mom
}

// setStarts fills starting values from the sample moments.
func (m *ramModel) setStarts(mom *moments) {
	for i := range m.prms {
		p := &m.prms[i]
		if !p.free {
			continue
		}
		switch p.kind {
		case Intercept:
			p.val = mom.mean[p.r]
		case Variance:
			switch {
			case p.r >= m.nobs:
				p.val = 0.5
			case m.endog[p.r]:
				p.val = math.Max(0.5*mom.vr[p.r], 0.05)
			default:
				p.val = math.Max(mom.vr[p.r], 0.05)
			}
		case Covariance:
			if p.r < m.nobs && p.c < m.nobs && !m.endog[p.r] && !m.endog[p.c] {
				p.val = mom.cov[p.r][p.c]
			} else {
				p.val = 0
			}
		case Path:
			p.val = 0
		case Loading:
			p.val = 1
		}
	}
}
