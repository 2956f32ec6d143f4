// Package sem fits structural equation models by maximum likelihood with
// full-information handling of missing data (FIML). Models are expressed in
// RAM form: a directed-path matrix A (loadings and regressions), a symmetric
// matrix S (variances and covariances), and free intercepts for the observed
// variables. Latent means are fixed at zero and each latent factor is
// identified by fixing its first loading to 1.
package sem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gyeh/sesfit/internal/model"
)

// ParamKind classifies a model parameter for reporting.
type ParamKind int

const (
	Loading ParamKind = iota
	Path
	Variance
	Covariance
	Intercept
)

func (k ParamKind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Path:
		return "path"
	case Variance:
		return "variance"
	case Covariance:
		return "covariance"
	case Intercept:
		return "intercept"
	}
	return fmt.Sprintf("ParamKind(%d)", int(k))
}

type matKind int

const (
	matA matKind = iota
	matS
	matNu
)

// param is one cell of A, S or the intercept vector.
type param struct {
	mat   matKind
	r, c  int
	kind  ParamKind
	free  bool
	val   float64 // fixed value, or starting value when free
	idx   int     // position in the free-parameter vector, -1 when fixed
	label string
}

// ramModel is a bound RAM parameterization: variable ordering (observed
// first, then latents) plus the parameter list.
type ramModel struct {
	names []string
	nobs  int
	endog []bool
	prms  []param
	nfree int
}

// buildRAM translates a validated spec into RAM parameters.
func buildRAM(spec *model.Spec) (*ramModel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	observed := spec.ObservedVars()
	names := append(append([]string{}, observed...), spec.Latents...)
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}

	m := &ramModel{names: names, nobs: len(observed), endog: make([]bool, len(names))}

	// Endogenous variables: indicators and regression outcomes. Their
	// variance parameter is a residual variance; exogenous variables carry
	// a free variance started at the sample value.
	for _, eq := range spec.Equations {
		switch eq.Kind {
		case model.Measurement:
			for _, ind := range eq.Right {
				m.endog[idx[ind]] = true
			}
		case model.Regression:
			m.endog[idx[eq.Left]] = true
		}
	}

	seenA := make(map[[2]int]bool)
	addA := func(kind ParamKind, row, col int, free bool, start float64, label string) error {
		key := [2]int{row, col}
		if seenA[key] {
			return fmt.Errorf("model %s: duplicate path %s", spec.Name, label)
		}
		seenA[key] = true
		m.prms = append(m.prms, param{mat: matA, r: row, c: col, kind: kind, free: free, val: start, label: label})
		return nil
	}

	for _, eq := range spec.Equations {
		switch eq.Kind {
		case model.Measurement:
			li := idx[eq.Left]
			for k, ind := range eq.Right {
				// First indicator fixed to 1 to set the latent scale.
				if err := addA(Loading, idx[ind], li, k > 0, 1,
					fmt.Sprintf("%s -> %s", eq.Left, ind)); err != nil {
					return nil, err
				}
			}
		case model.Regression:
			for _, pred := range eq.Right {
				if err := addA(Path, idx[eq.Left], idx[pred], true, 0,
					fmt.Sprintf("%s -> %s", pred, eq.Left)); err != nil {
					return nil, err
				}
			}
		}
	}

	seenS := make(map[[2]int]bool)
	for _, eq := range spec.Equations {
		if eq.Kind != model.Covariance {
			continue
		}
		a, b := idx[eq.Right[0]], idx[eq.Right[1]]
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if seenS[key] {
			return nil, fmt.Errorf("model %s: duplicate covariance between %s and %s", spec.Name, eq.Right[0], eq.Right[1])
		}
		seenS[key] = true
		m.prms = append(m.prms, param{mat: matS, r: a, c: b, kind: Covariance, free: true, val: 0,
			label: fmt.Sprintf("cov(%s, %s)", names[a], names[b])})
	}

	// One variance per variable: residual for endogenous, free variance
	// for exogenous.
	for i, n := range names {
		m.prms = append(m.prms, param{mat: matS, r: i, c: i, kind: Variance, free: true, val: 1,
			label: fmt.Sprintf("var(%s)", n)})
	}

	// Free intercept per observed variable.
	for i := 0; i < m.nobs; i++ {
		m.prms = append(m.prms, param{mat: matNu, r: i, kind: Intercept, free: true, val: 0,
			label: fmt.Sprintf("mean(%s)", names[i])})
	}

	m.indexFree()
	return m, nil
}

// indexFree assigns positions in the free-parameter vector.
func (m *ramModel) indexFree() {
	n := 0
	for i := range m.prms {
		if m.prms[i].free {
			m.prms[i].idx = n
			n++
		} else {
			m.prms[i].idx = -1
		}
	}
	m.nfree = n
}

// start returns the starting free-parameter vector.
func (m *ramModel) start() []float64 {
	x := make([]float64, m.nfree)
	for _, p := range m.prms {
		if p.free {
			x[p.idx] = p.val
		}
	}
	return x
}

// assemble expands a free-parameter vector into A, S and the intercepts.
func (m *ramModel) assemble(theta []float64) (*mat.Dense, *mat.SymDense, []float64) {
	t := len(m.names)
	a := mat.NewDense(t, t, nil)
	s := mat.NewSymDense(t, nil)
	nu := make([]float64, m.nobs)

	for _, p := range m.prms {
		v := p.val
		if p.free {
			v = theta[p.idx]
		}
		switch p.mat {
		case matA:
			a.Set(p.r, p.c, v)
		case matS:
			s.SetSym(p.r, p.c, v)
		case matNu:
			nu[p.r] = v
		}
	}
	return a, s, nu
}

// implied computes the model-implied mean vector and covariance matrix of
// the observed variables, plus the full (observed + latent) covariance used
// for standardization.
func (m *ramModel) implied(theta []float64) (mu []float64, sigma *mat.SymDense, full *mat.Dense, err error) {
	t := len(m.names)
	p := m.nobs
	a, s, nu := m.assemble(theta)

	// B = I - A
	b := mat.NewDense(t, t, nil)
	for i := 0; i < t; i++ {
		for j := 0; j < t; j++ {
			v := -a.At(i, j)
			if i == j {
				v = 1 - a.At(i, j)
			}
			b.Set(i, j, v)
		}
	}

	var binv mat.Dense
	if err := binv.Inverse(b); err != nil {
		return nil, nil, nil, fmt.Errorf("singular path structure: %w", err)
	}

	var tmp, v mat.Dense
	tmp.Mul(&binv, s)
	v.Mul(&tmp, binv.T())

	sigma = mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sigma.SetSym(i, j, 0.5*(v.At(i, j)+v.At(j, i)))
		}
	}

	mfull := make([]float64, t)
	copy(mfull, nu)
	mu = make([]float64, p)
	for i := 0; i < p; i++ {
		acc := 0.0
		for k := 0; k < t; k++ {
			acc += binv.At(i, k) * mfull[k]
		}
		mu[i] = acc
	}
	return mu, sigma, &v, nil
}
