// Package regress fits observed-variable regression specs by ordinary least
// squares through the statmodel GLM machinery (Gaussian family, identity
// link). It exists as a cross-check on the FIML fitter: with complete data
// the two agree on coefficients.
package regress

import (
	"fmt"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"

	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/model"
)

// Coef is one fitted regression coefficient.
type Coef struct {
	Name string
	Est  float64
	SE   float64
	Z    float64
	P    float64
}

// Result holds an OLS fit.
type Result struct {
	Model   string
	Outcome string
	N       int // complete rows used (listwise deletion)
	Dropped int
	Coefs   []Coef // icept first, then predictors in spec order
}

// FitOLS estimates a regression-only spec. Specs with latent variables are
// rejected; use the FIML fitter for those.
func FitOLS(spec *model.Spec, f *frame.Frame) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(spec.Latents) > 0 {
		return nil, fmt.Errorf("model %s: OLS estimator supports observed-variable regressions only", spec.Name)
	}

	var reg *model.Equation
	for i := range spec.Equations {
		if spec.Equations[i].Kind == model.Regression {
			if reg != nil {
				return nil, fmt.Errorf("model %s: OLS estimator supports a single regression equation", spec.Name)
			}
			reg = &spec.Equations[i]
		}
	}
	if reg == nil {
		return nil, fmt.Errorf("model %s: no regression equation", spec.Name)
	}

	outcome, err := f.Floats(reg.Left)
	if err != nil {
		return nil, err
	}
	preds := make([][]float64, len(reg.Right))
	for i, name := range reg.Right {
		preds[i], err = f.Floats(name)
		if err != nil {
			return nil, err
		}
	}

	// Listwise deletion: GLM has no missing-data handling of its own.
	var y []float64
	x := make([][]float64, len(preds))
	dropped := 0
rows:
	for i := range outcome {
		if math.IsNaN(outcome[i]) {
			dropped++
			continue
		}
		for _, p := range preds {
			if math.IsNaN(p[i]) {
				dropped++
				continue rows
			}
		}
		y = append(y, outcome[i])
		for j, p := range preds {
			x[j] = append(x[j], p[i])
		}
	}
	if len(y) <= len(preds)+1 {
		return nil, fmt.Errorf("model %s: only %d complete rows for %d predictors", spec.Name, len(y), len(preds))
	}

	icept := make([]float64, len(y))
	for i := range icept {
		icept[i] = 1
	}

	data := [][]statmodel.Dtype{y, icept}
	names := []string{reg.Left, "icept"}
	for j, p := range reg.Right {
		data = append(data, x[j])
		names = append(names, p)
	}

	ds := statmodel.NewDataset(data, names)

	config := glm.DefaultConfig()
	config.Family = glm.NewFamily(glm.GaussianFamily)

	gm, err := glm.NewGLM(ds, reg.Left, append([]string{"icept"}, reg.Right...), config)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", spec.Name, err)
	}
	rslt := gm.Fit()

	params := rslt.Params()
	stderr := rslt.StdErr()
	zscores := rslt.ZScores()
	pvalues := rslt.PValues()

	res := &Result{Model: spec.Name, Outcome: reg.Left, N: len(y), Dropped: dropped}
	coefNames := append([]string{"icept"}, reg.Right...)
	for i, name := range coefNames {
		res.Coefs = append(res.Coefs, Coef{
			Name: name,
			Est:  params[i],
			SE:   stderr[i],
			Z:    zscores[i],
			P:    pvalues[i],
		})
	}
	return res, nil
}
