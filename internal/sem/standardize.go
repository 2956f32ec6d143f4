package sem

import (
	"math"
)

// standardized rescales every parameter to unit-variance variables using
// the model-implied full (observed + latent) covariance matrix, keyed by
// parameter label.
func (m *ramModel) standardized(theta []float64) map[string]float64 {
	out := make(map[string]float64, len(m.prms))
	_, _, full, err := m.implied(theta)
	if err != nil {
		for _, p := range m.prms {
			out[p.label] = math.NaN()
		}
		return out
	}

	t := len(m.names)
	sd := make([]float64, t)
	for i := 0; i < t; i++ {
		v := full.At(i, i)
		if v > 0 {
			sd[i] = math.Sqrt(v)
		} else {
			sd[i] = math.NaN()
		}
	}

	value := func(p param) float64 {
		if p.free {
			return theta[p.idx]
		}
		return p.val
	}

	for _, p := range m.prms {
		v := value(p)
		switch p.kind {
		case Loading, Path:
			out[p.label] = v * sd[p.c] / sd[p.r]
		case Variance:
			// Residual (or total, for exogenous) variance as a share of
			// the variable's implied variance.
			out[p.label] = v / (sd[p.r] * sd[p.r])
		case Covariance:
			out[p.label] = v / (sd[p.r] * sd[p.c])
		case Intercept:
			out[p.label] = v / sd[p.r]
		}
	}
	return out
}
