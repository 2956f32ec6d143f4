// Package model defines structural equation model specifications as typed
// equations. Specs are declarative data; malformed specifications fail at
// construction via Validate, not inside the fitter.
package model

import (
	"fmt"
	"sort"
)

// EquationKind distinguishes the three relation types a spec can hold.
type EquationKind int

const (
	// Measurement relates a latent factor (Left) to its observed
	// indicators (Right).
	Measurement EquationKind = iota
	// Regression relates a dependent variable (Left) to its predictors
	// (Right). Either side may be latent or observed.
	Regression
	// Covariance declares a free covariance between the two variables in
	// Right (Left is unused).
	Covariance
)

func (k EquationKind) String() string {
	switch k {
	case Measurement:
		return "measurement"
	case Regression:
		return "regression"
	case Covariance:
		return "covariance"
	}
	return fmt.Sprintf("EquationKind(%d)", int(k))
}

// Equation is one relation in a model specification.
type Equation struct {
	Kind  EquationKind
	Left  string
	Right []string
}

// Spec is a complete model specification.
type Spec struct {
	Name      string
	Latents   []string
	Equations []Equation
}

// Validate checks the spec for structural mistakes: latents without a
// measurement equation, references to undeclared latents as if observed,
// self-regressions, and malformed covariance pairs.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("model spec: empty name")
	}
	latent := make(map[string]bool, len(s.Latents))
	for _, l := range s.Latents {
		if latent[l] {
			return fmt.Errorf("model %s: duplicate latent %s", s.Name, l)
		}
		latent[l] = true
	}

	measured := make(map[string]bool)
	for _, eq := range s.Equations {
		switch eq.Kind {
		case Measurement:
			if !latent[eq.Left] {
				return fmt.Errorf("model %s: measurement equation for %s, which is not a declared latent", s.Name, eq.Left)
			}
			if len(eq.Right) == 0 {
				return fmt.Errorf("model %s: latent %s has no indicators", s.Name, eq.Left)
			}
			for _, ind := range eq.Right {
				if latent[ind] {
					return fmt.Errorf("model %s: latent %s cannot be an indicator of %s", s.Name, ind, eq.Left)
				}
			}
			measured[eq.Left] = true
		case Regression:
			if len(eq.Right) == 0 {
				return fmt.Errorf("model %s: regression for %s has no predictors", s.Name, eq.Left)
			}
			for _, p := range eq.Right {
				if p == eq.Left {
					return fmt.Errorf("model %s: %s regressed on itself", s.Name, eq.Left)
				}
			}
		case Covariance:
			if len(eq.Right) != 2 || eq.Right[0] == eq.Right[1] {
				return fmt.Errorf("model %s: covariance needs two distinct variables, got %v", s.Name, eq.Right)
			}
		default:
			return fmt.Errorf("model %s: unknown equation kind %d", s.Name, int(eq.Kind))
		}
	}

	for _, l := range s.Latents {
		if !measured[l] {
			return fmt.Errorf("model %s: latent %s has no measurement equation", s.Name, l)
		}
	}
	return nil
}

// IsLatent reports whether name is a declared latent factor.
func (s *Spec) IsLatent(name string) bool {
	for _, l := range s.Latents {
		if l == name {
			return true
		}
	}
	return false
}

// ObservedVars returns every observed (manifest) variable the spec touches,
// sorted for a deterministic ordering.
func (s *Spec) ObservedVars() []string {
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !s.IsLatent(name) {
			seen[name] = true
		}
	}
	for _, eq := range s.Equations {
		switch eq.Kind {
		case Measurement:
			for _, v := range eq.Right {
				add(v)
			}
		case Regression:
			add(eq.Left)
			for _, v := range eq.Right {
				add(v)
			}
		case Covariance:
			add(eq.Right[0])
			add(eq.Right[1])
		}
	}
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// HealthModel is the measurement + structural model: objective health
// measured by the diabetes/hypertension diagnosis flags, perceived health by
// self-rated health, depression category and life satisfaction, with SES
// indicators predicting both factors and objective health predicting
// perceived health.
func HealthModel() *Spec {
	return &Spec{
		Name:    "health",
		Latents: []string{"ObjectiveHealth", "PerceivedHealth"},
		Equations: []Equation{
			{Kind: Measurement, Left: "ObjectiveHealth", Right: []string{"DIBEV_A", "HYPEV_A"}},
			{Kind: Measurement, Left: "PerceivedHealth", Right: []string{"PHSTAT_A", "PHQCAT_A", "LSATIS4_A"}},
			{Kind: Regression, Left: "ObjectiveHealth", Right: []string{"EDUCP_A", "POVRATTC_A"}},
			{Kind: Regression, Left: "PerceivedHealth", Right: []string{"EDUCP_A", "POVRATTC_A", "ObjectiveHealth"}},
			{Kind: Covariance, Right: []string{"EDUCP_A", "POVRATTC_A"}},
		},
	}
}

// InteractionModel regresses self-rated health on the SES composite, the
// insurance flag, and their product term.
func InteractionModel() *Spec {
	return &Spec{
		Name: "interaction",
		Equations: []Equation{
			{Kind: Regression, Left: "PHSTAT_A", Right: []string{"SES_SCORE", "INS_BIN", "SESxINS"}},
			{Kind: Covariance, Right: []string{"SES_SCORE", "INS_BIN"}},
			{Kind: Covariance, Right: []string{"SES_SCORE", "SESxINS"}},
			{Kind: Covariance, Right: []string{"INS_BIN", "SESxINS"}},
		},
	}
}

// ByName returns a built-in model spec.
func ByName(name string) (*Spec, bool) {
	switch name {
	case "health":
		return HealthModel(), true
	case "interaction":
		return InteractionModel(), true
	}
	return nil, false
}
