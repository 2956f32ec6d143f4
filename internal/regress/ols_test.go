package regress

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/model"
)

func regressionFrame(t *testing.T, n int, seed int64, missEvery int) *frame.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	ses := make([]float64, n)
	ins := make([]float64, n)
	prod := make([]float64, n)
	ph := make([]float64, n)
	for i := 0; i < n; i++ {
		ses[i] = rng.NormFloat64()
		if rng.Float64() < 0.8 {
			ins[i] = 1
		}
		prod[i] = ses[i] * ins[i]
		ph[i] = 2.0 - 0.5*ses[i] - 0.2*ins[i] + 0.1*prod[i] + rng.NormFloat64()*0.7
		if missEvery > 0 && i%missEvery == 0 {
			ph[i] = math.NaN()
		}
	}

	f, err := frame.New([]frame.Column{
		frame.NumericColumn("PHSTAT_A", ph),
		frame.NumericColumn("SES_SCORE", ses),
		frame.NumericColumn("INS_BIN", ins),
		frame.NumericColumn("SESxINS", prod),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

// closedForm solves the normal equations on the complete rows.
func closedForm(t *testing.T, f *frame.Frame, outcome string, preds []string) []float64 {
	t.Helper()
	y, _ := f.Floats(outcome)
	cols := make([][]float64, len(preds))
	for j, p := range preds {
		cols[j], _ = f.Floats(p)
	}

	var yy []float64
	var xx [][]float64
rows:
	for i := range y {
		if math.IsNaN(y[i]) {
			continue
		}
		for _, c := range cols {
			if math.IsNaN(c[i]) {
				continue rows
			}
		}
		row := make([]float64, len(preds)+1)
		row[0] = 1
		for j, c := range cols {
			row[j+1] = c[i]
		}
		yy = append(yy, y[i])
		xx = append(xx, row)
	}

	n, k := len(yy), len(preds)+1
	x := mat.NewDense(n, k, nil)
	for i, row := range xx {
		x.SetRow(i, row)
	}
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	xty := mat.NewVecDense(k, nil)
	xty.MulVec(x.T(), mat.NewVecDense(n, yy))
	beta := mat.NewVecDense(k, nil)
	if err := beta.SolveVec(&xtx, xty); err != nil {
		t.Fatalf("normal equations: %v", err)
	}
	out := make([]float64, k)
	for i := range out {
		out[i] = beta.AtVec(i)
	}
	return out
}

func TestFitOLS_MatchesClosedForm(t *testing.T) {
	f := regressionFrame(t, 250, 5, 0)
	res, err := FitOLS(model.InteractionModel(), f)
	if err != nil {
		t.Fatalf("FitOLS: %v", err)
	}
	if res.N != 250 || res.Dropped != 0 {
		t.Errorf("n=%d dropped=%d, want 250/0", res.N, res.Dropped)
	}

	want := closedForm(t, f, "PHSTAT_A", []string{"SES_SCORE", "INS_BIN", "SESxINS"})
	if len(res.Coefs) != 4 {
		t.Fatalf("coefs = %d, want 4", len(res.Coefs))
	}
	for i, c := range res.Coefs {
		if math.Abs(c.Est-want[i]) > 1e-8 {
			t.Errorf("%s = %.10f, want %.10f", c.Name, c.Est, want[i])
		}
		if math.IsNaN(c.SE) || c.SE <= 0 {
			t.Errorf("%s: se = %v", c.Name, c.SE)
		}
		if math.IsNaN(c.P) || c.P < 0 || c.P > 1 {
			t.Errorf("%s: p = %v", c.Name, c.P)
		}
	}
	if res.Coefs[0].Name != "icept" {
		t.Errorf("first coef = %s, want icept", res.Coefs[0].Name)
	}
}

func TestFitOLS_ListwiseDeletion(t *testing.T) {
	f := regressionFrame(t, 200, 9, 10)
	res, err := FitOLS(model.InteractionModel(), f)
	if err != nil {
		t.Fatalf("FitOLS: %v", err)
	}
	if res.Dropped != 20 {
		t.Errorf("dropped = %d, want 20", res.Dropped)
	}
	if res.N != 180 {
		t.Errorf("n = %d, want 180", res.N)
	}

	want := closedForm(t, f, "PHSTAT_A", []string{"SES_SCORE", "INS_BIN", "SESxINS"})
	for i, c := range res.Coefs {
		if math.Abs(c.Est-want[i]) > 1e-8 {
			t.Errorf("%s = %.10f, want %.10f", c.Name, c.Est, want[i])
		}
	}
}

func TestFitOLS_RejectsLatentSpec(t *testing.T) {
	f := regressionFrame(t, 50, 1, 0)
	if _, err := FitOLS(model.HealthModel(), f); err == nil {
		t.Fatal("expected error for latent-variable spec")
	}
}

func TestFitOLS_TooFewRows(t *testing.T) {
	f, err := frame.New([]frame.Column{
		frame.NumericColumn("PHSTAT_A", []float64{1, 2, 3}),
		frame.NumericColumn("SES_SCORE", []float64{1, 2, 3}),
		frame.NumericColumn("INS_BIN", []float64{0, 1, 0}),
		frame.NumericColumn("SESxINS", []float64{0, 2, 0}),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if _, err := FitOLS(model.InteractionModel(), f); err == nil {
		t.Fatal("expected error for too few complete rows")
	}
}
