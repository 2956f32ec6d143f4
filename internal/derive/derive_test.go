package derive

import (
	"errors"
	"math"
	"testing"

	"github.com/gyeh/sesfit/internal/frame"
)

func rawFrame(t *testing.T, hicov, educ, pov, phstat []float64) *frame.Frame {
	t.Helper()
	f, err := frame.New([]frame.Column{
		frame.NumericColumn("HICOV_A", hicov),
		frame.NumericColumn("EDUCP_A", educ),
		frame.NumericColumn("POVRATTC_A", pov),
		frame.NumericColumn("PHSTAT_A", phstat),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func TestDerive_InsBin(t *testing.T) {
	nan := math.NaN()
	f := rawFrame(t,
		[]float64{1, 2, 7, nan, 1},
		[]float64{1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	ins, err := df.Floats(InsBin)
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	want := []float64{1, 0, 0, nan, 1}
	for i := range want {
		if math.IsNaN(want[i]) != math.IsNaN(ins[i]) || (!math.IsNaN(want[i]) && ins[i] != want[i]) {
			t.Errorf("INS_BIN[%d] = %v, want %v", i, ins[i], want[i])
		}
	}
}

func TestDerive_SESScoreZeroMean(t *testing.T) {
	f := rawFrame(t,
		[]float64{1, 1, 2, 2, 1, 2},
		[]float64{1, 2, 3, 4, 5, 3},
		[]float64{0.5, 1.5, 2.0, 2.5, 3.5, 2.0},
		[]float64{1, 2, 3, 4, 5, 3},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	ses, err := df.Floats(SESScore)
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	sum := 0.0
	for _, v := range ses {
		sum += v
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("SES_SCORE sum = %g, want 0", sum)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	f := rawFrame(t,
		[]float64{1, 2, 1, 2},
		[]float64{1, 2, 3, 4},
		[]float64{1.0, 1.5, 2.5, 3.0},
		[]float64{1, 2, 3, 4},
	)
	d1, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("first Derive: %v", err)
	}
	d2, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("second Derive: %v", err)
	}
	s1, _ := d1.Floats(SESScore)
	s2, _ := d2.Floats(SESScore)
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Errorf("SES_SCORE[%d]: %v vs %v", i, s1[i], s2[i])
		}
	}
	if f.Has(SESScore) {
		t.Error("input frame was modified")
	}
}

func TestDerive_SESxInsProduct(t *testing.T) {
	nan := math.NaN()
	f := rawFrame(t,
		[]float64{1, 2, nan, 1},
		[]float64{1, 2, 3, 4},
		[]float64{1.0, 2.0, 3.0, 4.0},
		[]float64{1, 2, 3, 4},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	ses, _ := df.Floats(SESScore)
	ins, _ := df.Floats(InsBin)
	prod, _ := df.Floats(SESxIns)
	for i := range prod {
		if math.IsNaN(ses[i]) || math.IsNaN(ins[i]) {
			if !math.IsNaN(prod[i]) {
				t.Errorf("SESxINS[%d] = %v, want NaN", i, prod[i])
			}
			continue
		}
		if prod[i] != ses[i]*ins[i] {
			t.Errorf("SESxINS[%d] = %v, want %v", i, prod[i], ses[i]*ins[i])
		}
	}
}

func TestDerive_SESCatMedianTiesHigh(t *testing.T) {
	// symmetric z-scores: scores come out equally spaced around 0, so the
	// median row must land in "High SES"
	f := rawFrame(t,
		[]float64{1, 1, 1, 1, 1},
		[]float64{1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5},
		[]float64{1, 2, 3, 4, 5},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	cat, err := df.Labels(SESCat)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	want := []string{"Low SES", "Low SES", "High SES", "High SES", "High SES"}
	for i := range want {
		if cat[i] != want[i] {
			t.Errorf("SES_cat[%d] = %q, want %q", i, cat[i], want[i])
		}
	}
}

func TestDerive_SESGroupTertiles(t *testing.T) {
	f := rawFrame(t,
		[]float64{1, 1, 1, 1, 1, 1, 1, 1, 1},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		[]float64{1, 1, 1, 1, 1, 1, 1, 1, 1},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	grp, err := df.Labels(SESGroup)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	// scores are strictly increasing in row order; boundary values (rows at
	// the q33 and q66 cut points interpolated between ranks) fall in Mid
	want := []string{
		"Low SES", "Low SES", "Low SES",
		"Mid SES", "Mid SES", "Mid SES",
		"High SES", "High SES", "High SES",
	}
	for i := range want {
		if grp[i] != want[i] {
			t.Errorf("SES_GROUP[%d] = %q, want %q", i, grp[i], want[i])
		}
	}
}

func TestDerive_InsLabelConventions(t *testing.T) {
	nan := math.NaN()
	f := rawFrame(t,
		[]float64{1, 2, nan},
		[]float64{1, 2, 3},
		[]float64{1, 2, 3},
		[]float64{1, 2, 3},
	)

	src, err := Derive(f, Options{InsLabel: LabelSource})
	if err != nil {
		t.Fatalf("Derive source: %v", err)
	}
	lab, _ := src.Labels(InsLabel)
	if lab[0] != "Uninsured" || lab[1] != "Insured" || lab[2] != "" {
		t.Errorf("source labels = %v", lab)
	}

	cor, err := Derive(f, Options{InsLabel: LabelCorrected})
	if err != nil {
		t.Fatalf("Derive corrected: %v", err)
	}
	lab, _ = cor.Labels(InsLabel)
	if lab[0] != "Insured" || lab[1] != "Uninsured" || lab[2] != "" {
		t.Errorf("corrected labels = %v", lab)
	}
}

func TestDerive_PhstatReversedIdentity(t *testing.T) {
	nan := math.NaN()
	f := rawFrame(t,
		[]float64{1, 1, 1, 1},
		[]float64{1, 2, 3, 4},
		[]float64{1, 2, 3, 4},
		[]float64{1, 5, 3, nan},
	)
	df, err := Derive(f, Options{})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	ph, _ := df.Floats("PHSTAT_A")
	rev, _ := df.Floats(PhstatReversed)
	// observed max is 5, so v + reversed == 6 on every observed row
	for i := range ph {
		if math.IsNaN(ph[i]) {
			if !math.IsNaN(rev[i]) {
				t.Errorf("reversed[%d] = %v, want NaN", i, rev[i])
			}
			continue
		}
		if ph[i]+rev[i] != 6 {
			t.Errorf("row %d: %g + %g != 6", i, ph[i], rev[i])
		}
	}
}

func TestDerive_MissingRawColumn(t *testing.T) {
	f, err := frame.New([]frame.Column{
		frame.NumericColumn("HICOV_A", []float64{1, 2}),
		frame.NumericColumn("EDUCP_A", []float64{1, 2}),
		frame.NumericColumn("PHSTAT_A", []float64{1, 2}),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	_, err = Derive(f, Options{})
	var mce *frame.MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if mce.Column != "POVRATTC_A" {
		t.Errorf("missing column = %q, want POVRATTC_A", mce.Column)
	}
}

func TestDerive_ZeroVarianceFails(t *testing.T) {
	f := rawFrame(t,
		[]float64{1, 2, 1},
		[]float64{3, 3, 3},
		[]float64{1, 2, 3},
		[]float64{1, 2, 3},
	)
	_, err := Derive(f, Options{})
	var de *DerivationError
	if !errors.As(err, &de) {
		t.Fatalf("expected DerivationError, got %v", err)
	}
	if de.Column != "EDUCP_A" {
		t.Errorf("column = %q, want EDUCP_A", de.Column)
	}
}

func TestParseLabelConvention(t *testing.T) {
	if c, err := ParseLabelConvention(""); err != nil || c != LabelSource {
		t.Errorf("default: %v %v", c, err)
	}
	if c, err := ParseLabelConvention("corrected"); err != nil || c != LabelCorrected {
		t.Errorf("corrected: %v %v", c, err)
	}
	if _, err := ParseLabelConvention("fixed"); err == nil {
		t.Error("expected error for unknown convention")
	}
}
