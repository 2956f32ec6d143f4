package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/gyeh/sesfit/internal/frame"
)

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	nan := math.NaN()
	f, err := frame.New([]frame.Column{
		frame.NumericColumn("x", []float64{1, 2, 3, 4, nan}),
		frame.NumericColumn("y", []float64{2, 4, 6, nan, 10}),
		frame.NumericColumn("z", []float64{5, 5, 5, 5, 5}),
		frame.LabelColumn("g", []string{"a", "a", "b", "b", ""}),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func TestDescribe_Basics(t *testing.T) {
	f := testFrame(t)
	sums, err := Describe(f, []string{"x"})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	s := sums[0]
	if s.N != 4 || s.Missing != 1 {
		t.Errorf("n=%d miss=%d, want 4/1", s.N, s.Missing)
	}
	if s.Mean != 2.5 {
		t.Errorf("mean = %g, want 2.5", s.Mean)
	}
	// sample sd of 1..4
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(s.SD-want) > 1e-12 {
		t.Errorf("sd = %g, want %g", s.SD, want)
	}
	if s.Min != 1 || s.Max != 4 || s.Median != 2.5 {
		t.Errorf("min/med/max = %g/%g/%g", s.Min, s.Median, s.Max)
	}
}

func TestDescribe_MissingColumn(t *testing.T) {
	f := testFrame(t)
	_, err := Describe(f, []string{"nope"})
	var mce *frame.MissingColumnError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
}

func TestSD_TooFewValues(t *testing.T) {
	if !math.IsNaN(SD([]float64{1})) {
		t.Error("expected NaN sd for a single value")
	}
}

func TestCorrMatrix_PerfectCorrelation(t *testing.T) {
	f := testFrame(t)
	r, err := CorrMatrix(f, []string{"x", "y"}, Pairwise)
	if err != nil {
		t.Fatalf("CorrMatrix: %v", err)
	}
	// complete pairs of (x, y) are (1,2),(2,4),(3,6): exactly linear
	if math.Abs(r[0][1]-1) > 1e-12 {
		t.Errorf("r = %g, want 1", r[0][1])
	}
	if r[0][0] != 1 || r[1][1] != 1 {
		t.Error("diagonal must be 1")
	}
	if r[0][1] != r[1][0] {
		t.Error("matrix must be symmetric")
	}
}

func TestCorrMatrix_ConstantColumnNaN(t *testing.T) {
	f := testFrame(t)
	r, err := CorrMatrix(f, []string{"x", "z"}, Pairwise)
	if err != nil {
		t.Fatalf("CorrMatrix: %v", err)
	}
	if !math.IsNaN(r[0][1]) {
		t.Errorf("correlation with constant = %g, want NaN", r[0][1])
	}
}

func TestCorrMatrix_PolicyChangesRowSet(t *testing.T) {
	nan := math.NaN()
	f, err := frame.New([]frame.Column{
		frame.NumericColumn("a", []float64{1, 2, 3, 4}),
		frame.NumericColumn("b", []float64{1, 3, 2, 4}),
		frame.NumericColumn("c", []float64{nan, 1, 2, 3}),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}

	pw, err := CorrMatrix(f, []string{"a", "b", "c"}, Pairwise)
	if err != nil {
		t.Fatalf("pairwise: %v", err)
	}
	lw, err := CorrMatrix(f, []string{"a", "b", "c"}, Listwise)
	if err != nil {
		t.Fatalf("listwise: %v", err)
	}
	// a-b under pairwise uses all 4 rows; under listwise only the 3 rows
	// complete on c as well. The two must differ.
	if math.Abs(pw[0][1]-lw[0][1]) < 1e-9 {
		t.Errorf("expected policies to differ: pairwise=%g listwise=%g", pw[0][1], lw[0][1])
	}
}

func TestCrossTabulate_CountsAndMargins(t *testing.T) {
	nan := math.NaN()
	f, err := frame.New([]frame.Column{
		frame.LabelColumn("grp", []string{"Low", "Low", "High", "High", "", "Low"}),
		frame.NumericColumn("ins", []float64{0, 1, 1, 1, 0, nan}),
	})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	ct, err := CrossTabulate(f, "grp", "ins")
	if err != nil {
		t.Fatalf("CrossTabulate: %v", err)
	}

	if ct.Total != 4 || ct.Dropped != 2 {
		t.Errorf("total=%d dropped=%d, want 4/2", ct.Total, ct.Dropped)
	}
	// levels sort: rows High, Low; cols 0, 1
	if len(ct.RowLevels) != 2 || ct.RowLevels[0] != "High" {
		t.Fatalf("row levels = %v", ct.RowLevels)
	}
	if ct.Counts[0][1] != 2 { // High x 1
		t.Errorf("High/1 = %d, want 2", ct.Counts[0][1])
	}
	if ct.Counts[1][0] != 1 || ct.Counts[1][1] != 1 { // Low
		t.Errorf("Low row = %v", ct.Counts[1])
	}
	if ct.RowTotals[0] != 2 || ct.ColTotals[1] != 3 {
		t.Errorf("margins: rows=%v cols=%v", ct.RowTotals, ct.ColTotals)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != Pairwise {
		t.Errorf("default policy: %v %v", p, err)
	}
	if p, err := ParsePolicy("listwise"); err != nil || p != Listwise {
		t.Errorf("listwise: %v %v", p, err)
	}
	if _, err := ParsePolicy("dropall"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
