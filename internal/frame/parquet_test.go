package frame

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goparquet "github.com/parquet-go/parquet-go"
)

func TestReadParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adults.parquet")

	one, two, pov := 1.0, 2.0, 2.4
	rows := []SurveyRow{
		{Hicov: &one, Educ: &two, PovRatio: &pov, Diabetes: &one, Hyper: &one, PhStat: &two, PhqCat: &one, LifeSat: &two},
		{Hicov: &two, Educ: &one, PhStat: &one}, // sparse row
	}

	fid, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := goparquet.NewGenericWriter[SurveyRow](fid)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	fid.Close()

	f, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", f.NumRows())
	}
	for _, name := range SurveyColumns {
		if !f.Has(name) {
			t.Errorf("missing column %s", name)
		}
	}

	hicov, err := f.Floats("HICOV_A")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if hicov[0] != 1 || hicov[1] != 2 {
		t.Errorf("HICOV_A = %v", hicov)
	}

	// Absent optionals come back as the missing marker.
	povCol, err := f.Floats("POVRATTC_A")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if povCol[0] != 2.4 || !math.IsNaN(povCol[1]) {
		t.Errorf("POVRATTC_A = %v", povCol)
	}
}

func TestReadParquet_MissingFile(t *testing.T) {
	if _, err := ReadParquet("/nonexistent/adults.parquet"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
