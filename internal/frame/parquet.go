package frame

import (
	"io"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"
)

// SurveyRow mirrors the Parquet schema for a single adult-file respondent.
// All fields are optional; absent values become NaN in the frame.
type SurveyRow struct {
	Hicov    *float64 `parquet:"HICOV_A,optional"`
	Educ     *float64 `parquet:"EDUCP_A,optional"`
	PovRatio *float64 `parquet:"POVRATTC_A,optional"`
	Diabetes *float64 `parquet:"DIBEV_A,optional"`
	Hyper    *float64 `parquet:"HYPEV_A,optional"`
	PhStat   *float64 `parquet:"PHSTAT_A,optional"`
	PhqCat   *float64 `parquet:"PHQCAT_A,optional"`
	LifeSat  *float64 `parquet:"LSATIS4_A,optional"`
}

// Values returns column name -> value pointer for every survey field.
func (r *SurveyRow) Values() map[string]*float64 {
	return map[string]*float64{
		"HICOV_A":    r.Hicov,
		"EDUCP_A":    r.Educ,
		"POVRATTC_A": r.PovRatio,
		"DIBEV_A":    r.Diabetes,
		"HYPEV_A":    r.Hyper,
		"PHSTAT_A":   r.PhStat,
		"PHQCAT_A":   r.PhqCat,
		"LSATIS4_A":  r.LifeSat,
	}
}

// SurveyColumns lists the raw survey columns in canonical order.
var SurveyColumns = []string{
	"HICOV_A", "EDUCP_A", "POVRATTC_A", "DIBEV_A",
	"HYPEV_A", "PHSTAT_A", "PHQCAT_A", "LSATIS4_A",
}

// ReadParquet reads a Parquet survey file into a Frame with the canonical
// survey columns.
func ReadParquet(path string) (*Frame, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer fid.Close()

	stat, err := fid.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	pf, err := parquet.OpenFile(fid, stat.Size())
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	reader := parquet.NewGenericReader[SurveyRow](pf)
	defer reader.Close()

	vals := make(map[string][]float64, len(SurveyColumns))
	for _, name := range SurveyColumns {
		vals[name] = nil
	}

	buf := make([]SurveyRow, 256)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			for name, ptr := range buf[i].Values() {
				if ptr == nil {
					vals[name] = append(vals[name], math.NaN())
				} else {
					vals[name] = append(vals[name], *ptr)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, &LoadError{Path: path, Err: readErr}
		}
	}

	cols := make([]Column, len(SurveyColumns))
	for j, name := range SurveyColumns {
		cols[j] = NumericColumn(name, vals[name])
	}
	f, err := New(cols)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}
