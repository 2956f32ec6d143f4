package stats

import (
	"math"
	"sort"

	"github.com/gyeh/sesfit/internal/frame"
)

// CrossTab is a two-way frequency table of a label column against a numeric
// (coded) column. Rows with a missing value on either side are excluded and
// counted in Dropped.
type CrossTab struct {
	RowName, ColName string
	RowLevels        []string
	ColLevels        []float64
	Counts           [][]int
	RowTotals        []int
	ColTotals        []int
	Total            int
	Dropped          int
}

// CrossTabulate counts label x code co-occurrences, e.g. SES_cat x INS_BIN.
func CrossTabulate(f *frame.Frame, rowCol, colCol string) (*CrossTab, error) {
	labels, err := f.Labels(rowCol)
	if err != nil {
		return nil, err
	}
	codes, err := f.Floats(colCol)
	if err != nil {
		return nil, err
	}

	rowSet := map[string]bool{}
	colSet := map[float64]bool{}
	for i := range labels {
		if labels[i] == "" || math.IsNaN(codes[i]) {
			continue
		}
		rowSet[labels[i]] = true
		colSet[codes[i]] = true
	}

	ct := &CrossTab{RowName: rowCol, ColName: colCol}
	for l := range rowSet {
		ct.RowLevels = append(ct.RowLevels, l)
	}
	sort.Strings(ct.RowLevels)
	for c := range colSet {
		ct.ColLevels = append(ct.ColLevels, c)
	}
	sort.Float64s(ct.ColLevels)

	rowIdx := map[string]int{}
	for i, l := range ct.RowLevels {
		rowIdx[l] = i
	}
	colIdx := map[float64]int{}
	for i, c := range ct.ColLevels {
		colIdx[c] = i
	}

	ct.Counts = make([][]int, len(ct.RowLevels))
	for i := range ct.Counts {
		ct.Counts[i] = make([]int, len(ct.ColLevels))
	}
	ct.RowTotals = make([]int, len(ct.RowLevels))
	ct.ColTotals = make([]int, len(ct.ColLevels))

	for i := range labels {
		if labels[i] == "" || math.IsNaN(codes[i]) {
			ct.Dropped++
			continue
		}
		r, c := rowIdx[labels[i]], colIdx[codes[i]]
		ct.Counts[r][c]++
		ct.RowTotals[r]++
		ct.ColTotals[c]++
		ct.Total++
	}
	return ct, nil
}
