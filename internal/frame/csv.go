package frame

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// missingTokens are cell values treated as missing in delimited input.
var missingTokens = map[string]bool{"": true, "NA": true, ".": true}

// ReadCSV reads a delimited text table with one header row into a Frame.
// A column is numeric when every non-missing cell parses as a float;
// otherwise it is kept as labels. Ragged rows and unreadable paths fail
// with a LoadError.
func ReadCSV(path string, delim rune) (*Frame, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer fid.Close()

	rdr := csv.NewReader(fid)
	rdr.Comma = delim
	rdr.TrimLeadingSpace = true

	// FieldsPerRecord defaults to the header width, so a column-count
	// mismatch surfaces as a csv.ErrFieldCount from Read.
	records, err := rdr.ReadAll()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(records) < 2 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("need a header row and at least one data row, got %d rows", len(records))}
	}

	header := records[0]
	rows := records[1:]

	cols := make([]Column, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("empty column name at position %d", j+1)}
		}

		raw := make([]string, len(rows))
		numeric := true
		for i, rec := range rows {
			raw[i] = strings.TrimSpace(rec[j])
			if missingTokens[raw[i]] {
				continue
			}
			if _, perr := strconv.ParseFloat(raw[i], 64); perr != nil {
				numeric = false
			}
		}

		if numeric {
			v := make([]float64, len(raw))
			for i, s := range raw {
				if missingTokens[s] {
					v[i] = math.NaN()
					continue
				}
				v[i], _ = strconv.ParseFloat(s, 64)
			}
			cols[j] = NumericColumn(name, v)
		} else {
			v := make([]string, len(raw))
			for i, s := range raw {
				if missingTokens[s] {
					v[i] = ""
					continue
				}
				v[i] = s
			}
			cols[j] = LabelColumn(name, v)
		}
	}

	f, err := New(cols)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}
