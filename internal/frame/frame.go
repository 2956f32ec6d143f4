// Package frame holds the in-memory observation table: named, typed columns
// over a fixed number of survey respondent rows. Numeric columns use NaN for
// missing values, label columns use the empty string. Frames are immutable;
// derivation steps append columns by building a new frame that shares the
// existing column storage.
package frame

import (
	"fmt"
	"math"
)

// Kind is the storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	Label
)

// Column is a single named column. Exactly one of Floats/Labels is set,
// according to Kind.
type Column struct {
	Name   string
	Kind   Kind
	Floats []float64
	Labels []string
}

func (c Column) len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Labels)
}

// NumericColumn builds a numeric column. Missing values are NaN.
func NumericColumn(name string, v []float64) Column {
	return Column{Name: name, Kind: Numeric, Floats: v}
}

// LabelColumn builds a label column. Missing values are "".
func LabelColumn(name string, v []string) Column {
	return Column{Name: name, Kind: Label, Labels: v}
}

// Frame is an immutable rectangular table.
type Frame struct {
	nrows int
	cols  []Column
	index map[string]int
}

// New builds a frame from columns, checking that they form a rectangle and
// that no name repeats.
func New(cols []Column) (*Frame, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("frame: no columns")
	}
	n := cols[0].len()
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c.len() != n {
			return nil, fmt.Errorf("frame: column %s has %d rows, want %d", c.Name, c.len(), n)
		}
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %s", c.Name)
		}
		index[c.Name] = i
	}
	return &Frame{nrows: n, cols: cols, index: index}, nil
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.nrows }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the named column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, error) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, &MissingColumnError{Column: name}
	}
	return f.cols[i], nil
}

// Floats returns the values of a numeric column. The slice is shared, not
// copied; callers must not modify it.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("frame: column %s is not numeric", name)
	}
	return c.Floats, nil
}

// Labels returns the values of a label column.
func (f *Frame) Labels(name string) ([]string, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Label {
		return nil, fmt.Errorf("frame: column %s is not a label column", name)
	}
	return c.Labels, nil
}

// WithColumns returns a new frame with the given columns appended. The
// receiver is unchanged and existing column storage is shared.
func (f *Frame) WithColumns(cols ...Column) (*Frame, error) {
	all := make([]Column, 0, len(f.cols)+len(cols))
	all = append(all, f.cols...)
	all = append(all, cols...)
	return New(all)
}

// IsMissing reports whether a numeric value is the missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }
