package main

import "testing"

func TestDelimRune(t *testing.T) {
	cases := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{";", ';', false},
		{",", ',', false},
		{"\t", '\t', false},
		{"", 0, true},
		{";;", 0, true},
	}
	for _, c := range cases {
		got, err := delimRune(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("delimRune(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("delimRune(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("delimRune(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
