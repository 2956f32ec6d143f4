// mksample generates a synthetic adult survey extract for testing and demos.
// The generating process follows the published structural estimates: two
// chronic conditions drive an objective health factor, which together with
// education and poverty ratio drives self-rated health.
// Usage: go run ./cmd/mksample --out testdata/adults_small.csv --rows 500 --seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/sesfit/internal/frame"
)

func main() {
	out := flag.String("out", "testdata/adults_small.csv", "output file (.csv or .parquet)")
	rows := flag.Int("rows", 500, "rows to generate")
	seed := flag.Int64("seed", 1, "random seed")
	missingRate := flag.Float64("missing-rate", 0.02, "fraction of cells blanked at random")
	delim := flag.String("delimiter", ";", "CSV field separator")
	flag.Parse()

	sep, err := delimRune(*delim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(*seed))

	sample := make([]frame.SurveyRow, *rows)
	for i := range sample {
		sample[i] = genRow(rng)
	}
	blankCells(rng, sample, *missingRate)

	switch filepath.Ext(*out) {
	case ".parquet", ".pq":
		err = writeParquet(*out, sample)
	default:
		err = writeCSV(*out, sample, sep)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(sample), *out)
}

func genRow(rng *rand.Rand) frame.SurveyRow {
	educ := float64(1 + rng.Intn(5))
	pov := rng.NormFloat64()*0.5 + 2
	dib := bernoulli(rng, 0.10)
	hyp := bernoulli(rng, 0.20)

	// Objective factor and its downstream perceived-health signal.
	obj := 0.48*dib + 0.61*hyp + rng.NormFloat64()*0.5
	perc := -0.48*obj - 0.28*pov + 0.01*educ + rng.NormFloat64()*0.5

	// Survey coding: 1 covered, 2 not covered.
	hicov := 2.0
	if rng.Float64() < 0.90 {
		hicov = 1.0
	}

	phstat := clampRound(3-1.5*perc+rng.NormFloat64()*0.4, 1, 5)
	phq := clampRound(2-perc+rng.NormFloat64()*0.6, 1, 4)
	lsat := clampRound(2+perc+rng.NormFloat64()*0.6, 1, 4)

	return frame.SurveyRow{
		Hicov:    &hicov,
		Educ:     &educ,
		PovRatio: &pov,
		Diabetes: &dib,
		Hyper:    &hyp,
		PhStat:   &phstat,
		PhqCat:   &phq,
		LifeSat:  &lsat,
	}
}

func bernoulli(rng *rand.Rand, p float64) float64 {
	if rng.Float64() < p {
		return 1
	}
	return 0
}

func clampRound(v, lo, hi float64) float64 {
	r := math.Round(v)
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

// blankCells nils out a random fraction of cells so the missing-data paths
// have something to chew on.
func blankCells(rng *rand.Rand, sample []frame.SurveyRow, rate float64) {
	if rate <= 0 {
		return
	}
	for i := range sample {
		if rng.Float64() < rate {
			sample[i].Hicov = nil
		}
		if rng.Float64() < rate {
			sample[i].PovRatio = nil
		}
		if rng.Float64() < rate {
			sample[i].PhStat = nil
		}
		if rng.Float64() < rate {
			sample[i].PhqCat = nil
		}
		if rng.Float64() < rate {
			sample[i].LifeSat = nil
		}
	}
}

// delimRune validates the separator flag the same way the analysis config
// does: exactly one character.
func delimRune(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func writeCSV(path string, sample []frame.SurveyRow, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep

	if err := w.Write(frame.SurveyColumns); err != nil {
		return err
	}
	for i := range sample {
		vals := sample[i].Values()
		rec := make([]string, len(frame.SurveyColumns))
		for j, name := range frame.SurveyColumns {
			if ptr := vals[name]; ptr != nil {
				rec[j] = strconv.FormatFloat(*ptr, 'g', -1, 64)
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeParquet(path string, sample []frame.SurveyRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := goparquet.NewGenericWriter[frame.SurveyRow](f)
	if _, err := writer.Write(sample); err != nil {
		return err
	}
	return writer.Close()
}
