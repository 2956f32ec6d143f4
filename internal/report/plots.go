package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gyeh/sesfit/internal/derive"
	"github.com/gyeh/sesfit/internal/frame"
	"github.com/gyeh/sesfit/internal/stats"
)

// PlotError reports one failed plot branch.
type PlotError struct {
	Plot string
	Err  error
}

func (e *PlotError) Error() string {
	return fmt.Sprintf("plot %s: %s", e.Plot, e.Err)
}

func (e *PlotError) Unwrap() error { return e.Err }

// PlotSpec is one renderable chart.
type PlotSpec struct {
	Name   string
	Desc   string
	Render func(f *frame.Frame, policy stats.Policy, dir string) error
}

// AllPlots lists the available plots in render order.
var AllPlots = []PlotSpec{
	{Name: "histograms", Desc: "histogram per key variable", Render: renderHistograms},
	{Name: "correlation", Desc: "correlation heat map of perceived-health indicators", Render: renderCorrelation},
	{Name: "box_health_by_education", Desc: "self-rated health by education level", Render: renderBoxByEducation},
	{Name: "box_health_by_poverty", Desc: "self-rated health by poverty-ratio quartile", Render: renderBoxByPoverty},
	{Name: "hist_health_by_insurance", Desc: "self-rated health split by insurance status", Render: renderHistByInsurance},
	{Name: "scatter_ses_health", Desc: "SES score vs reversed health with trend lines by insurance", Render: renderScatterSES},
	{Name: "interaction_ses_insurance", Desc: "SES quartile x insurance interaction with SE bars", Render: renderInteraction},
	{Name: "trend_poverty_health_by_education", Desc: "poverty ratio vs reversed health, trend per education level", Render: renderPovertyHealthTrends},
	{Name: "trend_poverty_depression_by_education", Desc: "poverty ratio vs depression category, trend per education level", Render: renderPovertyDepressionTrends},
}

// PlotByName returns the named plot spec.
func PlotByName(name string) (PlotSpec, bool) {
	for _, ps := range AllPlots {
		if ps.Name == name {
			return ps, true
		}
	}
	return PlotSpec{}, false
}

// RenderAll renders the requested plots (all of them when names is empty)
// into dir. Failed branches are logged and collected; the remaining
// branches still run.
func RenderAll(f *frame.Frame, dir string, names []string, policy stats.Policy, log zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	selected := AllPlots
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			ps, ok := PlotByName(name)
			if !ok {
				return fmt.Errorf("unknown plot %q", name)
			}
			selected = append(selected, ps)
		}
	}

	var errs []error
	for _, ps := range selected {
		if err := ps.Render(f, policy, dir); err != nil {
			pe := &PlotError{Plot: ps.Name, Err: err}
			log.Warn().Err(err).Str("plot", ps.Name).Msg("plot failed")
			errs = append(errs, pe)
			continue
		}
		log.Info().Str("plot", ps.Name).Msg("plot rendered")
	}
	return errors.Join(errs...)
}

var histVars = []string{
	"EDUCP_A", "POVRATTC_A", "PHSTAT_A", "PHQCAT_A", "LSATIS4_A", derive.SESScore,
}

func renderHistograms(f *frame.Frame, _ stats.Policy, dir string) error {
	for _, name := range histVars {
		x, err := f.Floats(name)
		if err != nil {
			return err
		}
		v := stats.DropMissing(x)
		if len(v) == 0 {
			return fmt.Errorf("column %s has no observed values", name)
		}

		p := plot.New()
		p.Title.Text = name
		p.X.Label.Text = name
		p.Y.Label.Text = "count"

		h, err := plotter.NewHist(plotter.Values(v), 16)
		if err != nil {
			return err
		}
		h.FillColor = color.NRGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0xff}
		p.Add(h)

		if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "hist_"+name+".png")); err != nil {
			return err
		}
	}
	return nil
}

// corrGrid adapts a correlation matrix to the heat-map interface.
type corrGrid struct {
	names []string
	r     [][]float64
}

func (g corrGrid) Dims() (c, r int) { return len(g.names), len(g.names) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }

func (g corrGrid) Z(c, r int) float64 {
	v := g.r[r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

var perceivedVars = []string{"PHSTAT_A", "PHQCAT_A", "LSATIS4_A"}

func renderCorrelation(f *frame.Frame, policy stats.Policy, dir string) error {
	r, err := stats.CorrMatrix(f, perceivedVars, policy)
	if err != nil {
		return err
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	pal := cm.Palette(255)

	p := plot.New()
	p.Title.Text = "Perceived-health indicator correlations"
	p.Add(plotter.NewHeatMap(corrGrid{names: perceivedVars, r: r}, pal))
	p.NominalX(perceivedVars...)
	p.NominalY(perceivedVars...)

	return p.Save(5*vg.Inch, 4*vg.Inch, filepath.Join(dir, "corr_perceived.png"))
}

func renderBoxByEducation(f *frame.Frame, _ stats.Policy, dir string) error {
	return boxByGroups(f, "EDUCP_A", discreteGroups, "PHSTAT_A",
		"Self-rated health by education", filepath.Join(dir, "box_health_by_education.png"))
}

func renderBoxByPoverty(f *frame.Frame, _ stats.Policy, dir string) error {
	return boxByGroups(f, "POVRATTC_A", quartileGroups, "PHSTAT_A",
		"Self-rated health by poverty-ratio quartile", filepath.Join(dir, "box_health_by_poverty.png"))
}

// grouper maps a grouping column to per-row group labels in display order.
type grouper func(x []float64) (labels []string, order []string)

// discreteGroups uses each distinct value as its own group.
func discreteGroups(x []float64) ([]string, []string) {
	labels := make([]string, len(x))
	set := map[float64]bool{}
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		labels[i] = fmt.Sprintf("%g", v)
		set[v] = true
	}
	var vals []float64
	for v := range set {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	order := make([]string, len(vals))
	for i, v := range vals {
		order[i] = fmt.Sprintf("%g", v)
	}
	return labels, order
}

// quartileGroups buckets a continuous column into Q1..Q4.
func quartileGroups(x []float64) ([]string, []string) {
	q25 := stats.Quantile(0.25, x)
	q50 := stats.Quantile(0.5, x)
	q75 := stats.Quantile(0.75, x)

	labels := make([]string, len(x))
	for i, v := range x {
		switch {
		case math.IsNaN(v):
		case v < q25:
			labels[i] = "Q1"
		case v < q50:
			labels[i] = "Q2"
		case v < q75:
			labels[i] = "Q3"
		default:
			labels[i] = "Q4"
		}
	}
	return labels, []string{"Q1", "Q2", "Q3", "Q4"}
}

func boxByGroups(f *frame.Frame, groupCol string, grp grouper, valueCol, title, path string) error {
	gx, err := f.Floats(groupCol)
	if err != nil {
		return err
	}
	vx, err := f.Floats(valueCol)
	if err != nil {
		return err
	}

	labels, order := grp(gx)

	byGroup := map[string][]float64{}
	for i := range labels {
		if labels[i] == "" || math.IsNaN(vx[i]) {
			continue
		}
		byGroup[labels[i]] = append(byGroup[labels[i]], vx[i])
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = groupCol
	p.Y.Label.Text = valueCol

	var shown []string
	for _, l := range order {
		vals := byGroup[l]
		if len(vals) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(24), float64(len(shown)), plotter.Values(vals))
		if err != nil {
			return err
		}
		p.Add(b)
		shown = append(shown, l)
	}
	if len(shown) == 0 {
		return fmt.Errorf("no complete rows for %s by %s", valueCol, groupCol)
	}
	p.NominalX(shown...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

var (
	colInsured   = color.NRGBA{R: 0x1b, G: 0x7f, B: 0x4d, A: 0xff}
	colUninsured = color.NRGBA{R: 0xc2, G: 0x41, B: 0x2e, A: 0xff}
)

func insuranceColor(label string) color.NRGBA {
	if label == "Insured" {
		return colInsured
	}
	return colUninsured
}

func renderHistByInsurance(f *frame.Frame, _ stats.Policy, dir string) error {
	ph, err := f.Floats("PHSTAT_A")
	if err != nil {
		return err
	}
	ins, err := f.Labels(derive.InsLabel)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Self-rated health by insurance status"
	p.X.Label.Text = "PHSTAT_A"
	p.Y.Label.Text = "count"

	for _, label := range []string{"Insured", "Uninsured"} {
		var vals []float64
		for i := range ph {
			if ins[i] == label && !math.IsNaN(ph[i]) {
				vals = append(vals, ph[i])
			}
		}
		if len(vals) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(vals), 10)
		if err != nil {
			return err
		}
		c := insuranceColor(label)
		c.A = 0x90
		h.FillColor = c
		p.Add(h)
		p.Legend.Add(label, h)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "hist_health_by_insurance.png"))
}

func renderScatterSES(f *frame.Frame, _ stats.Policy, dir string) error {
	ses, err := f.Floats(derive.SESScore)
	if err != nil {
		return err
	}
	ph, err := f.Floats(derive.PhstatReversed)
	if err != nil {
		return err
	}
	ins, err := f.Labels(derive.InsLabel)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "SES and perceived health by insurance status"
	p.X.Label.Text = derive.SESScore
	p.Y.Label.Text = derive.PhstatReversed

	for _, label := range []string{"Insured", "Uninsured"} {
		var xs, ys []float64
		for i := range ses {
			if ins[i] == label && !math.IsNaN(ses[i]) && !math.IsNaN(ph[i]) {
				xs = append(xs, ses[i])
				ys = append(ys, ph[i])
			}
		}
		if len(xs) < 2 {
			continue
		}

		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		c := insuranceColor(label)
		c.A = 0x60
		sc.GlyphStyle.Color = c
		p.Add(sc)

		line, err := trendLine(xs, ys)
		if err != nil {
			return err
		}
		line.Color = insuranceColor(label)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(label, line)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "scatter_ses_health.png"))
}

// trendLine fits y = alpha + beta*x and returns its segment over the x range.
func trendLine(xs, ys []float64) (*plotter.Line, error) {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	x0, x1 := floats.Min(xs), floats.Max(xs)
	return plotter.NewLine(plotter.XYs{
		{X: x0, Y: alpha + beta*x0},
		{X: x1, Y: alpha + beta*x1},
	})
}

// errPoints carries points plus their standard-error bars.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

func renderInteraction(f *frame.Frame, _ stats.Policy, dir string) error {
	ses, err := f.Floats(derive.SESScore)
	if err != nil {
		return err
	}
	ph, err := f.Floats("PHSTAT_A")
	if err != nil {
		return err
	}
	ins, err := f.Labels(derive.InsLabel)
	if err != nil {
		return err
	}

	quart, order := quartileGroups(ses)

	p := plot.New()
	p.Title.Text = "Mean self-rated health by SES quartile and insurance"
	p.X.Label.Text = "SES quartile"
	p.Y.Label.Text = "mean PHSTAT_A"

	for _, label := range []string{"Insured", "Uninsured"} {
		pts := make(plotter.XYs, 0, len(order))
		yerrs := make(plotter.YErrors, 0, len(order))
		for qi, q := range order {
			var vals []float64
			for i := range ph {
				if ins[i] == label && quart[i] == q && !math.IsNaN(ph[i]) {
					vals = append(vals, ph[i])
				}
			}
			if len(vals) == 0 {
				continue
			}
			mean := stats.Mean(vals)
			se := 0.0
			if sd := stats.SD(vals); !math.IsNaN(sd) {
				se = sd / math.Sqrt(float64(len(vals)))
			}
			pts = append(pts, plotter.XY{X: float64(qi), Y: mean})
			yerrs = append(yerrs, struct{ Low, High float64 }{Low: se, High: se})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = insuranceColor(label)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(label, line)

		bars, err := plotter.NewYErrorBars(errPoints{XYs: pts, YErrors: yerrs})
		if err != nil {
			return err
		}
		bars.Color = insuranceColor(label)
		p.Add(bars)
	}
	p.NominalX(order...)

	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "interaction_ses_insurance.png"))
}

func renderPovertyHealthTrends(f *frame.Frame, _ stats.Policy, dir string) error {
	return trendsByEducation(f, derive.PhstatReversed,
		"Poverty ratio and perceived health by education",
		filepath.Join(dir, "trend_poverty_health_by_education.png"))
}

func renderPovertyDepressionTrends(f *frame.Frame, _ stats.Policy, dir string) error {
	return trendsByEducation(f, "PHQCAT_A",
		"Poverty ratio and depression screening by education",
		filepath.Join(dir, "trend_poverty_depression_by_education.png"))
}

// trendsByEducation scatters POVRATTC_A against yCol with one trend line per
// education level.
func trendsByEducation(f *frame.Frame, yCol, title, path string) error {
	pov, err := f.Floats("POVRATTC_A")
	if err != nil {
		return err
	}
	educ, err := f.Floats("EDUCP_A")
	if err != nil {
		return err
	}
	y, err := f.Floats(yCol)
	if err != nil {
		return err
	}

	labels, order := discreteGroups(educ)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "POVRATTC_A"
	p.Y.Label.Text = yCol

	palette := []color.NRGBA{
		{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
		{R: 0x3b, G: 0x52, B: 0x8b, A: 0xff},
		{R: 0x21, G: 0x91, B: 0x8c, A: 0xff},
		{R: 0x5e, G: 0xc9, B: 0x62, A: 0xff},
		{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
	}

	drawn := 0
	for gi, lev := range order {
		var xs, ys []float64
		for i := range pov {
			if labels[i] == lev && !math.IsNaN(pov[i]) && !math.IsNaN(y[i]) {
				xs = append(xs, pov[i])
				ys = append(ys, y[i])
			}
		}
		if len(xs) < 2 {
			continue
		}
		col := palette[gi%len(palette)]

		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		faint := col
		faint.A = 0x50
		sc.GlyphStyle.Color = faint
		p.Add(sc)

		line, err := trendLine(xs, ys)
		if err != nil {
			return err
		}
		line.Color = col
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("EDUCP_A="+lev, line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("no education level has enough complete rows")
	}

	return p.Save(7*vg.Inch, 4.5*vg.Inch, path)
}
