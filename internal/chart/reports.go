package chart

import (
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/Additional-Code/salesboard/internal/service/analysis"
)

// Categories renders the category distribution.
func Categories(w io.Writer, f Format, r analysis.CatalogReport) error {
	if len(r.Categories) == 0 {
		return ErrNoData
	}
	values := make([]gochart.Value, 0, len(r.Categories))
	for _, c := range r.Categories {
		values = append(values, gochart.Value{Label: c.Label, Value: float64(c.Count)})
	}
	c := barChart("Orders by category", values)
	return render(w, f, c)
}

// TopStyles renders the revenue of the best selling styles.
func TopStyles(w io.Writer, f Format, r analysis.ExploratoryReport) error {
	if len(r.TopStyles) == 0 {
		return ErrNoData
	}
	values := make([]gochart.Value, 0, len(r.TopStyles))
	for _, s := range r.TopStyles {
		values = append(values, gochart.Value{Label: s.Style, Value: s.Revenue.InexactFloat64()})
	}
	c := barChart(fmt.Sprintf("Top %d styles by revenue", len(values)), values)
	return render(w, f, c)
}

// Status renders the status distribution as a pie.
func Status(w io.Writer, f Format, r analysis.ExploratoryReport) error {
	if len(r.Statuses) == 0 {
		return ErrNoData
	}
	values := make([]gochart.Value, 0, len(r.Statuses))
	for _, s := range r.Statuses {
		values = append(values, gochart.Value{Label: fmt.Sprintf("%s %s", s.Label, percent(s.Share)), Value: float64(s.Count)})
	}
	c := gochart.PieChart{
		Title:      "Order status",
		Background: padding,
		Width:      height + 100,
		Height:     height + 100,
		Values:     values,
	}
	return render(w, f, c)
}

// MeanInterval renders the order value histogram with the interval bounds and the mean.
func MeanInterval(w io.Writer, f Format, r analysis.MeanIntervalReport) error {
	if r.Interval == nil || len(r.Histogram) == 0 {
		return ErrNoData
	}
	xs := make([]float64, 0, len(r.Histogram))
	ys := make([]float64, 0, len(r.Histogram))
	peak := 1.0
	for _, b := range r.Histogram {
		xs = append(xs, (b.Lower+b.Upper)/2)
		ys = append(ys, float64(b.Count))
		if float64(b.Count) > peak {
			peak = float64(b.Count)
		}
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0])
		ys = append(ys, ys[0])
	}
	ci := r.Interval
	pct := fmt.Sprintf("%.0f%%", r.Level*100)
	hist := line("Order values", xs, ys, gochart.ColorBlue, 2)
	hist.Style.FillColor = gochart.ColorBlue.WithAlpha(60)

	lo, hi := r.Histogram[0].Lower, r.Histogram[len(r.Histogram)-1].Upper
	c := gochart.Chart{
		Title:      fmt.Sprintf("Order value distribution with %s CI", pct),
		Background: padding,
		Width:      width,
		Height:     height,
		XAxis:      gochart.XAxis{Name: "Order value", Range: span(min(lo, ci.Lower), max(hi, ci.Upper), 0.02)},
		YAxis:      gochart.YAxis{Name: "Orders", Range: &gochart.ContinuousRange{Min: 0, Max: peak * 1.1}},
		Series: []gochart.Series{
			hist,
			line("CI "+pct+" lower", []float64{ci.Lower, ci.Lower}, []float64{0, peak}, gochart.ColorRed, 2),
			line("CI "+pct+" upper", []float64{ci.Upper, ci.Upper}, []float64{0, peak}, gochart.ColorRed, 2),
			line(fmt.Sprintf("Mean %.2f", ci.Estimate), []float64{ci.Estimate, ci.Estimate}, []float64{0, peak}, gochart.ColorGreen, 3),
		},
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return render(w, f, c)
}

// ProportionInterval renders the cancellation interval against the target.
func ProportionInterval(w io.Writer, f Format, r analysis.ProportionIntervalReport) error {
	if r.Interval == nil {
		return ErrNoData
	}
	ci := r.Interval
	upper := max(ci.Upper*1.5, 0.25)
	target := line(fmt.Sprintf("Target (%s)", percent(r.Target)), []float64{r.Target, r.Target}, []float64{-0.5, 0.5}, gochart.ColorGreen, 2)
	target.Style.StrokeDashArray = []float64{5, 5}

	c := gochart.Chart{
		Title:      fmt.Sprintf("Cancellation rate %s, CI %.0f%% [%s, %s]", percent(ci.Estimate), r.Level*100, percent(ci.Lower), percent(ci.Upper)),
		Background: padding,
		Width:      width,
		Height:     height / 2,
		XAxis:      gochart.XAxis{Name: "Cancellation rate", Range: &gochart.ContinuousRange{Min: min(0, ci.Lower), Max: upper}},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: -0.5, Max: 0.5}},
		Series: []gochart.Series{
			target,
			line(fmt.Sprintf("CI %.0f%%", r.Level*100), []float64{ci.Lower, ci.Upper}, []float64{0, 0}, gochart.ColorRed, 6),
			dot("Observed", ci.Estimate, 0, gochart.ColorBlack),
		},
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return render(w, f, c)
}

// CategoryComparison renders each category interval as a horizontal error bar.
func CategoryComparison(w io.Writer, f Format, r analysis.CategoryComparisonReport) error {
	if len(r.Groups) < 2 {
		return ErrNoData
	}
	colors := []gochart.Series{}
	ticks := make([]gochart.Tick, 0, len(r.Groups))
	lo, hi := r.Groups[0].Interval.Lower, r.Groups[0].Interval.Upper
	for i, g := range r.Groups {
		y := float64(i + 1)
		color := gochart.GetDefaultColor(i)
		colors = append(colors,
			line(g.Category, []float64{g.Interval.Lower, g.Interval.Upper}, []float64{y, y}, color, 3),
			dot(fmt.Sprintf("%s mean %.2f", g.Category, g.Summary.Mean), g.Summary.Mean, y, color),
		)
		ticks = append(ticks, gochart.Tick{Value: y, Label: g.Category})
		lo, hi = min(lo, g.Interval.Lower), max(hi, g.Interval.Upper)
	}
	c := gochart.Chart{
		Title:      fmt.Sprintf("Mean order value with %.0f%% CI", r.Level*100),
		Background: padding,
		Width:      width,
		Height:     height,
		XAxis:      gochart.XAxis{Name: "Mean order value", Range: span(lo, hi, 0.1)},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: float64(len(r.Groups) + 1)}, Ticks: ticks},
		Series:     colors,
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return render(w, f, c)
}

// TTest renders the two group means.
func TTest(w io.Writer, f Format, r analysis.TTestReport) error {
	if r.Result == nil {
		return ErrNoData
	}
	values := []gochart.Value{
		{Label: fmt.Sprintf("%s (n=%d)", r.CategoryA, r.Result.A.N), Value: r.Result.A.Mean},
		{Label: fmt.Sprintf("%s (n=%d)", r.CategoryB, r.Result.B.N), Value: r.Result.B.Mean},
	}
	c := barChart(fmt.Sprintf("Mean order value: t = %.3f, p = %.3f", r.Result.T, r.Result.PValue), values)
	return render(w, f, c)
}

// ChiSquare renders the stacked status shares per service level.
func ChiSquare(w io.Writer, f Format, r analysis.ChiSquareReport) error {
	if r.Proportions == nil || len(r.Proportions.Levels) == 0 {
		return ErrNoData
	}
	p := r.Proportions
	bars := make([]gochart.StackedBar, 0, len(p.Levels))
	for i, level := range p.Levels {
		values := make([]gochart.Value, 0, len(p.Statuses))
		for j, status := range p.Statuses {
			share := p.Shares[i][j]
			if share == 0 {
				continue
			}
			values = append(values, gochart.Value{
				Label: fmt.Sprintf("%s %s", status, percent(share)),
				Value: share,
				Style: gochart.Style{FillColor: gochart.GetDefaultColor(j), StrokeColor: gochart.GetDefaultColor(j)},
			})
		}
		bars = append(bars, gochart.StackedBar{Name: level, Width: 80, Values: values})
	}
	title := "Status share by service level"
	if r.Result != nil {
		title = fmt.Sprintf("%s (chi2 = %.3f, p = %.3f)", title, r.Result.Statistic, r.Result.PValue)
	}
	c := gochart.StackedBarChart{
		Title:      title,
		Background: padding,
		Width:      max(width, len(bars)*140+160),
		Height:     height,
		BarSpacing: 40,
		Bars:       bars,
	}
	return render(w, f, c)
}
