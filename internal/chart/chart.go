// Package chart renders the report charts with go-chart. Styling is left at
// library defaults apart from titles and axis names.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when the report section behind a chart was skipped.
var ErrNoData = errors.New("no data to chart")

// Chart names.
const (
	NameCategories         = "categories"
	NameTopStyles          = "top-styles"
	NameStatus             = "status"
	NameMeanInterval       = "mean-interval"
	NameProportionInterval = "proportion-interval"
	NameCategoryComparison = "category-comparison"
	NameTTest              = "t-test"
	NameChiSquare          = "chi-square"
)

// Names lists every chart in display order.
var Names = []string{
	NameCategories, NameTopStyles, NameStatus, NameMeanInterval,
	NameProportionInterval, NameCategoryComparison, NameTTest, NameChiSquare,
}

// Known reports whether name is a chart.
func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Format is an output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts png or svg; empty means png.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", raw)
	}
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() gochart.RendererProvider {
	if f == SVG {
		return gochart.SVG
	}
	return gochart.PNG
}

const (
	width  = 900
	height = 450
)

var padding = gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}}

type renderable interface {
	Render(rp gochart.RendererProvider, w io.Writer) error
}

func render(w io.Writer, f Format, c renderable) error {
	if err := c.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// barChart builds a vertical bar chart wide enough for every bar.
func barChart(title string, values []gochart.Value) gochart.BarChart {
	const barWidth, spacing = 50, 30
	max := 0.0
	for _, v := range values {
		max = math.Max(max, v.Value)
	}
	if max <= 0 {
		max = 1
	}
	return gochart.BarChart{
		Title:      title,
		Background: padding,
		Width:      int(math.Max(width, float64(len(values)*(barWidth+spacing)+160))),
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: max * 1.1}},
		Bars:       values,
	}
}

func line(name string, xs, ys []float64, color drawing.Color, strokeWidth float64) gochart.ContinuousSeries {
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   gochart.Style{StrokeColor: color, StrokeWidth: strokeWidth},
	}
}

func dot(name string, x, y float64, color drawing.Color) gochart.ContinuousSeries {
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: []float64{x, x},
		YValues: []float64{y, y},
		Style:   gochart.Style{StrokeColor: drawing.ColorTransparent, DotWidth: 6, DotColor: color},
	}
}

// span returns a range around lo..hi padded by frac of its width.
func span(lo, hi, frac float64) *gochart.ContinuousRange {
	d := hi - lo
	if d <= 0 {
		d = math.Max(math.Abs(hi), 1)
	}
	return &gochart.ContinuousRange{Min: lo - d*frac, Max: hi + d*frac}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
