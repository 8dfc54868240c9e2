package chart

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/salesboard/internal/service/analysis"
	"github.com/Additional-Code/salesboard/internal/stats"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, PNG, f)

	f, err = ParseFormat(" SVG ")
	require.NoError(t, err)
	assert.Equal(t, SVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(NameChiSquare))
	assert.False(t, Known("pie"))
}

func interval(lo, est, hi float64) stats.Interval {
	return stats.Interval{Level: 0.95, Estimate: est, Lower: lo, Upper: hi, Margin: (hi - lo) / 2}
}

func TestRenderers(t *testing.T) {
	exploratory := analysis.ExploratoryReport{
		TopStyles: []analysis.StyleRevenue{
			{Style: "JNE1", Revenue: decimal.NewFromInt(2950), Orders: 5},
			{Style: "SET2", Revenue: decimal.NewFromInt(1200), Orders: 2},
		},
		Statuses: []analysis.Count{
			{Label: "Shipped", Count: 30, Share: 0.75},
			{Label: "Cancelled", Count: 6, Share: 0.15},
			{Label: analysis.OtherLabel, Count: 4, Share: 0.10},
		},
	}
	proportion := stats.ProportionInterval{Interval: interval(0.05, 0.15, 0.25), Successes: 6, N: 40, NormalOK: true}
	ttest := stats.TTestResult{
		T: 3.2, DF: 30.5, PValue: 0.003,
		A: stats.Summary{N: 20, Mean: 620}, B: stats.Summary{N: 20, Mean: 420},
	}
	renderers := map[string]func(*bytes.Buffer, Format) error{
		NameCategories: func(b *bytes.Buffer, f Format) error {
			return Categories(b, f, analysis.CatalogReport{Categories: []analysis.Count{
				{Label: "Set", Count: 20}, {Label: "kurta", Count: 20},
			}})
		},
		NameTopStyles: func(b *bytes.Buffer, f Format) error { return TopStyles(b, f, exploratory) },
		NameStatus:    func(b *bytes.Buffer, f Format) error { return Status(b, f, exploratory) },
		NameMeanInterval: func(b *bytes.Buffer, f Format) error {
			iv := interval(480, 520, 560)
			return MeanInterval(b, f, analysis.MeanIntervalReport{
				Level:    0.95,
				Interval: &iv,
				Histogram: []analysis.Bin{
					{Lower: 300, Upper: 400, Count: 10},
					{Lower: 400, Upper: 500, Count: 12},
					{Lower: 500, Upper: 600, Count: 8},
				},
			})
		},
		NameProportionInterval: func(b *bytes.Buffer, f Format) error {
			return ProportionInterval(b, f, analysis.ProportionIntervalReport{Level: 0.95, Target: 0.05, Interval: &proportion})
		},
		NameCategoryComparison: func(b *bytes.Buffer, f Format) error {
			return CategoryComparison(b, f, analysis.CategoryComparisonReport{
				Level: 0.95,
				Groups: []analysis.GroupInterval{
					{Category: "Set", Summary: stats.Summary{N: 20, Mean: 620}, Interval: interval(600, 620, 640)},
					{Category: "kurta", Summary: stats.Summary{N: 20, Mean: 420}, Interval: interval(400, 420, 440)},
				},
			})
		},
		NameTTest: func(b *bytes.Buffer, f Format) error {
			return TTest(b, f, analysis.TTestReport{CategoryA: "Set", CategoryB: "kurta", Result: &ttest})
		},
		NameChiSquare: func(b *bytes.Buffer, f Format) error {
			return ChiSquare(b, f, analysis.ChiSquareReport{
				Result: &stats.ChiSquareResult{Statistic: 4.2, PValue: 0.12, DF: 2},
				Proportions: &analysis.StatusProportions{
					Levels:   []string{"Expedited", "Standard"},
					Statuses: []string{"Cancelled", "Shipped", analysis.OtherLabel},
					Shares:   [][]float64{{0.2, 0.8, 0}, {0.05, 0.85, 0.1}},
				},
			})
		},
	}
	require.Len(t, renderers, len(Names))

	for name, fn := range renderers {
		t.Run(name+"/png", func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, fn(&buf, PNG))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
		})
		t.Run(name+"/svg", func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, fn(&buf, SVG))
			assert.Contains(t, buf.String(), "<svg")
		})
	}
}

func TestSkippedSectionsHaveNoChart(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Categories(&buf, PNG, analysis.CatalogReport{}), ErrNoData)
	assert.ErrorIs(t, TopStyles(&buf, PNG, analysis.ExploratoryReport{}), ErrNoData)
	assert.ErrorIs(t, Status(&buf, PNG, analysis.ExploratoryReport{}), ErrNoData)
	assert.ErrorIs(t, MeanInterval(&buf, PNG, analysis.MeanIntervalReport{}), ErrNoData)
	assert.ErrorIs(t, ProportionInterval(&buf, PNG, analysis.ProportionIntervalReport{}), ErrNoData)
	assert.ErrorIs(t, CategoryComparison(&buf, PNG, analysis.CategoryComparisonReport{}), ErrNoData)
	assert.ErrorIs(t, TTest(&buf, PNG, analysis.TTestReport{}), ErrNoData)
	assert.ErrorIs(t, ChiSquare(&buf, PNG, analysis.ChiSquareReport{}), ErrNoData)
	assert.Zero(t, buf.Len())
}
