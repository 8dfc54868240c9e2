package cli

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/salesboard/internal/service/analysis"
	"github.com/Additional-Code/salesboard/internal/stats"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"start", "migrate", "seed", "report", "chart", "worker"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	cmd, _, err := root.Find([]string{"import"})
	require.NoError(t, err)
	assert.Equal(t, "seed", cmd.Name())

	cmd, _, err = root.Find([]string{"migrate", "version"})
	require.NoError(t, err)
	assert.Equal(t, "version", cmd.Name())
}

func TestQueryFlags(t *testing.T) {
	q := queryFlags{from: "2022-04-01", to: "2022-04-30", categories: []string{"Set"}, level: 0.9, categoryA: "Set", categoryB: "kurta"}
	out, err := q.query()
	require.NoError(t, err)
	assert.Equal(t, "2022-04-01", out.Filter.From.Format("2006-01-02"))
	assert.Equal(t, []string{"Set"}, out.Filter.Categories)
	assert.Equal(t, 0.9, out.Level)
	assert.Equal(t, "kurta", out.CategoryB)

	out, err = (&queryFlags{level: 95}).query()
	require.NoError(t, err)
	assert.InDelta(t, 0.95, out.Level, 1e-12)

	_, err = (&queryFlags{from: "04/01/2022"}).query()
	assert.Error(t, err)

	_, err = (&queryFlags{from: "2022-04-30", to: "2022-04-01"}).query()
	assert.Error(t, err)
}

func TestReportCommandRejectsBadFlags(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"report", "overview", "--from", "yesterday"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestPrintOverview(t *testing.T) {
	var buf bytes.Buffer
	err := emit(&buf, analysis.Base{DatasetVersion: "v3", Rows: 40, Warnings: []string{"few rows"}}, nil, func() error {
		return printOverview(&buf, analysis.OverviewReport{UniqueOrders: 40, Categories: 2, CancelledOrders: 6, CancellationRate: 0.15, SuccessRate: 0.85})
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "dataset v3, 40 rows")
	assert.Contains(t, out, "15.00%")
	assert.Contains(t, out, "warning: few rows")
}

func TestEmitPropagatesErrors(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := emit(&buf, analysis.Base{}, assert.AnError, func() error { called = true; return nil })
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, called)
	assert.Zero(t, buf.Len())
}

func TestPrintTestReports(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTTest(&buf, analysis.TTestReport{
		Alpha:      0.05,
		CategoryA:  "Set",
		CategoryB:  "kurta",
		Result:     &stats.TTestResult{T: 12.5, DF: 37.2, PValue: 1e-9, A: stats.Summary{N: 20, Mean: 620}, B: stats.Summary{N: 20, Mean: 420}},
		Reject:     true,
		Conclusion: "Set has a higher mean order value",
	}))
	require.NoError(t, printChiSquare(&buf, analysis.ChiSquareReport{
		Alpha:      0.05,
		Observed:   &stats.Contingency{Rows: []string{"Expedited", "Standard"}, Cols: []string{"Cancelado", "Shipped"}, Counts: [][]float64{{5, 15}, {1, 19}}},
		Result:     &stats.ChiSquareResult{Statistic: 1.9, PValue: 0.17, DF: 1},
		Conclusion: "no evidence of association",
	}))
	require.NoError(t, printExploratory(&buf, analysis.ExploratoryReport{
		Amount:    &stats.Summary{N: 40, Mean: 520},
		TopStyles: []analysis.StyleRevenue{{Style: "JNE1", Revenue: decimal.NewFromInt(2950), Orders: 5}},
		Statuses:  []analysis.Count{{Label: "Shipped", Count: 34, Share: 0.85}},
	}))

	out := buf.String()
	assert.Contains(t, out, "kurta")
	assert.Contains(t, out, "Expedited")
	assert.Contains(t, out, "2950.00")
	assert.Contains(t, out, "no evidence of association")
}
