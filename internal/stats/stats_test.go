package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneToTen() []float64 {
	return []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
}

func TestDescribe(t *testing.T) {
	s, err := Describe(oneToTen())
	require.NoError(t, err)
	assert.Equal(t, 10, s.N)
	assert.InDelta(t, 5.5, s.Mean, 1e-12)
	assert.InDelta(t, 3.0276503540974917, s.Std, 1e-9)
	assert.InDelta(t, 0.9574271077563381, s.SEM, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 10.0, s.Max)

	single, err := Describe([]float64{42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, single.Mean)
	assert.Zero(t, single.Std)

	_, err = Describe(nil)
	assert.ErrorIs(t, err, ErrInsufficientSample)
}

func TestMeanCIMatchesTextbook(t *testing.T) {
	ci, summary, err := MeanCI(oneToTen(), 0.95)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.N)
	assert.InDelta(t, 2.2621571627409915, ci.Critical, 1e-6)
	assert.InDelta(t, 3.3341494102783162, ci.Lower, 1e-6)
	assert.InDelta(t, 7.6658505897216838, ci.Upper, 1e-6)
	assert.True(t, ci.Contains(summary.Mean))
}

func TestMeanCIRequiresTwoObservations(t *testing.T) {
	_, _, err := MeanCI([]float64{3}, 0.95)
	assert.ErrorIs(t, err, ErrInsufficientSample)

	_, _, err = MeanCI(oneToTen(), 1)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestIntervalsNarrowWithLowerLevel(t *testing.T) {
	sample := []float64{120.5, 99.9, 310, 45.2, 87.1, 150, 230.75, 64}
	prev := math.Inf(1)
	for _, level := range []float64{0.99, 0.95, 0.90, 0.85, 0.80} {
		ci, summary, err := MeanCI(sample, level)
		require.NoError(t, err)
		assert.True(t, ci.Contains(summary.Mean), "level %v", level)
		assert.Less(t, ci.Width(), prev, "level %v", level)
		prev = ci.Width()
	}

	prev = math.Inf(1)
	for _, level := range []float64{0.99, 0.95, 0.90, 0.85, 0.80} {
		ci, err := ProportionCI(37, 240, level)
		require.NoError(t, err)
		assert.True(t, ci.Contains(ci.Estimate), "level %v", level)
		assert.Less(t, ci.Width(), prev, "level %v", level)
		prev = ci.Width()
	}
}

func TestProportionCI(t *testing.T) {
	ci, err := ProportionCI(15, 100, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, ci.Estimate, 1e-12)
	assert.InDelta(t, 1.959963984540054, ci.Critical, 1e-6)
	assert.InDelta(t, 0.0800152874, ci.Lower, 1e-6)
	assert.InDelta(t, 0.2199847126, ci.Upper, 1e-6)
	assert.True(t, ci.NormalOK)
	assert.InDelta(t, 15, ci.ExpectedSuccesses(), 1e-9)
	assert.InDelta(t, 85, ci.ExpectedFailures(), 1e-9)

	small, err := ProportionCI(2, 40, 0.95)
	require.NoError(t, err)
	assert.False(t, small.NormalOK)

	_, err = ProportionCI(0, 0, 0.95)
	assert.ErrorIs(t, err, ErrInsufficientSample)
	_, err = ProportionCI(5, 4, 0.95)
	assert.ErrorIs(t, err, ErrInsufficientSample)
}

func TestIntervalOverlap(t *testing.T) {
	a := Interval{Lower: 10, Upper: 20}
	assert.True(t, a.Overlaps(Interval{Lower: 15, Upper: 30}))
	assert.False(t, a.Overlaps(Interval{Lower: 20, Upper: 30}))
	assert.False(t, a.Overlaps(Interval{Lower: 0, Upper: 9}))
}

func TestWelchTTest(t *testing.T) {
	res, err := WelchTTest([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})
	require.NoError(t, err)
	assert.InDelta(t, -1.8973665961010275, res.T, 1e-9)
	assert.InDelta(t, 5.882352941176471, res.DF, 1e-9)
	assert.Greater(t, res.PValue, 0.05)
	assert.Less(t, res.PValue, 0.2)
	assert.Equal(t, 3.0, res.A.Mean)
	assert.Equal(t, 6.0, res.B.Mean)

	far, err := WelchTTest([]float64{100, 101, 99, 100.5, 99.5}, []float64{10, 11, 9, 10.5, 9.5})
	require.NoError(t, err)
	assert.True(t, Reject(far.PValue, 0.05))
}

func TestWelchTTestEdgeCases(t *testing.T) {
	_, err := WelchTTest([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientSample)

	_, err = WelchTTest([]float64{5, 5, 5}, []float64{5, 5})
	assert.ErrorIs(t, err, ErrZeroVariance)
}

func TestCrosstab(t *testing.T) {
	rows := []string{"Expedited", "Standard", "Standard", "Expedited", "", "Standard"}
	cols := []string{"Shipped", "Cancelado", "Shipped", "Shipped", "Shipped", "Shipped"}
	c := Crosstab(rows, cols)

	assert.Equal(t, []string{"Expedited", "Standard"}, c.Rows)
	assert.Equal(t, []string{"Cancelado", "Shipped"}, c.Cols)
	assert.Equal(t, [][]float64{{0, 2}, {1, 2}}, c.Counts)
	assert.Equal(t, 5.0, c.Total())
	assert.Equal(t, []float64{2, 3}, c.RowTotals())
	assert.Equal(t, []float64{1, 4}, c.ColTotals())

	props := c.RowProportions()
	assert.InDelta(t, 1.0, props[0][1], 1e-12)
	assert.InDelta(t, 1.0/3, props[1][0], 1e-12)
}

func TestChiSquareWithYatesCorrection(t *testing.T) {
	c := Contingency{
		Rows:   []string{"a", "b"},
		Cols:   []string{"x", "y"},
		Counts: [][]float64{{10, 20}, {30, 40}},
	}
	res, err := ChiSquareIndependence(c)
	require.NoError(t, err)
	assert.True(t, res.Corrected)
	assert.Equal(t, 1, res.DF)
	assert.InDelta(t, 0.4464285714, res.Statistic, 1e-8)
	assert.InDelta(t, 12.0, res.Expected[0][0], 1e-12)
	assert.InDelta(t, 42.0, res.Expected[1][1], 1e-12)
	assert.Greater(t, res.PValue, 0.4)
	assert.Less(t, res.PValue, 0.6)
}

func TestChiSquareProperties(t *testing.T) {
	tables := [][][]float64{
		{{10, 10, 10}, {10, 10, 10}},
		{{50, 1, 3}, {2, 40, 7}, {9, 9, 30}},
		{{1, 0}, {0, 1}},
	}
	for _, counts := range tables {
		c := Contingency{Counts: counts}
		for i := range counts {
			c.Rows = append(c.Rows, string(rune('a'+i)))
		}
		for j := range counts[0] {
			c.Cols = append(c.Cols, string(rune('x'+j)))
		}
		res, err := ChiSquareIndependence(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Statistic, 0.0)
		assert.GreaterOrEqual(t, res.PValue, 0.0)
		assert.LessOrEqual(t, res.PValue, 1.0)
	}

	uniform, err := ChiSquareIndependence(Contingency{
		Rows: []string{"a", "b"}, Cols: []string{"x", "y", "z"},
		Counts: [][]float64{{10, 10, 10}, {10, 10, 10}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0, uniform.Statistic, 1e-12)
	assert.InDelta(t, 1, uniform.PValue, 1e-9)
	assert.False(t, uniform.Corrected)
}

func TestChiSquareRejectsDegenerateTables(t *testing.T) {
	_, err := ChiSquareIndependence(Contingency{Rows: []string{"a"}, Cols: []string{"x", "y"}, Counts: [][]float64{{1, 2}}})
	assert.ErrorIs(t, err, ErrDegenerateTable)
}

func TestReject(t *testing.T) {
	assert.True(t, Reject(0.05, 0.05))
	assert.True(t, Reject(0.001, 0.05))
	assert.False(t, Reject(0.051, 0.05))
}
