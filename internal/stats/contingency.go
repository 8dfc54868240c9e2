package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Contingency is a cross-tabulation of two categorical variables.
// Labels are sorted; Counts[i][j] counts rows with Rows[i] and Cols[j].
type Contingency struct {
	Rows   []string    `json:"rows"`
	Cols   []string    `json:"cols"`
	Counts [][]float64 `json:"counts"`
}

// Crosstab counts co-occurrences of paired labels. Pairs with an empty label
// on either side are skipped.
func Crosstab(rowLabels, colLabels []string) Contingency {
	n := len(rowLabels)
	if len(colLabels) < n {
		n = len(colLabels)
	}
	rowIdx := map[string]int{}
	colIdx := map[string]int{}
	for i := 0; i < n; i++ {
		if rowLabels[i] == "" || colLabels[i] == "" {
			continue
		}
		rowIdx[rowLabels[i]] = 0
		colIdx[colLabels[i]] = 0
	}
	c := Contingency{Rows: sortedKeys(rowIdx), Cols: sortedKeys(colIdx)}
	for i, r := range c.Rows {
		rowIdx[r] = i
	}
	for j, col := range c.Cols {
		colIdx[col] = j
	}
	c.Counts = make([][]float64, len(c.Rows))
	for i := range c.Counts {
		c.Counts[i] = make([]float64, len(c.Cols))
	}
	for i := 0; i < n; i++ {
		if rowLabels[i] == "" || colLabels[i] == "" {
			continue
		}
		c.Counts[rowIdx[rowLabels[i]]][colIdx[colLabels[i]]]++
	}
	return c
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RowTotals sums each row.
func (c Contingency) RowTotals() []float64 {
	out := make([]float64, len(c.Rows))
	for i, row := range c.Counts {
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

// ColTotals sums each column.
func (c Contingency) ColTotals() []float64 {
	out := make([]float64, len(c.Cols))
	for _, row := range c.Counts {
		for j, v := range row {
			out[j] += v
		}
	}
	return out
}

// Total is the grand total.
func (c Contingency) Total() float64 {
	var total float64
	for _, v := range c.RowTotals() {
		total += v
	}
	return total
}

// RowProportions normalises every row to sum to one. Empty rows stay zero.
func (c Contingency) RowProportions() [][]float64 {
	totals := c.RowTotals()
	out := make([][]float64, len(c.Counts))
	for i, row := range c.Counts {
		out[i] = make([]float64, len(row))
		if totals[i] == 0 {
			continue
		}
		for j, v := range row {
			out[i][j] = v / totals[i]
		}
	}
	return out
}

// ChiSquareResult is the outcome of a chi-square test of independence.
type ChiSquareResult struct {
	Statistic float64     `json:"statistic"`
	PValue    float64     `json:"p_value"`
	DF        int         `json:"df"`
	Expected  [][]float64 `json:"expected"`
	Corrected bool        `json:"yates_corrected"`
}

// ChiSquareIndependence tests association between the row and column
// variables. With one degree of freedom the Yates continuity correction is
// applied, moving each observed count at most 0.5 towards its expectation.
func ChiSquareIndependence(c Contingency) (ChiSquareResult, error) {
	if len(c.Rows) < 2 || len(c.Cols) < 2 {
		return ChiSquareResult{}, ErrDegenerateTable
	}
	total := c.Total()
	if total == 0 {
		return ChiSquareResult{}, ErrInsufficientSample
	}
	rowTotals := c.RowTotals()
	colTotals := c.ColTotals()

	df := (len(c.Rows) - 1) * (len(c.Cols) - 1)
	res := ChiSquareResult{DF: df, Corrected: df == 1}
	res.Expected = make([][]float64, len(c.Rows))
	for i := range c.Rows {
		res.Expected[i] = make([]float64, len(c.Cols))
		for j := range c.Cols {
			expected := rowTotals[i] * colTotals[j] / total
			if expected == 0 {
				return ChiSquareResult{}, ErrDegenerateTable
			}
			res.Expected[i][j] = expected

			observed := c.Counts[i][j]
			if res.Corrected {
				diff := expected - observed
				observed += math.Copysign(math.Min(0.5, math.Abs(diff)), diff)
			}
			d := observed - expected
			res.Statistic += d * d / expected
		}
	}

	dist := distuv.ChiSquared{K: float64(df)}
	res.PValue = clamp01(dist.Survival(res.Statistic))
	return res, nil
}
