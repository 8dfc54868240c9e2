package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is the outcome of a two-sided Welch t-test.
type TTestResult struct {
	T      float64 `json:"t"`
	DF     float64 `json:"df"`
	PValue float64 `json:"p_value"`
	A      Summary `json:"a"`
	B      Summary `json:"b"`
}

// WelchTTest tests equality of means without assuming equal variances.
// Each sample needs at least two observations.
func WelchTTest(a, b []float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, ErrInsufficientSample
	}
	sa, err := Describe(a)
	if err != nil {
		return TTestResult{}, err
	}
	sb, err := Describe(b)
	if err != nil {
		return TTestResult{}, err
	}

	va := sa.Std * sa.Std / float64(sa.N)
	vb := sb.Std * sb.Std / float64(sb.N)
	se := math.Sqrt(va + vb)
	if se == 0 {
		return TTestResult{A: sa, B: sb}, ErrZeroVariance
	}

	t := (sa.Mean - sb.Mean) / se
	df := (va + vb) * (va + vb) / (va*va/float64(sa.N-1) + vb*vb/float64(sb.N-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := clamp01(2 * dist.Survival(math.Abs(t)))

	return TTestResult{T: t, DF: df, PValue: p, A: sa, B: sb}, nil
}
