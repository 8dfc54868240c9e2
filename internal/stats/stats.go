// Package stats holds the textbook estimators behind the dashboard: sample
// summaries, t and normal confidence intervals, Welch's t-test and the
// chi-square test of independence. Distribution functions come from gonum.
package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientSample is returned when a computation needs more observations.
	ErrInsufficientSample = errors.New("insufficient sample size")
	// ErrInvalidLevel is returned for confidence levels outside (0,1).
	ErrInvalidLevel = errors.New("confidence level must be between 0 and 1")
	// ErrZeroVariance is returned when both samples of a t-test are constant.
	ErrZeroVariance = errors.New("samples have zero variance")
	// ErrDegenerateTable is returned for contingency tables smaller than 2x2.
	ErrDegenerateTable = errors.New("contingency table needs at least two rows and two columns")
)

// Summary describes a numeric sample.
type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	SEM  float64 `json:"sem"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Describe summarises a sample. Std and SEM use the n-1 denominator and are
// zero for a single observation.
func Describe(sample []float64) (Summary, error) {
	if len(sample) == 0 {
		return Summary{}, ErrInsufficientSample
	}
	s := Summary{N: len(sample), Min: sample[0], Max: sample[0]}
	for _, v := range sample[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	if s.N == 1 {
		s.Mean = sample[0]
		return s, nil
	}
	s.Mean, s.Std = stat.MeanStdDev(sample, nil)
	s.SEM = s.Std / math.Sqrt(float64(s.N))
	return s, nil
}

// Reject reports whether a p-value rejects the null hypothesis at alpha.
func Reject(pValue, alpha float64) bool {
	return pValue <= alpha
}

func validLevel(level float64) bool {
	return level > 0 && level < 1 && !math.IsNaN(level)
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
