package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a two-sided confidence interval around a point estimate.
type Interval struct {
	Level    float64 `json:"level"`
	Estimate float64 `json:"estimate"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Margin   float64 `json:"margin"`
	Critical float64 `json:"critical"`
}

// Width is the distance between the bounds.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Contains reports whether x lies inside the closed interval.
func (i Interval) Contains(x float64) bool {
	return x >= i.Lower && x <= i.Upper
}

// Overlaps reports whether two intervals share any point beyond a single boundary.
func (i Interval) Overlaps(o Interval) bool {
	return i.Upper > o.Lower && o.Upper > i.Lower
}

func newInterval(level, estimate, critical, scale float64) Interval {
	margin := critical * scale
	return Interval{
		Level:    level,
		Estimate: estimate,
		Lower:    estimate - margin,
		Upper:    estimate + margin,
		Margin:   margin,
		Critical: critical,
	}
}

// TCritical returns the two-sided Student t critical value for level and df.
func TCritical(level, df float64) float64 {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return t.Quantile((1 + level) / 2)
}

// ZCritical returns the two-sided standard normal critical value for level.
func ZCritical(level float64) float64 {
	return distuv.UnitNormal.Quantile((1 + level) / 2)
}

// MeanCI computes x̄ ± t·s/√n with n-1 degrees of freedom.
func MeanCI(sample []float64, level float64) (Interval, Summary, error) {
	if !validLevel(level) {
		return Interval{}, Summary{}, ErrInvalidLevel
	}
	summary, err := Describe(sample)
	if err != nil {
		return Interval{}, Summary{}, err
	}
	if summary.N < 2 {
		return Interval{}, summary, ErrInsufficientSample
	}
	critical := TCritical(level, float64(summary.N-1))
	return newInterval(level, summary.Mean, critical, summary.SEM), summary, nil
}

// ProportionInterval is a normal-approximation interval for a proportion.
type ProportionInterval struct {
	Interval
	Successes int  `json:"successes"`
	N         int  `json:"n"`
	NormalOK  bool `json:"normal_ok"`
}

// ExpectedSuccesses is n·p̂.
func (p ProportionInterval) ExpectedSuccesses() float64 {
	return float64(p.N) * p.Estimate
}

// ExpectedFailures is n·(1-p̂).
func (p ProportionInterval) ExpectedFailures() float64 {
	return float64(p.N) * (1 - p.Estimate)
}

// ProportionCI computes p̂ ± z·√(p̂(1-p̂)/n). The bounds are not clipped to [0,1].
func ProportionCI(successes, n int, level float64) (ProportionInterval, error) {
	if !validLevel(level) {
		return ProportionInterval{}, ErrInvalidLevel
	}
	if n <= 0 || successes < 0 || successes > n {
		return ProportionInterval{}, ErrInsufficientSample
	}
	pHat := float64(successes) / float64(n)
	scale := math.Sqrt(pHat*(1-pHat)) / math.Sqrt(float64(n))
	out := ProportionInterval{
		Interval:  newInterval(level, pHat, ZCritical(level), scale),
		Successes: successes,
		N:         n,
	}
	out.NormalOK = out.ExpectedSuccesses() >= 10 && out.ExpectedFailures() >= 10
	return out, nil
}
