package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	"github.com/Additional-Code/salesboard/internal/stats"
	"github.com/Additional-Code/salesboard/pkg/errorbank"
)

const histogramBins = 20

// MeanInterval builds the t interval for the mean order value.
func (s *Service) MeanInterval(ctx context.Context, f dataset.Filter, level float64) (MeanIntervalReport, error) {
	level, err := s.ResolveLevel(level)
	if err != nil {
		return MeanIntervalReport{}, err
	}
	ctx, span, t, err := s.snapshot(ctx, PageMeanInterval, f)
	defer span.End()
	if err != nil {
		return MeanIntervalReport{}, err
	}
	return cached(ctx, s, PageMeanInterval, t.Version(), levelKey(f, level), func() (MeanIntervalReport, error) {
		out := MeanIntervalReport{Base: newBase(t), Level: level}
		amounts := t.Amounts()
		ci, summary, err := stats.MeanCI(amounts, level)
		if err != nil {
			out.warn(fmt.Sprintf("a mean confidence interval needs at least 2 order values, found %d", len(amounts)))
			return out, nil
		}
		out.Summary = &summary
		out.Interval = &ci
		out.Width = ci.Width()
		out.AboveLowerBound = summary.Mean > ci.Lower
		out.Histogram = histogram(amounts, histogramBins)
		return out, nil
	})
}

// ProportionInterval builds the normal interval for the cancellation rate and
// judges it against the configured target.
func (s *Service) ProportionInterval(ctx context.Context, f dataset.Filter, level float64) (ProportionIntervalReport, error) {
	level, err := s.ResolveLevel(level)
	if err != nil {
		return ProportionIntervalReport{}, err
	}
	ctx, span, t, err := s.snapshot(ctx, PageProportionInterval, f)
	defer span.End()
	if err != nil {
		return ProportionIntervalReport{}, err
	}
	return cached(ctx, s, PageProportionInterval, t.Version(), levelKey(f, level), func() (ProportionIntervalReport, error) {
		out := ProportionIntervalReport{
			Base:   newBase(t),
			Level:  level,
			Target: s.cfg.CancelTarget,
			Total:  t.Len(),
		}
		out.Cancelled = t.Count(func(o entity.Order) bool { return s.isCancelled(o.Status) })
		ci, err := stats.ProportionCI(out.Cancelled, out.Total, level)
		if err != nil {
			out.warn(warnEmpty)
			return out, nil
		}
		out.Interval = &ci
		out.Verdict = verdict(ci.Interval, s.cfg.CancelTarget)
		out.GapPoints = math.Abs(ci.Estimate-s.cfg.CancelTarget) * 100
		if !ci.NormalOK {
			out.warn(fmt.Sprintf("normal approximation is weak: n·p̂ = %.0f and n·(1-p̂) = %.0f should both be at least 10",
				ci.ExpectedSuccesses(), ci.ExpectedFailures()))
		}
		return out, nil
	})
}

// CategoryComparison compares two categories through their separate mean
// intervals. Empty names default to the first two categories of the filtered set.
func (s *Service) CategoryComparison(ctx context.Context, f dataset.Filter, a, b string, level float64) (CategoryComparisonReport, error) {
	level, err := s.ResolveLevel(level)
	if err != nil {
		return CategoryComparisonReport{}, err
	}
	if err := distinctPair(a, b); err != nil {
		return CategoryComparisonReport{}, err
	}
	ctx, span, t, err := s.snapshot(ctx, PageCategoryComparison, f)
	defer span.End()
	if err != nil {
		return CategoryComparisonReport{}, err
	}
	a, b, ok := pickPair(t.Categories(), a, b)
	key := levelKey(f, level) + ";a=" + a + ";b=" + b
	return cached(ctx, s, PageCategoryComparison, t.Version(), key, func() (CategoryComparisonReport, error) {
		out := CategoryComparisonReport{Base: newBase(t), Level: level, CategoryA: a, CategoryB: b}
		if !ok {
			out.warn("at least 2 categories are required to compare intervals")
			return out, nil
		}
		for _, category := range []string{a, b} {
			sample := t.AmountsWhere(func(o entity.Order) bool { return o.Category == category })
			ci, summary, err := stats.MeanCI(sample, level)
			if err != nil {
				out.warn(fmt.Sprintf("category %q has fewer than 2 order values", category))
				continue
			}
			out.Groups = append(out.Groups, GroupInterval{Category: category, Summary: summary, Interval: ci})
		}
		if len(out.Groups) < 2 {
			out.Groups = nil
			return out, nil
		}
		ga, gb := out.Groups[0], out.Groups[1]
		out.Overlap = ga.Interval.Overlaps(gb.Interval)
		out.Higher = a
		if gb.Summary.Mean > ga.Summary.Mean {
			out.Higher = b
		}
		pct := strconv.FormatFloat(level*100, 'f', -1, 64)
		if out.Overlap {
			out.Conclusion = fmt.Sprintf("the %s%% intervals of %s and %s overlap; the difference in mean order value may be due to sampling", pct, a, b)
		} else {
			out.Conclusion = fmt.Sprintf("the %s%% intervals do not overlap; %s has a higher mean order value", pct, out.Higher)
		}
		return out, nil
	})
}

func verdict(ci stats.Interval, target float64) string {
	switch {
	case ci.Lower > target:
		return VerdictCritical
	case ci.Upper <= target:
		return VerdictWithin
	default:
		return VerdictAttention
	}
}

func levelKey(f dataset.Filter, level float64) string {
	return f.Key() + ";level=" + strconv.FormatFloat(level, 'f', -1, 64)
}

func distinctPair(a, b string) error {
	if a != "" && a == b {
		return errorbank.BadRequest("the two categories must differ", errorbank.WithDetail("category", a))
	}
	return nil
}

// pickPair fills empty names from the available categories in order.
func pickPair(available []string, a, b string) (string, string, bool) {
	next := func(skip string) string {
		for _, c := range available {
			if c != skip {
				return c
			}
		}
		return ""
	}
	if a == "" {
		a = next(b)
	}
	if b == "" {
		b = next(a)
	}
	return a, b, a != "" && b != "" && a != b
}

// histogram buckets values into equal-width bins spanning their range.
func histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(sorted)}}
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram excludes the upper edge of the last bin.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Upper = hi
	return out
}
