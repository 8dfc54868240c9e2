package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	"github.com/Additional-Code/salesboard/internal/stats"
)

const topStatuses = 3

// TTest runs Welch's t-test on the order values of two categories. Empty
// names default to the first two categories of the filtered set.
func (s *Service) TTest(ctx context.Context, f dataset.Filter, a, b string) (TTestReport, error) {
	if err := distinctPair(a, b); err != nil {
		return TTestReport{}, err
	}
	ctx, span, t, err := s.snapshot(ctx, PageTTest, f)
	defer span.End()
	if err != nil {
		return TTestReport{}, err
	}
	a, b, ok := pickPair(t.Categories(), a, b)
	key := f.Key() + ";a=" + a + ";b=" + b
	return cached(ctx, s, PageTTest, t.Version(), key, func() (TTestReport, error) {
		out := TTestReport{Base: newBase(t), Alpha: s.cfg.Alpha, CategoryA: a, CategoryB: b}
		if !ok {
			out.warn("not enough categories to run the t-test")
			return out, nil
		}
		sampleA := t.AmountsWhere(func(o entity.Order) bool { return o.Category == a })
		sampleB := t.AmountsWhere(func(o entity.Order) bool { return o.Category == b })
		res, err := stats.WelchTTest(sampleA, sampleB)
		switch {
		case errors.Is(err, stats.ErrInsufficientSample):
			out.warn("one of the categories has fewer than 2 observations; the t-test cannot be run")
			return out, nil
		case errors.Is(err, stats.ErrZeroVariance):
			out.warn("both categories have constant order values; the t-test is undefined")
			return out, nil
		case err != nil:
			return out, err
		}

		out.Result = &res
		out.Reject = stats.Reject(res.PValue, s.cfg.Alpha)
		out.Higher = a
		if res.B.Mean > res.A.Mean {
			out.Higher = b
		}
		alpha := strconv.FormatFloat(s.cfg.Alpha, 'f', -1, 64)
		if out.Reject {
			out.Conclusion = fmt.Sprintf("reject H0 (p <= %s): mean order value differs between %s and %s; %s is higher", alpha, a, b, out.Higher)
		} else {
			out.Conclusion = fmt.Sprintf("do not reject H0 (p > %s): no evidence of a difference in mean order value between %s and %s", alpha, a, b)
		}
		return out, nil
	})
}

// ChiSquare tests independence between service level and order status.
func (s *Service) ChiSquare(ctx context.Context, f dataset.Filter) (ChiSquareReport, error) {
	ctx, span, t, err := s.snapshot(ctx, PageChiSquare, f)
	defer span.End()
	if err != nil {
		return ChiSquareReport{}, err
	}
	return cached(ctx, s, PageChiSquare, t.Version(), f.Key(), func() (ChiSquareReport, error) {
		out := ChiSquareReport{Base: newBase(t), Alpha: s.cfg.Alpha}
		levels := make([]string, 0, t.Len())
		statuses := make([]string, 0, t.Len())
		for _, o := range t.Records() {
			levels = append(levels, o.ServiceLevel)
			statuses = append(statuses, o.Status)
		}
		observed := stats.Crosstab(levels, statuses)
		res, err := stats.ChiSquareIndependence(observed)
		if errors.Is(err, stats.ErrDegenerateTable) {
			out.warn("not enough data for the chi-square test: at least 2 service levels and 2 statuses are required")
			return out, nil
		}
		if err != nil {
			return out, err
		}

		out.Observed = &observed
		out.Result = &res
		out.Reject = stats.Reject(res.PValue, s.cfg.Alpha)
		alpha := strconv.FormatFloat(s.cfg.Alpha, 'f', -1, 64)
		if out.Reject {
			out.Conclusion = fmt.Sprintf("reject H0 (p <= %s): order status is associated with the service level", alpha)
		} else {
			out.Conclusion = fmt.Sprintf("do not reject H0 (p > %s): no evidence of association between service level and order status", alpha)
		}
		out.Proportions = statusProportions(t, topStatuses)
		return out, nil
	})
}

// statusProportions keeps the top statuses, folds the rest into Outros and
// normalises each service level row.
func statusProportions(t *dataset.Table, top int) *StatusProportions {
	ranked := rank(t.Tally(func(o entity.Order) string { return o.Status }), t.Len())
	keep := make(map[string]bool, top)
	for i := 0; i < len(ranked) && i < top; i++ {
		keep[ranked[i].Label] = true
	}
	levels := make([]string, 0, t.Len())
	grouped := make([]string, 0, t.Len())
	for _, o := range t.Records() {
		if o.ServiceLevel == "" || o.Status == "" {
			continue
		}
		status := o.Status
		if !keep[status] {
			status = OtherLabel
		}
		levels = append(levels, o.ServiceLevel)
		grouped = append(grouped, status)
	}
	ct := stats.Crosstab(levels, grouped)
	return &StatusProportions{Levels: ct.Rows, Statuses: ct.Cols, Shares: ct.RowProportions()}
}
