package chart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/service/analysis"
)

// ErrUnknown is returned for a chart name outside Names.
var ErrUnknown = errors.New("unknown chart")

// Query carries the parameters the chart reports accept.
type Query struct {
	Filter    dataset.Filter
	Level     float64
	CategoryA string
	CategoryB string
}

// Reports is the part of the analysis service the charts read from.
type Reports interface {
	Catalog(ctx context.Context, f dataset.Filter) (analysis.CatalogReport, error)
	Exploratory(ctx context.Context, f dataset.Filter) (analysis.ExploratoryReport, error)
	MeanInterval(ctx context.Context, f dataset.Filter, level float64) (analysis.MeanIntervalReport, error)
	ProportionInterval(ctx context.Context, f dataset.Filter, level float64) (analysis.ProportionIntervalReport, error)
	CategoryComparison(ctx context.Context, f dataset.Filter, a, b string, level float64) (analysis.CategoryComparisonReport, error)
	TTest(ctx context.Context, f dataset.Filter, a, b string) (analysis.TTestReport, error)
	ChiSquare(ctx context.Context, f dataset.Filter) (analysis.ChiSquareReport, error)
}

// Render computes the report behind the named chart and draws it to w. The
// report's Base is returned even when drawing fails so callers can surface
// its warnings.
func Render(ctx context.Context, svc Reports, name string, format Format, q Query, w io.Writer) (analysis.Base, error) {
	f := q.Filter
	switch name {
	case NameCategories:
		r, err := svc.Catalog(ctx, f)
		return draw(r.Base, err, func() error { return Categories(w, format, r) })
	case NameTopStyles:
		r, err := svc.Exploratory(ctx, f)
		return draw(r.Base, err, func() error { return TopStyles(w, format, r) })
	case NameStatus:
		r, err := svc.Exploratory(ctx, f)
		return draw(r.Base, err, func() error { return Status(w, format, r) })
	case NameMeanInterval:
		r, err := svc.MeanInterval(ctx, f, q.Level)
		return draw(r.Base, err, func() error { return MeanInterval(w, format, r) })
	case NameProportionInterval:
		r, err := svc.ProportionInterval(ctx, f, q.Level)
		return draw(r.Base, err, func() error { return ProportionInterval(w, format, r) })
	case NameCategoryComparison:
		r, err := svc.CategoryComparison(ctx, f, q.CategoryA, q.CategoryB, q.Level)
		return draw(r.Base, err, func() error { return CategoryComparison(w, format, r) })
	case NameTTest:
		r, err := svc.TTest(ctx, f, q.CategoryA, q.CategoryB)
		return draw(r.Base, err, func() error { return TTest(w, format, r) })
	case NameChiSquare:
		r, err := svc.ChiSquare(ctx, f)
		return draw(r.Base, err, func() error { return ChiSquare(w, format, r) })
	default:
		return analysis.Base{}, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

func draw(base analysis.Base, err error, fn func() error) (analysis.Base, error) {
	if err != nil {
		return base, err
	}
	return base, fn()
}
