package analysis

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	"github.com/Additional-Code/salesboard/internal/stats"
)

const (
	warnEmpty    = "no orders match the selected filters"
	warnNoAmount = "no order values available for the selected filters"
	topStyles    = 5
)

// Filters lists the values present in the whole dataset.
func (s *Service) Filters(ctx context.Context) (FilterOptions, error) {
	_, span, t, err := s.snapshot(ctx, PageFilters, dataset.Filter{})
	defer span.End()
	if err != nil {
		return FilterOptions{}, err
	}
	out := FilterOptions{
		Base:          newBase(t),
		Categories:    t.Categories(),
		ServiceLevels: t.ServiceLevels(),
		Statuses:      t.Statuses(),
		Level:         LevelRange{Min: s.cfg.MinLevel, Max: s.cfg.MaxLevel, Default: s.cfg.DefaultLevel},
	}
	if min, max, ok := t.DateBounds(); ok {
		out.From, out.To = &min, &max
	}
	return out, nil
}

// Overview computes the headline metrics.
func (s *Service) Overview(ctx context.Context, f dataset.Filter) (OverviewReport, error) {
	ctx, span, t, err := s.snapshot(ctx, PageOverview, f)
	defer span.End()
	if err != nil {
		return OverviewReport{}, err
	}
	return cached(ctx, s, PageOverview, t.Version(), f.Key(), func() (OverviewReport, error) {
		out := OverviewReport{Base: newBase(t)}
		if t.Len() == 0 {
			out.warn(warnEmpty)
			return out, nil
		}
		if min, max, ok := t.DateBounds(); ok {
			out.PeriodStart, out.PeriodEnd = &min, &max
		}
		out.UniqueOrders = t.UniqueOrderIDs()
		out.Categories = len(t.Categories())
		out.CancelledOrders = t.Count(func(o entity.Order) bool { return s.isCancelled(o.Status) })
		out.CancellationRate = float64(out.CancelledOrders) / float64(t.Len())
		out.SuccessRate = 1 - out.CancellationRate
		out.NullDates = t.Count(func(o entity.Order) bool { return !o.HasDate() })
		return out, nil
	})
}

// Catalog returns the data dictionary, the category distribution and a fresh
// random sample. It is not cached so each call draws a new sample.
func (s *Service) Catalog(ctx context.Context, f dataset.Filter) (CatalogReport, error) {
	_, span, t, err := s.snapshot(ctx, PageCatalog, f)
	defer span.End()
	if err != nil {
		return CatalogReport{}, err
	}
	out := CatalogReport{Base: newBase(t), Dictionary: dataset.Columns}
	if t.Len() == 0 {
		out.warn(warnEmpty)
		return out, nil
	}
	out.Categories = rank(t.Tally(func(o entity.Order) string { return o.Category }), t.Len())
	out.Sample = t.Sample(s.cfg.SampleSize, s.newRand())
	return out, nil
}

// Exploratory computes the exploratory KPIs, top styles and status distribution.
func (s *Service) Exploratory(ctx context.Context, f dataset.Filter) (ExploratoryReport, error) {
	ctx, span, t, err := s.snapshot(ctx, PageExploratory, f)
	defer span.End()
	if err != nil {
		return ExploratoryReport{}, err
	}
	return cached(ctx, s, PageExploratory, t.Version(), f.Key(), func() (ExploratoryReport, error) {
		out := ExploratoryReport{Base: newBase(t)}
		if t.Len() == 0 {
			out.warn(warnEmpty)
			return out, nil
		}
		if summary, err := stats.Describe(t.Amounts()); err == nil {
			out.Amount = &summary
		} else {
			out.warn(warnNoAmount)
		}
		cancelled := t.Count(func(o entity.Order) bool { return s.isCancelled(o.Status) })
		out.CancellationRate = float64(cancelled) / float64(t.Len())

		if categories := rank(t.Tally(func(o entity.Order) string { return o.Category }), t.Len()); len(categories) > 0 {
			top := categories[0]
			out.TopCategory = &top
		}
		out.TopStyles = revenueByStyle(t, topStyles)
		out.Statuses = groupMinor(rank(t.Tally(func(o entity.Order) string { return o.Status }), t.Len()), s.cfg.MinorShareLimit)
		return out, nil
	})
}

// rank orders counts descending, ties by label.
func rank(counts map[string]int, total int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		c := Count{Label: label, Count: n}
		if total > 0 {
			c.Share = float64(n) / float64(total)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// groupMinor folds entries whose share is below limit into a trailing Outros entry.
func groupMinor(ranked []Count, limit float64) []Count {
	out := make([]Count, 0, len(ranked))
	other := Count{Label: OtherLabel}
	for _, c := range ranked {
		if c.Share < limit {
			other.Count += c.Count
			other.Share += c.Share
			continue
		}
		out = append(out, c)
	}
	if other.Count > 0 {
		out = append(out, other)
	}
	return out
}

func revenueByStyle(t *dataset.Table, limit int) []StyleRevenue {
	totals := make(map[string]*StyleRevenue)
	for _, o := range t.Records() {
		if o.Style == "" || !o.Amount.Valid {
			continue
		}
		r, ok := totals[o.Style]
		if !ok {
			r = &StyleRevenue{Style: o.Style, Revenue: decimal.Zero}
			totals[o.Style] = r
		}
		r.Revenue = r.Revenue.Add(o.Amount.Decimal)
		r.Orders++
	}
	out := make([]StyleRevenue, 0, len(totals))
	for _, r := range totals {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Style < out[j].Style
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
