package dataset

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Additional-Code/salesboard/internal/entity"
)

// ErrInvalidRange is returned when the lower date bound is after the upper one.
var ErrInvalidRange = errors.New("date range start is after its end")

// Filter narrows the dataset. Empty selections impose no constraint.
type Filter struct {
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	ServiceLevels []string   `json:"service_levels,omitempty"`
	Statuses      []string   `json:"statuses,omitempty"`
}

// Validate checks the date range.
func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && day(*f.From).After(day(*f.To)) {
		return ErrInvalidRange
	}
	return nil
}

// Match reports whether a single row passes every constraint. Rows without a
// date are excluded once either bound is set. The upper bound covers its whole day.
func (f Filter) Match(o entity.Order) bool {
	if f.From != nil || f.To != nil {
		if !o.HasDate() {
			return false
		}
		d := *o.OrderDate
		if f.From != nil && d.Before(day(*f.From)) {
			return false
		}
		if f.To != nil && !d.Before(day(*f.To).AddDate(0, 0, 1)) {
			return false
		}
	}
	return contains(f.Categories, o.Category) &&
		contains(f.ServiceLevels, o.ServiceLevel) &&
		contains(f.Statuses, o.Status)
}

// Apply returns the filtered snapshot.
func (f Filter) Apply(t *Table) *Table {
	if f.IsZero() {
		return t
	}
	return t.Where(f.Match)
}

// IsZero reports whether the filter imposes no constraint.
func (f Filter) IsZero() bool {
	return f.From == nil && f.To == nil &&
		len(f.Categories) == 0 && len(f.ServiceLevels) == 0 && len(f.Statuses) == 0
}

// Key renders a canonical form of the filter, stable under selection order.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("from=")
	if f.From != nil {
		b.WriteString(day(*f.From).Format(time.DateOnly))
	}
	b.WriteString(";to=")
	if f.To != nil {
		b.WriteString(day(*f.To).Format(time.DateOnly))
	}
	b.WriteString(";cat=" + canonical(f.Categories))
	b.WriteString(";lvl=" + canonical(f.ServiceLevels))
	b.WriteString(";st=" + canonical(f.Statuses))
	return b.String()
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func contains(selected []string, v string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == v {
			return true
		}
	}
	return false
}

func canonical(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
