package dataset

import (
	"math/rand"
	"sort"
	"time"

	"github.com/Additional-Code/salesboard/internal/entity"
)

// Table is an immutable, versioned snapshot of the order dataset.
type Table struct {
	records  []entity.Order
	version  string
	source   string
	loadedAt time.Time
}

// NewTable wraps records into a snapshot. The slice must not be modified afterwards.
func NewTable(records []entity.Order, version, source string, loadedAt time.Time) *Table {
	return &Table{records: records, version: version, source: source, loadedAt: loadedAt}
}

func (t *Table) Len() int            { return len(t.records) }
func (t *Table) Version() string     { return t.version }
func (t *Table) Source() string      { return t.source }
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Records exposes the rows for read-only iteration.
func (t *Table) Records() []entity.Order { return t.records }

// Where returns the subset of rows matching pred, keeping the snapshot version.
func (t *Table) Where(pred func(entity.Order) bool) *Table {
	out := make([]entity.Order, 0, len(t.records))
	for _, o := range t.records {
		if pred(o) {
			out = append(out, o)
		}
	}
	return &Table{records: out, version: t.version, source: t.source, loadedAt: t.loadedAt}
}

// Categories lists the distinct non-empty categories, sorted.
func (t *Table) Categories() []string {
	return t.distinct(func(o entity.Order) string { return o.Category })
}

// ServiceLevels lists the distinct non-empty service levels, sorted.
func (t *Table) ServiceLevels() []string {
	return t.distinct(func(o entity.Order) string { return o.ServiceLevel })
}

// Statuses lists the distinct non-empty statuses, sorted.
func (t *Table) Statuses() []string {
	return t.distinct(func(o entity.Order) string { return o.Status })
}

// UniqueOrderIDs counts distinct non-empty order identifiers.
func (t *Table) UniqueOrderIDs() int {
	return len(t.distinct(func(o entity.Order) string { return o.OrderID }))
}

// DateBounds returns the earliest and latest order dates. ok is false when no row has a date.
func (t *Table) DateBounds() (min, max time.Time, ok bool) {
	for _, o := range t.records {
		if !o.HasDate() {
			continue
		}
		d := *o.OrderDate
		if !ok || d.Before(min) {
			min = d
		}
		if !ok || d.After(max) {
			max = d
		}
		ok = true
	}
	return min, max, ok
}

// Amounts returns the non-null order values.
func (t *Table) Amounts() []float64 {
	return t.AmountsWhere(nil)
}

// AmountsWhere returns the non-null order values of rows matching pred. A nil pred matches every row.
func (t *Table) AmountsWhere(pred func(entity.Order) bool) []float64 {
	out := make([]float64, 0, len(t.records))
	for _, o := range t.records {
		if pred != nil && !pred(o) {
			continue
		}
		if v, ok := o.AmountFloat(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Count returns how many rows match pred.
func (t *Table) Count(pred func(entity.Order) bool) int {
	n := 0
	for _, o := range t.records {
		if pred(o) {
			n++
		}
	}
	return n
}

// Tally counts rows per key, skipping empty keys.
func (t *Table) Tally(key func(entity.Order) string) map[string]int {
	out := make(map[string]int)
	for _, o := range t.records {
		if k := key(o); k != "" {
			out[k]++
		}
	}
	return out
}

// Sample draws up to n rows without replacement.
func (t *Table) Sample(n int, rng *rand.Rand) []entity.Order {
	if n <= 0 || len(t.records) == 0 {
		return nil
	}
	if n > len(t.records) {
		n = len(t.records)
	}
	idx := rng.Perm(len(t.records))[:n]
	sort.Ints(idx)
	out := make([]entity.Order, 0, n)
	for _, i := range idx {
		out = append(out, t.records[i])
	}
	return out
}

func (t *Table) distinct(key func(entity.Order) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, o := range t.records {
		k := key(o)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
