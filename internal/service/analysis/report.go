package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	"github.com/Additional-Code/salesboard/internal/stats"
)

// Proportion verdicts against the cancellation target.
const (
	VerdictCritical  = "critical"
	VerdictWithin    = "within"
	VerdictAttention = "attention"
)

// OtherLabel groups minor statuses.
const OtherLabel = "Outros"

// Base carries what every report shares.
type Base struct {
	DatasetVersion string   `json:"dataset_version"`
	Rows           int      `json:"rows"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (b *Base) warn(msg string) {
	b.Warnings = append(b.Warnings, msg)
}

// Warned reports whether any section was skipped.
func (b Base) Warned() bool {
	return len(b.Warnings) > 0
}

// Count is a labelled frequency.
type Count struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// StyleRevenue is the revenue of one product style.
type StyleRevenue struct {
	Style   string          `json:"style"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// Bin is one histogram bucket, closed on the left.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// FilterOptions lists the values a client can filter on.
type FilterOptions struct {
	Base
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Categories    []string   `json:"categories"`
	ServiceLevels []string   `json:"service_levels"`
	Statuses      []string   `json:"statuses"`
	Level         LevelRange `json:"level"`
}

// LevelRange bounds the accepted confidence levels.
type LevelRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// OverviewReport holds the headline metrics.
type OverviewReport struct {
	Base
	PeriodStart      *time.Time `json:"period_start,omitempty"`
	PeriodEnd        *time.Time `json:"period_end,omitempty"`
	UniqueOrders     int        `json:"unique_orders"`
	Categories       int        `json:"categories"`
	CancelledOrders  int        `json:"cancelled_orders"`
	CancellationRate float64    `json:"cancellation_rate"`
	SuccessRate      float64    `json:"success_rate"`
	NullDates        int        `json:"null_dates"`
}

// CatalogReport describes the dataset itself.
type CatalogReport struct {
	Base
	Dictionary []dataset.Column `json:"dictionary"`
	Categories []Count          `json:"categories"`
	Sample     []entity.Order   `json:"sample"`
}

// ExploratoryReport holds the exploratory KPIs.
type ExploratoryReport struct {
	Base
	Amount           *stats.Summary `json:"amount,omitempty"`
	CancellationRate float64        `json:"cancellation_rate"`
	TopCategory      *Count         `json:"top_category,omitempty"`
	TopStyles        []StyleRevenue `json:"top_styles,omitempty"`
	Statuses         []Count        `json:"statuses,omitempty"`
}

// MeanIntervalReport is the t interval for the mean order value.
type MeanIntervalReport struct {
	Base
	Level           float64         `json:"level"`
	Summary         *stats.Summary  `json:"summary,omitempty"`
	Interval        *stats.Interval `json:"interval,omitempty"`
	Width           float64         `json:"width"`
	AboveLowerBound bool            `json:"above_lower_bound"`
	Histogram       []Bin           `json:"histogram,omitempty"`
}

// ProportionIntervalReport is the normal interval for the cancellation rate.
type ProportionIntervalReport struct {
	Base
	Level     float64                   `json:"level"`
	Target    float64                   `json:"target"`
	Cancelled int                       `json:"cancelled"`
	Total     int                       `json:"total"`
	Interval  *stats.ProportionInterval `json:"interval,omitempty"`
	Verdict   string                    `json:"verdict,omitempty"`
	GapPoints float64                   `json:"gap_points"`
}

// GroupInterval is the mean interval of one category.
type GroupInterval struct {
	Category string         `json:"category"`
	Summary  stats.Summary  `json:"summary"`
	Interval stats.Interval `json:"interval"`
}

// CategoryComparisonReport compares two categories through separate intervals.
type CategoryComparisonReport struct {
	Base
	Level      float64         `json:"level"`
	CategoryA  string          `json:"category_a"`
	CategoryB  string          `json:"category_b"`
	Groups     []GroupInterval `json:"groups,omitempty"`
	Overlap    bool            `json:"overlap"`
	Higher     string          `json:"higher,omitempty"`
	Conclusion string          `json:"conclusion,omitempty"`
}

// TTestReport is Welch's t-test between two categories.
type TTestReport struct {
	Base
	Alpha      float64            `json:"alpha"`
	CategoryA  string             `json:"category_a"`
	CategoryB  string             `json:"category_b"`
	Result     *stats.TTestResult `json:"result,omitempty"`
	Reject     bool               `json:"reject"`
	Higher     string             `json:"higher,omitempty"`
	Conclusion string             `json:"conclusion,omitempty"`
}

// ChiSquareReport tests service level against order status.
type ChiSquareReport struct {
	Base
	Alpha       float64                `json:"alpha"`
	Observed    *stats.Contingency     `json:"observed,omitempty"`
	Result      *stats.ChiSquareResult `json:"result,omitempty"`
	Reject      bool                   `json:"reject"`
	Conclusion  string                 `json:"conclusion,omitempty"`
	Proportions *StatusProportions     `json:"proportions,omitempty"`
}

// StatusProportions is the share of the top statuses, plus Outros, per service level.
type StatusProportions struct {
	Levels   []string    `json:"levels"`
	Statuses []string    `json:"statuses"`
	Shares   [][]float64 `json:"shares"`
}
