package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/salesboard/internal/app"
	"github.com/Additional-Code/salesboard/internal/chart"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/service/analysis"
	"github.com/Additional-Code/salesboard/internal/stats"
)

var reportPages = []string{
	analysis.PageFilters,
	analysis.PageOverview,
	analysis.PageCatalog,
	analysis.PageExploratory,
	analysis.PageMeanInterval,
	analysis.PageProportionInterval,
	analysis.PageCategoryComparison,
	analysis.PageTTest,
	analysis.PageChiSquare,
}

// queryFlags are the filter and test parameters shared by report and chart.
type queryFlags struct {
	from, to      string
	categories    []string
	serviceLevels []string
	statuses      []string
	level         float64
	categoryA     string
	categoryB     string
}

func (q *queryFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&q.from, "from", "", "First order date to include (YYYY-MM-DD)")
	flags.StringVar(&q.to, "to", "", "Last order date to include (YYYY-MM-DD)")
	flags.StringSliceVar(&q.categories, "category", nil, "Categories to include")
	flags.StringSliceVar(&q.serviceLevels, "service-level", nil, "Service levels to include")
	flags.StringSliceVar(&q.statuses, "status", nil, "Order statuses to include")
	flags.Float64Var(&q.level, "level", 0, "Confidence level, e.g. 0.95 or 95 (defaults to ANALYSIS_DEFAULT_LEVEL)")
	flags.StringVar(&q.categoryA, "category-a", "", "First category to compare")
	flags.StringVar(&q.categoryB, "category-b", "", "Second category to compare")
}

func (q *queryFlags) query() (chart.Query, error) {
	out := chart.Query{
		Filter: dataset.Filter{
			Categories:    q.categories,
			ServiceLevels: q.serviceLevels,
			Statuses:      q.statuses,
		},
		Level:     q.level,
		CategoryA: q.categoryA,
		CategoryB: q.categoryB,
	}
	if out.Level > 1 {
		out.Level /= 100
	}
	var err error
	if out.Filter.From, err = parseDay("from", q.from); err != nil {
		return out, err
	}
	if out.Filter.To, err = parseDay("to", q.to); err != nil {
		return out, err
	}
	return out, out.Filter.Validate()
}

func parseDay(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}

func newReportCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:       "report [page]",
		Short:     "Print a dashboard page as tables",
		Long:      "Print a dashboard page as tables. Pages: " + strings.Join(reportPages, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: reportPages,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			var svc *analysis.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				return printReport(ctx, cmd.OutOrStdout(), svc, args[0], q)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newChartCmd() *cobra.Command {
	var (
		flags  queryFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:       "chart [name]",
		Short:     "Render a dashboard chart to a file",
		Long:      "Render a dashboard chart to a file. Charts: " + strings.Join(chart.Names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: chart.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			f, err := chart.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + "." + string(f)
			}
			var svc *analysis.Service
			opts := fx.Options(app.Core, fx.Populate(&svc))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				base, err := chart.Render(ctx, svc, args[0], f, q, file)
				if cerr := file.Close(); err == nil {
					err = cerr
				}
				printWarnings(cmd.ErrOrStderr(), base.Warnings)
				if err != nil {
					_ = os.Remove(out)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", out)
				return nil
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "png", "Output format: png or svg")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to <name>.<format>)")
	return cmd
}

func printReport(ctx context.Context, w io.Writer, svc *analysis.Service, page string, q chart.Query) error {
	f := q.Filter
	switch page {
	case analysis.PageFilters:
		r, err := svc.Filters(ctx)
		return emit(w, r.Base, err, func() error { return printFilters(w, r) })
	case analysis.PageOverview:
		r, err := svc.Overview(ctx, f)
		return emit(w, r.Base, err, func() error { return printOverview(w, r) })
	case analysis.PageCatalog:
		r, err := svc.Catalog(ctx, f)
		return emit(w, r.Base, err, func() error { return printCatalog(w, r) })
	case analysis.PageExploratory:
		r, err := svc.Exploratory(ctx, f)
		return emit(w, r.Base, err, func() error { return printExploratory(w, r) })
	case analysis.PageMeanInterval:
		r, err := svc.MeanInterval(ctx, f, q.Level)
		return emit(w, r.Base, err, func() error { return printMeanInterval(w, r) })
	case analysis.PageProportionInterval:
		r, err := svc.ProportionInterval(ctx, f, q.Level)
		return emit(w, r.Base, err, func() error { return printProportionInterval(w, r) })
	case analysis.PageCategoryComparison:
		r, err := svc.CategoryComparison(ctx, f, q.CategoryA, q.CategoryB, q.Level)
		return emit(w, r.Base, err, func() error { return printCategoryComparison(w, r) })
	case analysis.PageTTest:
		r, err := svc.TTest(ctx, f, q.CategoryA, q.CategoryB)
		return emit(w, r.Base, err, func() error { return printTTest(w, r) })
	case analysis.PageChiSquare:
		r, err := svc.ChiSquare(ctx, f)
		return emit(w, r.Base, err, func() error { return printChiSquare(w, r) })
	default:
		return fmt.Errorf("unknown page %q (want one of %s)", page, strings.Join(reportPages, ", "))
	}
}

func emit(w io.Writer, base analysis.Base, err error, show func() error) error {
	if err != nil {
		return err
	}
	if base.DatasetVersion != "" {
		fmt.Fprintf(w, "dataset %s, %d rows\n", base.DatasetVersion, base.Rows)
	}
	if err := show(); err != nil {
		return err
	}
	printWarnings(w, base.Warnings)
	return nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func table(w io.Writer, header []string, rows [][]string) error {
	t := tablewriter.NewWriter(w)
	t.Header(toAny(header)...)
	for _, row := range rows {
		if err := t.Append(toAny(row)...); err != nil {
			return err
		}
	}
	return t.Render()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func metrics(w io.Writer, rows [][]string) error {
	return table(w, []string{"Metric", "Value"}, rows)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

func day(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func printFilters(w io.Writer, r analysis.FilterOptions) error {
	return metrics(w, [][]string{
		{"First order", day(r.From)},
		{"Last order", day(r.To)},
		{"Categories", strings.Join(r.Categories, ", ")},
		{"Service levels", strings.Join(r.ServiceLevels, ", ")},
		{"Statuses", strings.Join(r.Statuses, ", ")},
		{"Confidence levels", fmt.Sprintf("%s to %s (default %s)", pct(r.Level.Min), pct(r.Level.Max), pct(r.Level.Default))},
	})
}

func printOverview(w io.Writer, r analysis.OverviewReport) error {
	return metrics(w, [][]string{
		{"Period", day(r.PeriodStart) + " to " + day(r.PeriodEnd)},
		{"Unique orders", strconv.Itoa(r.UniqueOrders)},
		{"Categories", strconv.Itoa(r.Categories)},
		{"Cancelled orders", strconv.Itoa(r.CancelledOrders)},
		{"Cancellation rate", pct(r.CancellationRate)},
		{"Success rate", pct(r.SuccessRate)},
		{"Orders without date", strconv.Itoa(r.NullDates)},
	})
}

func printCatalog(w io.Writer, r analysis.CatalogReport) error {
	var dict [][]string
	for _, c := range r.Dictionary {
		dict = append(dict, []string{c.Header, c.Kind, strconv.FormatBool(c.Required), c.Description})
	}
	if err := table(w, []string{"Column", "Kind", "Required", "Description"}, dict); err != nil {
		return err
	}
	if err := printCounts(w, "Category", r.Categories); err != nil {
		return err
	}
	var sample [][]string
	for _, o := range r.Sample {
		amount := "-"
		if v, ok := o.AmountFloat(); ok {
			amount = num(v)
		}
		sample = append(sample, []string{o.OrderID, day(o.OrderDate), o.Status, o.ServiceLevel, o.Category, amount})
	}
	return table(w, []string{"Order", "Date", "Status", "Service level", "Category", "Amount"}, sample)
}

func printCounts(w io.Writer, label string, counts []analysis.Count) error {
	var rows [][]string
	for _, c := range counts {
		rows = append(rows, []string{c.Label, strconv.Itoa(c.Count), pct(c.Share)})
	}
	return table(w, []string{label, "Orders", "Share"}, rows)
}

func printExploratory(w io.Writer, r analysis.ExploratoryReport) error {
	rows := [][]string{{"Cancellation rate", pct(r.CancellationRate)}}
	if r.Amount != nil {
		rows = append(rows, summaryRows(*r.Amount)...)
	}
	if r.TopCategory != nil {
		rows = append(rows, []string{"Top category", fmt.Sprintf("%s (%d orders)", r.TopCategory.Label, r.TopCategory.Count)})
	}
	if err := metrics(w, rows); err != nil {
		return err
	}
	var styles [][]string
	for _, s := range r.TopStyles {
		styles = append(styles, []string{s.Style, s.Revenue.StringFixed(2), strconv.Itoa(s.Orders)})
	}
	if err := table(w, []string{"Style", "Revenue", "Orders"}, styles); err != nil {
		return err
	}
	return printCounts(w, "Status", r.Statuses)
}

func summaryRows(s stats.Summary) [][]string {
	return [][]string{
		{"Orders with value", strconv.Itoa(s.N)},
		{"Mean value", num(s.Mean)},
		{"Standard deviation", num(s.Std)},
		{"Standard error", num(s.SEM)},
		{"Min / max", num(s.Min) + " / " + num(s.Max)},
	}
}

func intervalRow(ci stats.Interval, format func(float64) string) []string {
	return []string{fmt.Sprintf("CI %s", pct(ci.Level)), fmt.Sprintf("[%s, %s]", format(ci.Lower), format(ci.Upper))}
}

func printMeanInterval(w io.Writer, r analysis.MeanIntervalReport) error {
	rows := [][]string{{"Confidence level", pct(r.Level)}}
	if r.Summary != nil {
		rows = append(rows, summaryRows(*r.Summary)...)
	}
	if r.Interval != nil {
		rows = append(rows,
			intervalRow(*r.Interval, num),
			[]string{"Interval width", num(r.Width)},
			[]string{"t critical", strconv.FormatFloat(r.Interval.Critical, 'f', 4, 64)},
		)
	}
	return metrics(w, rows)
}

func printProportionInterval(w io.Writer, r analysis.ProportionIntervalReport) error {
	rows := [][]string{
		{"Confidence level", pct(r.Level)},
		{"Cancelled / total", fmt.Sprintf("%d / %d", r.Cancelled, r.Total)},
		{"Target", pct(r.Target)},
	}
	if r.Interval != nil {
		rows = append(rows,
			[]string{"Cancellation rate", pct(r.Interval.Estimate)},
			intervalRow(r.Interval.Interval, pct),
			[]string{"Verdict", r.Verdict},
			[]string{"Gap to target", fmt.Sprintf("%.2f p.p.", r.GapPoints)},
		)
	}
	return metrics(w, rows)
}

func printCategoryComparison(w io.Writer, r analysis.CategoryComparisonReport) error {
	var rows [][]string
	for _, g := range r.Groups {
		rows = append(rows, []string{g.Category, strconv.Itoa(g.Summary.N), num(g.Summary.Mean), num(g.Interval.Lower), num(g.Interval.Upper)})
	}
	if err := table(w, []string{"Category", "N", "Mean", "Lower", "Upper"}, rows); err != nil {
		return err
	}
	if r.Conclusion != "" {
		fmt.Fprintln(w, r.Conclusion)
	}
	return nil
}

func printTTest(w io.Writer, r analysis.TTestReport) error {
	if r.Result == nil {
		return nil
	}
	res := r.Result
	if err := table(w, []string{"Category", "N", "Mean", "Std"}, [][]string{
		{r.CategoryA, strconv.Itoa(res.A.N), num(res.A.Mean), num(res.A.Std)},
		{r.CategoryB, strconv.Itoa(res.B.N), num(res.B.Mean), num(res.B.Std)},
	}); err != nil {
		return err
	}
	if err := metrics(w, [][]string{
		{"t", strconv.FormatFloat(res.T, 'f', 4, 64)},
		{"Degrees of freedom", num(res.DF)},
		{"p-value", strconv.FormatFloat(res.PValue, 'g', 4, 64)},
		{"Reject H0 at " + pct(r.Alpha), strconv.FormatBool(r.Reject)},
	}); err != nil {
		return err
	}
	fmt.Fprintln(w, r.Conclusion)
	return nil
}

func printChiSquare(w io.Writer, r analysis.ChiSquareReport) error {
	if r.Observed != nil {
		header := append([]string{"Service level"}, r.Observed.Cols...)
		var rows [][]string
		for i, level := range r.Observed.Rows {
			row := []string{level}
			for _, v := range r.Observed.Counts[i] {
				row = append(row, strconv.FormatFloat(v, 'f', 0, 64))
			}
			rows = append(rows, row)
		}
		if err := table(w, header, rows); err != nil {
			return err
		}
	}
	if r.Result == nil {
		return nil
	}
	if err := metrics(w, [][]string{
		{"Chi-square", strconv.FormatFloat(r.Result.Statistic, 'f', 4, 64)},
		{"Degrees of freedom", strconv.Itoa(r.Result.DF)},
		{"p-value", strconv.FormatFloat(r.Result.PValue, 'g', 4, 64)},
		{"Reject H0 at " + pct(r.Alpha), strconv.FormatBool(r.Reject)},
	}); err != nil {
		return err
	}
	fmt.Fprintln(w, r.Conclusion)
	return nil
}
