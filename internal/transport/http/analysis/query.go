package analysis

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/pkg/errorbank"
)

const dateLayout = "2006-01-02"

// parseFilter reads from, to, category, service_level and status. List
// parameters may repeat or hold comma separated values.
func parseFilter(c echo.Context) (dataset.Filter, error) {
	var f dataset.Filter
	var err error
	if f.From, err = parseDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseDate(c, "to"); err != nil {
		return f, err
	}
	params := c.QueryParams()
	f.Categories = list(params["category"])
	f.ServiceLevels = list(params["service_level"])
	f.Statuses = list(params["status"])
	return f, nil
}

func parseDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, errorbank.BadRequest(
			name+" must be a date formatted as YYYY-MM-DD",
			errorbank.WithCause(err),
			errorbank.WithDetail(name, raw),
		)
	}
	return &t, nil
}

// parseLevel reads the confidence level. Values above 1 are percentages, so
// level=90 and level=0.9 are the same. Missing means the default.
func parseLevel(c echo.Context) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam("level"))
	if raw == "" {
		return 0, nil
	}
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil || level <= 0 {
		return 0, errorbank.BadRequest("level must be a positive number", errorbank.WithDetail("level", raw))
	}
	if level > 1 {
		level /= 100
	}
	return level, nil
}

func list(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
