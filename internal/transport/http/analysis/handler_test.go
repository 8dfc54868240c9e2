package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
	service "github.com/Additional-Code/salesboard/internal/service/analysis"
)

type stubLoader struct {
	table *dataset.Table
	err   error
}

func (l stubLoader) Load(context.Context) (*dataset.Table, error) {
	return l.table, l.err
}

func fixture() *dataset.Table {
	var records []entity.Order
	add := func(i int, category, level, status string, amount float64) {
		when := time.Date(2022, 4, 1+i%28, 0, 0, 0, 0, time.UTC)
		records = append(records, entity.Order{
			OrderID:      fmt.Sprintf("171-%04d", len(records)),
			OrderDate:    &when,
			Category:     category,
			ServiceLevel: level,
			Status:       status,
			Style:        fmt.Sprintf("%s%d", category, i%3),
			Amount:       decimal.NewNullDecimal(decimal.NewFromFloat(amount)),
		})
	}
	for i := 0; i < 15; i++ {
		status := "Shipped"
		if i%5 == 0 {
			status = "Cancelled"
		}
		add(i, "Set", "Expedited", status, 600+float64(i%4)*15)
		add(i, "kurta", "Standard", "Shipped", 400+float64(i%3)*20)
	}
	return dataset.NewTable(records, "v7", "test", time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC))
}

func newServer(t *testing.T, loader service.TableLoader) *echo.Echo {
	t.Helper()
	cfg := config.Config{
		Dataset: config.Dataset{CancelledLabel: "Cancelled"},
		Analysis: config.Analysis{
			Alpha:           0.05,
			CancelTarget:    0.10,
			DefaultLevel:    0.95,
			MinLevel:        0.80,
			MaxLevel:        0.99,
			SampleSize:      5,
			MinorShareLimit: 0.05,
		},
	}
	e := echo.New()
	Register(e, NewHandler(service.New(loader, nil, cfg, zap.NewNop()), zap.NewNop()))
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestReportEndpoints(t *testing.T) {
	e := newServer(t, stubLoader{table: fixture()})
	for _, target := range []string{
		"/api/v1/filters",
		"/api/v1/overview",
		"/api/v1/catalog",
		"/api/v1/exploratory",
		"/api/v1/intervals/mean?level=0.9",
		"/api/v1/intervals/proportion?level=95",
		"/api/v1/intervals/categories?category_a=Set&category_b=kurta",
		"/api/v1/tests/t-test",
		"/api/v1/tests/chi-square",
		"/api/v1/charts",
	} {
		rec, body := get(t, e, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.True(t, body.Success, target)
	}
}

func TestOverviewAppliesFilters(t *testing.T) {
	e := newServer(t, stubLoader{table: fixture()})

	rec, body := get(t, e, "/api/v1/overview?category=Set&service_level=Expedited,Standard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v7", body.Meta["dataset_version"])

	var out service.OverviewReport
	require.NoError(t, json.Unmarshal(body.Data, &out))
	assert.Equal(t, 15, out.Rows)
	assert.Equal(t, 3, out.CancelledOrders)
	assert.InDelta(t, 0.2, out.CancellationRate, 1e-9)
}

func TestEmptySelectionCarriesWarnings(t *testing.T) {
	e := newServer(t, stubLoader{table: fixture()})

	rec, body := get(t, e, "/api/v1/intervals/mean?category=Unknown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body.Meta["warnings"])

	rec, body = get(t, e, "/api/v1/charts/mean-interval?category=Unknown")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unprocessable_entity", body.Error.Kind)
	assert.NotEmpty(t, body.Error.Details["warnings"])
}

func TestBadRequests(t *testing.T) {
	e := newServer(t, stubLoader{table: fixture()})
	cases := map[string]int{
		"/api/v1/overview?from=01/04/2022":                           http.StatusBadRequest,
		"/api/v1/overview?from=2022-04-10&to=2022-04-01":             http.StatusBadRequest,
		"/api/v1/intervals/mean?level=abc":                           http.StatusBadRequest,
		"/api/v1/intervals/mean?level=0.5":                           http.StatusBadRequest,
		"/api/v1/intervals/categories?category_a=Set&category_b=Set": http.StatusBadRequest,
		"/api/v1/charts/t-test?format=gif":                           http.StatusBadRequest,
		"/api/v1/charts/radar":                                       http.StatusNotFound,
	}
	for target, status := range cases {
		rec, body := get(t, e, target)
		assert.Equal(t, status, rec.Code, target)
		assert.False(t, body.Success, target)
	}
}

func TestUnavailableDataset(t *testing.T) {
	e := newServer(t, stubLoader{err: errors.Join(dataset.ErrNotLoaded, errors.New("no such file"))})

	rec, body := get(t, e, "/api/v1/overview")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body.Error.Kind)
}

func TestChartFormats(t *testing.T) {
	e := newServer(t, stubLoader{table: fixture()})

	rec, _ := get(t, e, "/api/v1/charts/t-test")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "v7", rec.Header().Get("X-Dataset-Version"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	rec, _ = get(t, e, "/api/v1/charts/chi-square?format=svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, list([]string{"a, b", " ", "c"}))
	assert.Nil(t, list(nil))
}
