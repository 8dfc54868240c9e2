package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
)

func TestPrometheusMetricsAreServed(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "salesboard-test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}}

	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	defer lc.RequireStop()

	assert.True(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	require.NotNil(t, mgr.Registry())

	counter, err := otel.Meter("test").Int64Counter("salesboard_test_requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, mgr.PrometheusPath(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "salesboard_test_requests")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDisabledExporters(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		EnableTracing:   true,
		TraceExporter:   "none",
		EnableMetrics:   true,
		MetricsExporter: "none",
	}}

	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	defer lc.RequireStop()

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.MetricsHandler())
}

func TestRecordDatasetGauges(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
	}}
	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)

	mgr.RecordDataset("v1", "file:orders.xlsx", 10, time.Unix(1700000000, 0))
	mgr.RecordDataset("v2", "file:orders.xlsx", 12, time.Unix(1700000100, 0))

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `salesboard_dataset_info{source="file:orders.xlsx",version="v2"} 1`)
	assert.NotContains(t, body, `version="v1"`)
	assert.Contains(t, body, "salesboard_dataset_rows 12")
}

func TestRecordDatasetWithoutPrometheus(t *testing.T) {
	mgr, err := NewManager(fxtest.NewLifecycle(t), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotPanics(t, func() { mgr.RecordDataset("v1", "file", 1, time.Now()) })
}
