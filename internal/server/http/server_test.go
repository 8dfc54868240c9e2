package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/entity"
)

type oneShotSource struct{}

func (oneShotSource) Name() string { return "memory" }

func (oneShotSource) Fingerprint(context.Context) (string, error) { return "fp-1", nil }

func (oneShotSource) Fetch(context.Context) ([]entity.Order, error) {
	return []entity.Order{{OrderID: "1"}, {OrderID: "2"}}, nil
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthReportsDataset(t *testing.T) {
	loader := dataset.NewLoader(oneShotSource{}, 0, zap.NewNop())
	e := NewEcho(Params{Config: config.Config{}, Loader: loader, Logger: zap.NewNop()})

	var body map[string]any
	rec := serve(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["dataset"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	_, err := loader.Load(context.Background())
	require.NoError(t, err)

	rec = serve(e, "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	ds, ok := body["dataset"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, ds["rows"])
	assert.Equal(t, "memory", ds["source"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e := NewEcho(Params{Config: config.Config{}, Logger: zap.NewNop()})

	rec := serve(e, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "not_found", body.Error.Kind)
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, "not_found", string(kindFor(http.StatusMethodNotAllowed)))
	assert.Equal(t, "bad_request", string(kindFor(http.StatusRequestEntityTooLarge)))
	assert.Equal(t, "unavailable", string(kindFor(http.StatusServiceUnavailable)))
	assert.Equal(t, "rate_limited", string(kindFor(http.StatusTooManyRequests)))
	assert.Equal(t, "internal", string(kindFor(http.StatusBadGateway)))
}

func TestRateLimitAppliesToAPIRoutesOnly(t *testing.T) {
	cfg := config.Config{HTTP: config.HTTP{RateLimit: 1, RateBurst: 1}}
	e := NewEcho(Params{Config: cfg, Logger: zap.NewNop()})
	e.GET("/api/v1/overview", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(e, "/api/v1/overview").Code)

	rec := serve(e, "/api/v1/overview")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Error.Kind)

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, "/health").Code)
	}
}
