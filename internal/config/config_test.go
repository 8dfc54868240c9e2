package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "file")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.Dataset.Source)
	assert.Equal(t, "df_selecionado.xlsx", cfg.Dataset.Path)
	assert.Equal(t, "Cancelado", cfg.Dataset.CancelledLabel)
	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, 0.95, cfg.Analysis.DefaultLevel)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Zero(t, cfg.HTTP.RateLimit)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("DATASET_SOURCE", " S3 ")
	t.Setenv("DATASET_S3_BUCKET", "analytics")
	t.Setenv("DATASET_S3_KEY", "orders/df_selecionado.xlsx")
	t.Setenv("DATASET_CHECK_INTERVAL", "1m")
	t.Setenv("ANALYSIS_ALPHA", "0.01")
	t.Setenv("OBS_PROMETHEUS_PATH", "prom")
	t.Setenv("OBS_LOG_ENCODING", " Console ")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, SourceS3, cfg.Dataset.Source)
	assert.Equal(t, "analytics", cfg.Dataset.S3.Bucket)
	assert.Equal(t, time.Minute, cfg.Dataset.CheckInterval)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, "/prom", cfg.Observability.PrometheusPath)
	assert.Equal(t, "console", cfg.Observability.LogEncoding)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown source":       {"DATASET_SOURCE": "ftp"},
		"s3 without bucket":    {"DATASET_SOURCE": "s3", "DATASET_S3_BUCKET": "", "DATASET_S3_KEY": "k"},
		"database without dsn": {"DATASET_SOURCE": "database", "DB_WRITER_DSN": ""},
		"alpha out of range":   {"DATASET_SOURCE": "file", "ANALYSIS_ALPHA": "1.5"},
		"default level":        {"DATASET_SOURCE": "file", "ANALYSIS_DEFAULT_LEVEL": "0.5"},
		"bad cache driver":     {"DATASET_SOURCE": "file", "CACHE_ENABLED": "true", "CACHE_DRIVER": "memcached"},
		"empty cancel label":   {"DATASET_SOURCE": "file", "DATASET_CANCELLED_LABEL": " "},
		"negative rate limit":  {"DATASET_SOURCE": "file", "HTTP_RATE_LIMIT": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}
