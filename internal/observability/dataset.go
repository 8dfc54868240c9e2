package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/Additional-Code/salesboard/internal/dataset"
)

// Dataset exports the served snapshot on the Prometheus registry.
var Dataset = fx.Invoke(trackDataset)

type datasetGauges struct {
	info     *prometheus.GaugeVec
	rows     prometheus.Gauge
	loadedAt prometheus.Gauge
}

func newDatasetGauges(registry *prometheus.Registry) *datasetGauges {
	g := &datasetGauges{
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "salesboard_dataset_info",
			Help: "Snapshot currently served, labelled by version and source.",
		}, []string{"version", "source"}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesboard_dataset_rows",
			Help: "Rows in the served snapshot.",
		}),
		loadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salesboard_dataset_loaded_timestamp_seconds",
			Help: "Unix time the served snapshot was loaded.",
		}),
	}
	registry.MustRegister(g.info, g.rows, g.loadedAt)
	return g
}

// RecordDataset publishes the served snapshot. It is a no-op unless the
// prometheus exporter is active.
func (m *Manager) RecordDataset(version, source string, rows int, loadedAt time.Time) {
	if m.dataset == nil {
		return
	}
	m.dataset.info.Reset()
	m.dataset.info.WithLabelValues(version, source).Set(1)
	m.dataset.rows.Set(float64(rows))
	m.dataset.loadedAt.Set(float64(loadedAt.Unix()))
}

func trackDataset(m *Manager, loader *dataset.Loader) {
	loader.OnReload(func(_ context.Context, _, current *dataset.Table) {
		m.RecordDataset(current.Version(), current.Source(), current.Len(), current.LoadedAt())
	})
}
