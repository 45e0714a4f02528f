// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels metrics with service identity.
type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics instruments vendor sync runs.
type SyncMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	recordsWritten *prometheus.CounterVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the process-wide sync metrics with default config.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the process-wide sync metrics, registering them on
// first use.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest clears the singleton between tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "spend-dashboard"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "vendor_sync_runs_total",
			Help:        "Vendor sync attempts by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"vendor", "status"},
	)

	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "vendor_sync_duration_seconds",
			Help:        "Duration of a vendor sync from fetch to rotation.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"vendor"},
	)

	recordsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "vendor_sync_records_written_total",
			Help:        "Daily usage records written per vendor.",
			ConstLabels: constLabels,
		},
		[]string{"vendor"},
	)

	registerer.MustRegister(runs, runDuration, recordsWritten)

	return &SyncMetrics{
		runs:           runs,
		runDuration:    runDuration,
		recordsWritten: recordsWritten,
	}
}

// ObserveRun records a finished sync attempt.
func (m *SyncMetrics) ObserveRun(vendor, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(vendor, status).Inc()
	m.runDuration.WithLabelValues(vendor).Observe(duration.Seconds())
}

// AddRecordsWritten counts durable records produced by a sync.
func (m *SyncMetrics) AddRecordsWritten(vendor string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsWritten.WithLabelValues(vendor).Add(float64(count))
}
