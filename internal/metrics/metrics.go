// Package metrics exposes cleanup session counters in Prometheus format.
//
// tblogs is a one-shot CLI, so instead of serving /metrics it writes the
// registry to a node_exporter textfile collector file after each session.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for cleanup sessions.
type Metrics struct {
	registry *prometheus.Registry

	runsScanned   *prometheus.GaugeVec
	bytesScanned  *prometheus.GaugeVec
	scanWarnings  *prometheus.CounterVec
	runsSelected  *prometheus.GaugeVec
	runsDeleted   *prometheus.CounterVec
	bytesDeleted  *prometheus.CounterVec
	deleteFails   *prometheus.CounterVec
	commits       *prometheus.CounterVec
	lastSessionTS prometheus.Gauge
}

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		runsScanned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tblogs_runs_scanned",
				Help: "Number of runs found in the last scan",
			},
			[]string{"target"},
		),

		bytesScanned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tblogs_bytes_scanned",
				Help: "Total size of runs found in the last scan",
			},
			[]string{"target"},
		),

		scanWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tblogs_scan_warnings_total",
				Help: "Entries skipped during scanning because they could not be read",
			},
			[]string{"target"},
		),

		runsSelected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tblogs_runs_selected",
				Help: "Number of runs selected for deletion in the last session",
			},
			[]string{"target"},
		),

		runsDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tblogs_runs_deleted_total",
				Help: "Runs removed from disk",
			},
			[]string{"target"},
		),

		bytesDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tblogs_bytes_deleted_total",
				Help: "Bytes reclaimed by removed runs",
			},
			[]string{"target"},
		),

		deleteFails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tblogs_delete_failures_total",
				Help: "Runs that could not be removed",
			},
			[]string{"target"},
		),

		commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tblogs_volume_commits_total",
				Help: "Volume commits after deletions",
			},
			[]string{"target", "result"},
		),

		lastSessionTS: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tblogs_last_session_timestamp_seconds",
				Help: "Unix time the last cleanup session finished",
			},
		),
	}
}

// RecordScan records the outcome of scanning a target.
func (m *Metrics) RecordScan(target string, runs int, bytes int64, warnings int) {
	m.runsScanned.WithLabelValues(target).Set(float64(runs))
	m.bytesScanned.WithLabelValues(target).Set(float64(bytes))
	m.scanWarnings.WithLabelValues(target).Add(float64(warnings))
}

// RecordSelection records how many runs the user selected.
func (m *Metrics) RecordSelection(target string, runs int) {
	m.runsSelected.WithLabelValues(target).Set(float64(runs))
}

// RecordDeletion records one target's deletion outcome.
func (m *Metrics) RecordDeletion(target string, deleted int, bytes int64, failed int) {
	m.runsDeleted.WithLabelValues(target).Add(float64(deleted))
	m.bytesDeleted.WithLabelValues(target).Add(float64(bytes))
	m.deleteFails.WithLabelValues(target).Add(float64(failed))
}

// RecordCommit records a volume commit attempt.
func (m *Metrics) RecordCommit(target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commits.WithLabelValues(target, result).Inc()
}

// MarkSessionEnd stamps the session completion time.
func (m *Metrics) MarkSessionEnd() {
	m.lastSessionTS.SetToCurrentTime()
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all collectors in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
