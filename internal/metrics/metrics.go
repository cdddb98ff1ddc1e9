// Package metrics exposes Prometheus instrumentation for the export engine.
//
// Metrics:
//   - community_admin_export_units_total: export units by outcome status
//   - community_admin_export_unit_duration_seconds: time spent per unit
//   - community_admin_export_records_total: records fetched by category
//   - community_admin_export_fetch_failures_total: category fetches downgraded to empty
//   - community_admin_export_file_bytes: size of delivered files by format
//
// All recording methods are safe to call on a nil *Exporter, which keeps
// instrumentation optional for tests and the CLI.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "community_admin"
	subsystem = "export"
)

// Exporter holds the export engine's collectors.
type Exporter struct {
	unitsTotal    *prometheus.CounterVec
	unitDuration  prometheus.Histogram
	recordsTotal  *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	fileBytes     *prometheus.HistogramVec
}

// New creates the collectors and registers them with registry.
// If registry is nil, a fresh prometheus.Registry is used.
func New(registry prometheus.Registerer) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{
		unitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "units_total",
				Help:      "Total number of export units processed, by status",
			},
			[]string{"status"},
		),
		unitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "unit_duration_seconds",
				Help:      "Duration of a single export unit in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "records_total",
				Help:      "Total number of records fetched for export, by category",
			},
			[]string{"category"},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fetch_failures_total",
				Help:      "Category fetches that failed and were exported as empty",
			},
			[]string{"category"},
		),
		fileBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "file_bytes",
				Help:      "Size of delivered export files in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"format"},
		),
	}

	registry.MustRegister(e.unitsTotal, e.unitDuration, e.recordsTotal, e.fetchFailures, e.fileBytes)
	return e
}

// UnitFinished records one processed unit. status is "success" or "failed".
func (e *Exporter) UnitFinished(status string, d time.Duration) {
	if e == nil {
		return
	}
	e.unitsTotal.WithLabelValues(status).Inc()
	e.unitDuration.Observe(d.Seconds())
}

// RecordsFetched adds n records to the category's counter.
func (e *Exporter) RecordsFetched(category string, n int) {
	if e == nil {
		return
	}
	e.recordsTotal.WithLabelValues(category).Add(float64(n))
}

// FetchFailed counts a category fetch that was downgraded to empty.
func (e *Exporter) FetchFailed(category string) {
	if e == nil {
		return
	}
	e.fetchFailures.WithLabelValues(category).Inc()
}

// FileDelivered observes the size of a delivered file.
func (e *Exporter) FileDelivered(format string, size int) {
	if e == nil {
		return
	}
	e.fileBytes.WithLabelValues(format).Observe(float64(size))
}
