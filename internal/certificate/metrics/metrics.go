// Package metrics exposes Prometheus instrumentation for the issuance pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item result label values.
const (
	ResultIssued  = "issued"
	ResultUpdated = "updated"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Batch outcome label values.
const (
	OutcomeCompleted        = "completed"
	OutcomeValidationFailed = "validation_failed"
	OutcomeCanceled         = "canceled"
)

type Metrics struct {
	BatchesTotal   *prometheus.CounterVec
	ItemsTotal     *prometheus.CounterVec
	BatchDuration  prometheus.Histogram
	ExportDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veriseal",
			Subsystem: "issuance",
			Name:      "batches_total",
			Help:      "Issuance batches processed, by outcome.",
		}, []string{"outcome"}),
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veriseal",
			Subsystem: "issuance",
			Name:      "items_total",
			Help:      "Batch items processed, by per-item result.",
		}, []string{"result"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veriseal",
			Subsystem: "issuance",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of one issuance batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veriseal",
			Subsystem: "issuance",
			Name:      "export_duration_seconds",
			Help:      "Duration of rendering and encoding one certificate document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	m.BatchDuration.Observe(elapsed.Seconds())
}

// ObserveItem records one processed batch item.
func (m *Metrics) ObserveItem(result string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(result).Inc()
}

// ObserveExport records one document export.
func (m *Metrics) ObserveExport(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ExportDuration.Observe(elapsed.Seconds())
}
