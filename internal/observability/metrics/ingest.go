// Package metrics provides ingest pipeline metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for the CSV ingest pipeline
type IngestMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	recordsUpserted   prometheus.Counter
	rowsDegraded      prometheus.Counter

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewIngestMetrics creates and registers new ingest metrics
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *IngestMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrilog_ingest_operations_total",
			Help: "Total number of ingest operations",
		},
		[]string{"operation", "status"}, // operation: upload, parse, derive, upsert
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutrilog_ingest_duration_seconds",
			Help:    "Time taken by ingest operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrilog_ingest_errors_total",
			Help: "Total number of ingest errors by category",
		},
		[]string{"operation", "error_type"},
	)

	m.recordsUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nutrilog_records_upserted_total",
		Help: "Total number of records inserted or updated",
	})

	m.rowsDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nutrilog_rows_degraded_total",
		Help: "Total number of CSV rows whose nutrition payload could not be interpreted",
	})

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.recordsUpserted,
		m.rowsDegraded,
	}
}

// Describe implements the Collector interface
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records an ingest operation outcome
func (m *IngestMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration records the duration of an ingest operation
func (m *IngestMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError records an ingest error by category
func (m *IngestMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordRows adds to the row counters. Unknown kinds and non-positive counts
// are ignored.
func (m *IngestMetrics) RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	switch kind {
	case RowsUpserted:
		m.recordsUpserted.Add(float64(n))
	case RowsDegraded:
		m.rowsDegraded.Add(float64(n))
	}
}
