// Package observability provides metrics functionality for monitoring nutrilog.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nutrilog/nutrilog/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Ingest   *metrics.IngestMetrics
}

// NewMetrics creates a new instance of Metrics with its own registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	ingestMetrics, err := metrics.NewIngestMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Ingest:   ingestMetrics,
	}, nil
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
