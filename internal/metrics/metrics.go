// Package metrics defines the Prometheus instrumentation for the service.
// Metrics live in a standalone package so both the HTTP layer and the
// import pipeline can record without import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soporte_http_requests_total",
		Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soporte_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RecordsCreated counts soportes created, by origin (api or import).
	RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soporte_records_created_total",
		Help: "Soporte records created",
	}, []string{"origin"})

	// RecordsDeleted counts soportes removed through the API.
	RecordsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soporte_records_deleted_total",
		Help: "Soporte records deleted",
	})

	// ImportRows counts bulk-import row outcomes.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soporte_import_rows_total",
		Help: "Bulk import rows by outcome",
	}, []string{"outcome"})

	// Exports counts export downloads by format.
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soporte_exports_total",
		Help: "Export downloads by format",
	}, []string{"format"})
)
