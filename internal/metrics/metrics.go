package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the API collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	PartMutationsTotal  *prometheus.CounterVec
	UploadedImageBytes  prometheus.Counter
	ImageCleanupFailure prometheus.Counter
}

// New registers the collectors, plus Go and process collectors, on a fresh
// registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		PartMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "part_mutations_total",
				Help: "Total successful part mutations",
			},
			[]string{"action"}, // create|update|delete
		),
		UploadedImageBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "uploaded_image_bytes_total",
				Help: "Total bytes of accepted part images",
			},
		),
		ImageCleanupFailure: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "image_cleanup_failures_total",
				Help: "Image files that could not be removed",
			},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.PartMutationsTotal,
		m.UploadedImageBytes,
		m.ImageCleanupFailure,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// PartMutated counts a successful create, update or delete.
func (m *Metrics) PartMutated(action string) {
	if m == nil {
		return
	}
	m.PartMutationsTotal.WithLabelValues(action).Inc()
}

// ImageStored adds the size of an accepted image.
func (m *Metrics) ImageStored(bytes int64) {
	if m == nil {
		return
	}
	m.UploadedImageBytes.Add(float64(bytes))
}

// CleanupFailed counts an image that could not be removed.
func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.ImageCleanupFailure.Inc()
}
