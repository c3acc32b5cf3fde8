package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atelier_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Generation metrics
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_generations_total",
			Help: "Total number of upstream generation calls",
		},
		[]string{"provider", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atelier_generation_duration_seconds",
			Help:    "Upstream generation call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// Session metrics
	sessionAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_session_appends_total",
			Help: "Total number of session append operations",
		},
		[]string{"namespace"},
	)

	// Submission and upload metrics
	submissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atelier_submissions_total",
			Help: "Total number of recorded submissions",
		},
	)

	uploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atelier_uploads_total",
			Help: "Total number of stored uploads",
		},
	)

	uploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atelier_upload_bytes_total",
			Help: "Total bytes stored through uploads",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all metrics. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			generationsTotal,
			generationDuration,
			sessionAppendsTotal,
			submissionsTotal,
			uploadsTotal,
			uploadBytes,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records one upstream generation call
func RecordGeneration(provider, status string, duration time.Duration) {
	generationsTotal.WithLabelValues(provider, status).Inc()
	generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSessionAppend records a session append for a store namespace
func RecordSessionAppend(namespace string) {
	sessionAppendsTotal.WithLabelValues(namespace).Inc()
}

// RecordSubmission records one accepted submission
func RecordSubmission() {
	submissionsTotal.Inc()
}

// RecordUpload records one stored upload
func RecordUpload(size int64) {
	uploadsTotal.Inc()
	uploadBytes.Add(float64(size))
}
