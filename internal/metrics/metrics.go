// Package metrics provides Prometheus metrics for the file service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider metrics
	providerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gcsfiles_storage_provider_operation_duration_seconds",
			Help:    "Object storage provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation", "status"},
	)

	// Adapter metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcsfiles_uploads_total",
			Help: "Total number of adapter uploads by outcome",
		},
		[]string{"status"},
	)

	uploadCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gcsfiles_upload_collisions_total",
			Help: "Uploads rejected by the provider because the key already existed",
		},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcsfiles_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProviderOperation records the duration and outcome of a provider call.
func RecordProviderOperation(provider, operation string, d time.Duration, ok bool) {
	providerOperationDuration.WithLabelValues(provider, operation, status(ok)).Observe(d.Seconds())
}

// RecordUpload counts a finished adapter upload.
func RecordUpload(ok bool) {
	uploadsTotal.WithLabelValues(status(ok)).Inc()
}

// RecordCollision counts a key collision reported by the provider.
func RecordCollision() {
	uploadCollisionsTotal.Inc()
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(method string, code int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
