package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec
	mergesTotal       *prometheus.CounterVec
	uploadRejections  *prometheus.CounterVec
	studentsByTier    *prometheus.GaugeVec
	notificationsSent *prometheus.CounterVec
	statsCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dwatch_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		mergesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_upload_merges_total",
			Help: "Upload merges by outcome.",
		}, []string{"outcome"})

		uploadRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_upload_rejections_total",
			Help: "Uploaded sheets rejected before merging.",
		}, []string{"source", "reason"})

		studentsByTier = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dwatch_students_by_tier",
			Help: "Number of tracked students per dropout risk tier.",
		}, []string{"tier"})

		notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_notifications_sent_total",
			Help: "Simulated notification sends by alert type.",
		}, []string{"type"})

		statsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwatch_stats_cache_lookups_total",
			Help: "Risk statistics cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, mergesTotal,
			uploadRejections, studentsByTier, notificationsSent, statsCacheLookups)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Merges exposes the upload merge counter.
func Merges() *prometheus.CounterVec {
	RegisterMetrics()
	return mergesTotal
}

// UploadRejections exposes the counter of rejected sheets.
func UploadRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejections
}

// StudentsByTier exposes the per-tier population gauge.
func StudentsByTier() *prometheus.GaugeVec {
	RegisterMetrics()
	return studentsByTier
}

// NotificationsSent exposes the simulated send counter.
func NotificationsSent() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsSent
}

// StatsCacheLookups exposes the stats cache hit/miss counter.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheLookups
}
