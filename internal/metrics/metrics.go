package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DiamondsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemforge_diamonds_total",
			Help: "Diamonds moved through the ledger",
		},
		[]string{"direction", "reason"},
	)

	JobsSpawnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemforge_jobs_spawned_total",
			Help: "Total number of paid jobs spawned",
		},
		[]string{"kind"},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemforge_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"kind", "status"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gemforge_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDiamonds(direction, reason string, amount int) {
	DiamondsTotal.WithLabelValues(direction, reason).Add(float64(amount))
}

func RecordJobSpawned(kind string) {
	JobsSpawnedTotal.WithLabelValues(kind).Inc()
}

func RecordJobFinished(kind, status string) {
	JobsFinishedTotal.WithLabelValues(kind, status).Inc()
}

func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
