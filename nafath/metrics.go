package nafath

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafath_provider_requests_total",
			Help: "Calls to the identity provider by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	providerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nafath_provider_request_duration_seconds",
			Help:    "Identity provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func observe(endpoint string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	providerRequests.WithLabelValues(endpoint, status).Inc()
	providerDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
