package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Requests sent to the LIN backend by method and status.",
	}, []string{"method", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lin",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to the LIN backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	refreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "api",
		Name:      "token_refresh_total",
		Help:      "Token refresh attempts by outcome.",
	}, []string{"result"})

	cacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lin",
		Subsystem: "api",
		Name:      "cache_lookups_total",
		Help:      "Response cache lookups by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(requestCounter, requestDuration, refreshCounter, cacheCounter)
}

func recordRequest(method, status string, elapsed time.Duration) {
	requestCounter.WithLabelValues(method, status).Inc()
	requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func recordRefresh(result string) {
	refreshCounter.WithLabelValues(result).Inc()
}

func recordCache(hit bool) {
	if hit {
		cacheCounter.WithLabelValues("hit").Inc()
		return
	}
	cacheCounter.WithLabelValues("miss").Inc()
}
