// Package observability declares the Prometheus metrics exported on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "godex",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HomeRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "godex",
		Name:      "home_recompute_duration_seconds",
		Help:      "Duration of the home update transaction including distance recompute",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	CapturesRecomputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "godex",
		Name:      "captures_recomputed_total",
		Help:      "Total number of capture distances rewritten by home updates",
	})

	HomeUpdateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "godex",
		Name:      "home_update_failures_total",
		Help:      "Home updates rolled back because of a storage failure",
	})

	CaptureWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "godex",
		Name:      "capture_writes_total",
		Help:      "Capture writes by operation",
	}, []string{"op"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "godex",
		Name:      "events_published_total",
		Help:      "Domain events handed to the broker, by subject and result",
	}, []string{"subject", "result"})

	ExportsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "godex",
		Name:      "exports_created_total",
		Help:      "Collection exports uploaded to object storage",
	})
)
