package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported on /metrics. Registered on the default registry so
// promhttp.Handler can serve them without extra wiring.
var (
	// AnalysesTotal counts completed analysis runs by outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treatylens",
		Name:      "analyses_total",
		Help:      "Completed analysis runs partitioned by outcome.",
	}, []string{"outcome"})

	// ExtractionFailures counts uploaded files whose claims extraction
	// failed, by detected layout.
	ExtractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treatylens",
		Name:      "extraction_failures_total",
		Help:      "Claim files that could not be extracted, by layout.",
	}, []string{"layout"})

	// RateFallbacks counts analysis runs that fell back to hard-coded
	// conversion rates after every provider failed.
	RateFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "treatylens",
		Name:      "rate_fallbacks_total",
		Help:      "Currency conversions served from fallback constants.",
	}, []string{"currency"})

	// RequestDuration observes HTTP request latency by route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "treatylens",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency partitioned by route and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)
