package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "upstream",
		Name:      "calls_total",
		Help:      "Upstream calls by provider and outcome",
	}, []string{"provider", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terminalx",
		Subsystem: "upstream",
		Name:      "call_duration_seconds",
		Help:      "Upstream call latency including 429 retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})

	rateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "upstream",
		Name:      "pacing_waits_total",
		Help:      "Calls delayed by the per-provider limiter",
	}, []string{"provider"})

	retryAfterWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "upstream",
		Name:      "rate_limited_retries_total",
		Help:      "Retries scheduled after a 429 answer",
	}, []string{"provider"})
)
