package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	auditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "audit",
		Name:      "requests_total",
		Help:      "Wallet audits by outcome",
	}, []string{"outcome"})

	auditDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "terminalx",
		Subsystem: "audit",
		Name:      "duration_seconds",
		Help:      "End-to-end wallet audit latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	degradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "audit",
		Name:      "degraded_sources_total",
		Help:      "Sources that returned no data during an audit",
	}, []string{"source"})

	basePriceSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "audit",
		Name:      "base_price_resolutions_total",
		Help:      "Base-asset USD price resolutions by source",
	}, []string{"source"})
)
