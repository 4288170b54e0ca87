package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sinkWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "analytics",
		Name:      "sink_writes_total",
		Help:      "Analytics rows written per sink and outcome.",
	}, []string{"sink", "outcome"})

	sinkWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terminalx",
		Subsystem: "analytics",
		Name:      "sink_write_duration_seconds",
		Help:      "Time spent writing one analytics row per sink.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sink"})

	emitDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "analytics",
		Name:      "emit_dropped_total",
		Help:      "Snapshots not persisted because the emit queue was full or closed.",
	})

	clickhouseFlushedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalx",
		Subsystem: "analytics",
		Name:      "clickhouse_flushed_rows_total",
		Help:      "Rows flushed to ClickHouse by outcome.",
	}, []string{"outcome"})
)

func observeWrite(sink string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	sinkWritesTotal.WithLabelValues(sink, outcome).Inc()
	sinkWriteDuration.WithLabelValues(sink).Observe(time.Since(start).Seconds())
}
