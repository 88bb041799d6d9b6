package seedprobe

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type proberMetrics struct {
	results       *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

var (
	proberMetricsOnce sync.Once
	proberRegistry    *proberMetrics
)

func defaultProberMetrics() *proberMetrics {
	proberMetricsOnce.Do(func() {
		proberRegistry = &proberMetrics{
			results: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainview",
				Subsystem: "seedprobe",
				Name:      "results_total",
				Help:      "Probe outcomes by terminal status.",
			}, []string{"status"}),
			batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "chainview",
				Subsystem: "seedprobe",
				Name:      "batch_duration_seconds",
				Help:      "Wall-clock duration of whole probe batches.",
				Buckets:   prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			proberRegistry.results,
			proberRegistry.batchDuration,
		)
	})
	return proberRegistry
}
