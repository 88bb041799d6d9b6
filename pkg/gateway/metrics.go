package gateway

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	requests    *prometheus.CounterVec
	intercepted *prometheus.CounterVec
	cacheHits   prometheus.Gauge
	cacheMisses prometheus.Gauge
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics
)

func defaultGatewayMetrics() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainview",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Handled RPC envelopes by outcome.",
			}, []string{"outcome"}),
			intercepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainview",
				Subsystem: "gateway",
				Name:      "intercepted_total",
				Help:      "Locally answered calls by method.",
			}, []string{"method"}),
			cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chainview",
				Subsystem: "rpccache",
				Name:      "hits_total",
				Help:      "Cumulative cache hits across all scopes.",
			}),
			cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chainview",
				Subsystem: "rpccache",
				Name:      "misses_total",
				Help:      "Cumulative cache misses across all scopes.",
			}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.intercepted,
			gatewayRegistry.cacheHits,
			gatewayRegistry.cacheMisses,
		)
	})
	return gatewayRegistry
}
