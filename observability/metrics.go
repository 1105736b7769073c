package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics records activity on the trade query and operation-building
// paths.
type EscrowMetrics struct {
	QueryRequests *prometheus.CounterVec
	QueryLatency  prometheus.Histogram
	BuildRequests *prometheus.CounterVec
	TradesListed  prometheus.Gauge
}

var (
	escrowMetricsOnce sync.Once
	escrowRegistry    *EscrowMetrics
)

// Escrow returns the lazily-initialised metrics registry for the escrow
// service.
func Escrow() *EscrowMetrics {
	escrowMetricsOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			QueryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradeflow",
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Total trade snapshot reads segmented by outcome.",
			}, []string{"outcome"}),
			QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "tradeflow",
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Latency distribution of full trade snapshot reads.",
				Buckets:   prometheus.DefBuckets,
			}),
			BuildRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tradeflow",
				Subsystem: "txbuild",
				Name:      "requests_total",
				Help:      "Total funding group builds segmented by acting role and outcome.",
			}, []string{"role", "outcome"}),
			TradesListed: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tradeflow",
				Subsystem: "query",
				Name:      "trades_last_snapshot",
				Help:      "Number of trades returned by the most recent snapshot.",
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.QueryRequests,
			escrowRegistry.QueryLatency,
			escrowRegistry.BuildRequests,
			escrowRegistry.TradesListed,
		)
	})
	return escrowRegistry
}
