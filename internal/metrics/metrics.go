// Package metrics provides Prometheus metrics for the fee estimation
// daemon: estimation throughput and latency, the distribution of
// predicted fee rates, and the health of the chain data feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. It also satisfies the
// feemodel.Metrics interface so it can be handed straight to
// feemodel.NewWithMetrics.
type Metrics struct {
	// Estimation metrics
	EstimatesTotal   prometheus.Counter   // Successful fee estimations
	EstimateFailures prometheus.Counter   // Failed fee estimations
	EstimateLatency  prometheus.Histogram // Estimation latency in seconds
	EstimatedFeeRate prometheus.Histogram // Distribution of predicted fee rates

	// Chain feed metrics
	ObservationCount prometheus.Gauge   // Fee observations in the current window
	LastBlockAge     prometheus.Gauge   // Seconds since the last observed block
	FeedReconnects   prometheus.Counter // WebSocket feed reconnections
	TxsReceived      prometheus.Counter // Mempool transactions received
	BlocksReceived   prometheus.Counter // Blocks received

	// System metrics
	StoreErrors prometheus.Counter // Failed writes to the estimate store
	ErrorsTotal prometheus.Counter // All errors
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics on a custom registry, which keeps
// tests isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		EstimatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_estimates_total",
			Help: "Total number of successful fee estimations",
		}),
		EstimateFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_estimate_failures_total",
			Help: "Total number of failed fee estimations",
		}),
		EstimateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fee_estimate_latency_seconds",
			Help:    "Fee estimation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		EstimatedFeeRate: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fee_estimated_rate",
			Help:    "Distribution of predicted fee rates in sat/vB",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ObservationCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fee_observation_count",
			Help: "Fee observations in the current rolling window",
		}),
		LastBlockAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fee_last_block_age_seconds",
			Help: "Seconds since the most recently observed block",
		}),
		FeedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_feed_reconnects_total",
			Help: "Total number of WebSocket feed reconnections",
		}),
		TxsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_feed_txs_total",
			Help: "Total number of mempool transactions received",
		}),
		BlocksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_feed_blocks_total",
			Help: "Total number of blocks received",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_store_errors_total",
			Help: "Total number of failed writes to the estimate store",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fee_errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// feemodel.Metrics implementation.

func (m *Metrics) EstimatesInc()        { m.EstimatesTotal.Inc() }
func (m *Metrics) EstimateFailuresInc() { m.EstimateFailures.Inc() }

func (m *Metrics) EstimateLatencyObserve(seconds float64) { m.EstimateLatency.Observe(seconds) }
func (m *Metrics) EstimatedRateObserve(rate float64)      { m.EstimatedFeeRate.Observe(rate) }
