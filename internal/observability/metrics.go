// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the sniper.
type Metrics struct {
	// Listener metrics
	PoolsDiscovered prometheus.Counter
	PoolsIgnored    *prometheus.CounterVec
	MarketsCached   prometheus.Counter
	WalletUpdates   prometheus.Counter

	// Filter metrics
	FilterRejections *prometheus.CounterVec
	FilterDuration   prometheus.Histogram

	// Trade metrics
	Workflows        *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	WorkflowDuration *prometheus.HistogramVec
	WorkflowPanics   *prometheus.CounterVec

	// Position metrics
	OpenPositions prometheus.Gauge
	ExitTriggers  *prometheus.CounterVec

	// Solana metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Health metrics
	LastPoolSeen prometheus.Gauge
	StartTime    prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_sniper"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		PoolsDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "pools_discovered_total",
			Help:      "Total number of new pools dispatched to the engine",
		}),
		PoolsIgnored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "pools_ignored_total",
			Help:      "Total number of pool notifications ignored by reason",
		}, []string{"reason"}),
		MarketsCached: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "markets_cached_total",
			Help:      "Total number of OpenBook markets cached",
		}),
		WalletUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "wallet_updates_total",
			Help:      "Total number of wallet token account changes observed",
		}),

		FilterRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rejections_total",
			Help:      "Total number of pipeline rejections by filter",
		}, []string{"filter"}),
		FilterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "evaluation_seconds",
			Help:      "Filter pipeline evaluation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		Workflows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "workflows_total",
			Help:      "Total number of buy/sell workflows by terminal status",
		}, []string{"side", "status"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "submissions_total",
			Help:      "Total number of transaction submissions by outcome",
		}, []string{"side", "outcome"}),
		WorkflowDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "workflow_duration_seconds",
			Help:      "Buy/sell workflow duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"side"}),
		WorkflowPanics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "workflow_panics_total",
			Help:      "Total number of recovered workflow panics",
		}, []string{"side"}),

		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "open",
			Help:      "Number of open positions",
		}),
		ExitTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "exit_triggers_total",
			Help:      "Total number of exit triggers by reason",
		}, []string{"reason"}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		LastPoolSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_pool_seen_timestamp",
			Help:      "Unix timestamp of the last dispatched pool",
		}),
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_time_timestamp",
			Help:      "Unix timestamp of process start",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRPC records one RPC call. Matches solana.WithObserver.
func (m *Metrics) ObserveRPC(method string, elapsed time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordWorkflow records a terminal workflow outcome.
func (m *Metrics) RecordWorkflow(side, status string, elapsed time.Duration) {
	m.Workflows.WithLabelValues(side, status).Inc()
	m.WorkflowDuration.WithLabelValues(side).Observe(elapsed.Seconds())
}

// RecordSubmission records one transaction submission.
func (m *Metrics) RecordSubmission(side string, confirmed bool) {
	outcome := "unconfirmed"
	if confirmed {
		outcome = "confirmed"
	}
	m.Submissions.WithLabelValues(side, outcome).Inc()
}

// RecordFilterResult records a pipeline evaluation. An empty rejectedBy means it passed.
func (m *Metrics) RecordFilterResult(rejectedBy string, elapsed time.Duration) {
	m.FilterDuration.Observe(elapsed.Seconds())
	if rejectedBy != "" {
		m.FilterRejections.WithLabelValues(rejectedBy).Inc()
	}
}

// RecordPoolDiscovered marks a pool dispatched to the engine.
func (m *Metrics) RecordPoolDiscovered(at time.Time) {
	m.PoolsDiscovered.Inc()
	m.LastPoolSeen.Set(float64(at.Unix()))
}
