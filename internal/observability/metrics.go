// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Batch read metrics
	BatchesTotal     *prometheus.CounterVec
	BatchCalls       *prometheus.HistogramVec
	BatchFailedCalls *prometheus.CounterVec

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCRetries     *prometheus.CounterVec

	// Log stream metrics
	LogsFetched  prometheus.Counter
	DecodeErrors *prometheus.CounterVec

	// Reconciliation metrics
	ActionsReconciled *prometheus.CounterVec
	IntegrityErrors   *prometheus.CounterVec
	MetaLookups       *prometheus.CounterVec

	// Sink metrics
	SinkWrites  *prometheus.CounterVec
	SinkLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fydescope"
	}

	return &Metrics{
		BatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "multicall",
			Name:      "batches_total",
			Help:      "Total number of executed batches by policy and status",
		}, []string{"policy", "status"}),
		BatchCalls: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "multicall",
			Name:      "calls_per_batch",
			Help:      "Number of calls bundled into a single batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"policy"}),
		BatchFailedCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "multicall",
			Name:      "failed_calls_total",
			Help:      "Total number of individual calls that reverted or failed to decode",
		}, []string{"policy"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "retries_total",
			Help:      "Total number of retried JSON-RPC calls",
		}, []string{"method"}),

		LogsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "logs_fetched_total",
			Help:      "Total number of raw logs returned by eth_getLogs",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Total number of logs that failed to decode by topic0",
		}, []string{"topic0"}),

		ActionsReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "actions_reconciled_total",
			Help:      "Total number of reconciled user actions by kind",
		}, []string{"kind"}),
		IntegrityErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "integrity_errors_total",
			Help:      "Total number of reconciliation integrity errors by reason",
		}, []string{"reason"}),
		MetaLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "meta_lookups_total",
			Help:      "Total number of block metadata lookups by result",
		}, []string{"result"}),

		SinkWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of sink writes by sink and status",
		}, []string{"sink", "status"}),
		SinkLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_latency_seconds",
			Help:      "Sink write latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBatch records one executed batch.
func RecordBatch(policy string, calls, failed int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.BatchesTotal.WithLabelValues(policy, status).Inc()
	DefaultMetrics.BatchCalls.WithLabelValues(policy).Observe(float64(calls))
	if failed > 0 {
		DefaultMetrics.BatchFailedCalls.WithLabelValues(policy).Add(float64(failed))
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRetry increments the retry counter for method.
func RecordRetry(method string) {
	DefaultMetrics.RPCRetries.WithLabelValues(method).Inc()
}

// RecordLogsFetched adds n raw logs to the fetched counter.
func RecordLogsFetched(n int) {
	DefaultMetrics.LogsFetched.Add(float64(n))
}

// RecordDecodeError records a log that failed to decode.
func RecordDecodeError(topic0 string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(topic0).Inc()
}

// RecordActionReconciled increments the reconciled action counter.
func RecordActionReconciled(kind string) {
	DefaultMetrics.ActionsReconciled.WithLabelValues(kind).Inc()
}

// RecordIntegrityError increments the integrity error counter.
func RecordIntegrityError(reason string) {
	DefaultMetrics.IntegrityErrors.WithLabelValues(reason).Inc()
}

// RecordMetaLookup records a block metadata lookup result (hit, miss, evict, not_found, error).
func RecordMetaLookup(result string) {
	DefaultMetrics.MetaLookups.WithLabelValues(result).Inc()
}

// RecordSinkWrite records a sink write.
func RecordSinkWrite(sink string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SinkWrites.WithLabelValues(sink, status).Inc()
	DefaultMetrics.SinkLatency.WithLabelValues(sink).Observe(seconds)
}
