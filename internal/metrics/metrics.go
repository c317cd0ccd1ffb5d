package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// RPC dispatch metrics
	RPCRequestTotal    *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec

	// Upstream API metrics
	UpstreamRequestTotal    *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// Schema validation metrics
	SchemaValidationTotal *prometheus.CounterVec

	// Order event publishing metrics
	OrderEventTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics returns the process-wide Metrics instance, creating and
// registering it on first use.
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		RPCRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Total number of RPC procedure calls",
		}, []string{"procedure", "status"}),

		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "RPC procedure call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure", "status"}),

		UpstreamRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests sent to the product/auth API",
		}, []string{"operation", "status"}),

		UpstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Product/auth API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		SchemaValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schema_validation_total",
			Help: "Total number of procedure input validations",
		}, []string{"procedure", "status"}),

		OrderEventTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_events_total",
			Help: "Total number of order event publish operations",
		}, []string{"event_type", "status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	globalMetrics = m
	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	registerOrGet(m.RPCRequestTotal)
	registerOrGet(m.RPCRequestDuration)
	registerOrGet(m.UpstreamRequestTotal)
	registerOrGet(m.UpstreamRequestDuration)
	registerOrGet(m.SchemaValidationTotal)
	registerOrGet(m.OrderEventTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
