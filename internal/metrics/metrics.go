package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BrokerMetrics tracks broker operations
type BrokerMetrics struct {
	operations *prometheus.CounterVec
	denials    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	publishes  prometheus.Counter
	latency    *prometheus.HistogramVec
}

// New registers the broker collectors on reg
func New(reg prometheus.Registerer) *BrokerMetrics {
	factory := promauto.With(reg)
	return &BrokerMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_operations_total",
			Help: "Total number of broker operations by outcome",
		}, []string{"operation", "outcome"}),
		denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_access_denied_total",
			Help: "Total number of denied broker operations by rule",
		}, []string{"operation", "rule"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "broker_store_failures_total",
			Help: "Total number of store failures",
		}, []string{"operation"}),
		publishes: factory.NewCounter(prometheus.CounterOpts{
			Name: "broker_projects_published_total",
			Help: "Total number of published projects",
		}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "broker_operation_duration_seconds",
			Help:    "Broker operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Observe records one finished operation. A nil receiver records nothing.
func (m *BrokerMetrics) Observe(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *BrokerMetrics) Denied(operation, rule string) {
	if m == nil {
		return
	}
	m.denials.WithLabelValues(operation, rule).Inc()
}

func (m *BrokerMetrics) StoreFailed(operation string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation).Inc()
}

func (m *BrokerMetrics) Published() {
	if m == nil {
		return
	}
	m.publishes.Inc()
}
