package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the Kafka audit sink.
type Metrics struct {
	Produced       *prometheus.CounterVec
	Failures       prometheus.Counter
	BreakerDropped prometheus.Counter
	BreakerState   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Produced: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_audit_events_produced_total",
			Help: "Audit events written to Kafka by category",
		}, []string{"category"}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "idscore_audit_produce_failures_total",
			Help: "Audit events Kafka refused or timed out on",
		}),
		BreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "idscore_audit_breaker_dropped_total",
			Help: "Audit events dropped while the circuit breaker was open",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_audit_breaker_open",
			Help: "Circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incProduced(category string) {
	if m == nil {
		return
	}
	m.Produced.WithLabelValues(category).Inc()
}

func (m *Metrics) incFailures() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.BreakerDropped.Inc()
}

func (m *Metrics) setOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
