package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Classifications *prometheus.CounterVec
	RuleUsage       *prometheus.CounterVec
	Unavailable     prometheus.Counter
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_classifications_total",
			Help: "Live classifications by serving arm and predicted label",
		}, []string{"variant", "prediction"}),
		RuleUsage: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_ensemble_rule_usage_total",
			Help: "Ensemble rule that decided each classification",
		}, []string{"rule"}),
		Unavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "idscore_classifications_unavailable_total",
			Help: "Classifications answered without a loaded production era",
		}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_model_refreshes_total",
			Help: "Snapshot refreshes by outcome",
		}, []string{"outcome"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idscore_model_refresh_duration_seconds",
			Help:    "Time to load a model snapshot",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveClassification(variant, prediction, rule string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(variant, prediction).Inc()
	m.RuleUsage.WithLabelValues(rule).Inc()
}

func (m *Metrics) ObserveUnavailable() {
	if m == nil {
		return
	}
	m.Unavailable.Inc()
}

func (m *Metrics) ObserveRefresh(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}
