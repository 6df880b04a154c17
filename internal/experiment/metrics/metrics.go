package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions *prometheus.CounterVec
	Active      prometheus.Gauge
	ArmRate     *prometheus.GaugeVec
	ArmSamples  *prometheus.GaugeVec
	PValue      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_experiment_transitions_total",
			Help: "Experiment lifecycle transitions by action",
		}, []string{"action"}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_experiment_active",
			Help: "1 while a canary experiment is running",
		}),
		ArmRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "idscore_experiment_arm_success_rate",
			Help: "Success rate of each arm at the last check",
		}, []string{"variant"}),
		ArmSamples: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "idscore_experiment_arm_samples",
			Help: "Requests observed per arm at the last check",
		}, []string{"variant"}),
		PValue: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_experiment_p_value",
			Help: "Two-proportion z-test p-value at the last check",
		}),
	}
}

func (m *Metrics) Transition(action string, active bool) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action).Inc()
	if active {
		m.Active.Set(1)
	} else {
		m.Active.Set(0)
	}
}

func (m *Metrics) ObserveAnalysis(controlRate, treatmentRate float64, controlN, treatmentN int, pValue float64) {
	if m == nil {
		return
	}
	m.ArmRate.WithLabelValues("control").Set(controlRate)
	m.ArmRate.WithLabelValues("treatment").Set(treatmentRate)
	m.ArmSamples.WithLabelValues("control").Set(float64(controlN))
	m.ArmSamples.WithLabelValues("treatment").Set(float64(treatmentN))
	m.PValue.Set(pValue)
}
