package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	BatchSamples     *prometheus.GaugeVec
	AnomalyScore     prometheus.Gauge
	CandidateF1      prometheus.Gauge
	LastSuccessEpoch prometheus.Gauge
}

// New registers the training metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idscore_training_runs_total",
			Help: "Training pipeline runs by outcome (success or refusal reason)",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idscore_training_run_duration_seconds",
			Help:    "Wall time of a training pipeline run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idscore_training_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		BatchSamples: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "idscore_training_batch_samples",
			Help: "Labeled samples per class in the last batch",
		}, []string{"class"}),
		AnomalyScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_training_anomaly_score",
			Help: "Anomaly score of the last checked batch",
		}),
		CandidateF1: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_training_candidate_f1",
			Help: "Holdout F1 of the last validated candidate",
		}),
		LastSuccessEpoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "idscore_training_last_success_timestamp_seconds",
			Help: "Unix time of the last run that produced a model",
		}),
	}
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) SetBatch(fraud, legit int) {
	if m == nil {
		return
	}
	m.BatchSamples.WithLabelValues("fraud").Set(float64(fraud))
	m.BatchSamples.WithLabelValues("legit").Set(float64(legit))
}

func (m *Metrics) SetAnomalyScore(score float64) {
	if m == nil {
		return
	}
	m.AnomalyScore.Set(score)
}

func (m *Metrics) SetCandidateF1(f1 float64) {
	if m == nil {
		return
	}
	m.CandidateF1.Set(f1)
}

func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccessEpoch.Set(float64(at.Unix()))
}
