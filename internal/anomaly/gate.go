// Package anomaly screens a labeled training batch for signs of poisoning
// before any model is touched.
//
// Labels come from the system's own prior decisions, so an attacker who
// controls traffic controls the labels. The gate compares the batch against
// recent successful runs and scores three symptoms: volume spikes, low fraud
// diversity and a shifted class balance.
package anomaly

import (
	"fmt"
	"math"
	"strings"

	"idscore/internal/labeling"
)

const (
	DefaultThreshold = 0.8

	DefaultSpikeFactor        = 3.0
	DefaultMinDiversity       = 0.3
	DefaultExpectedLegitRatio = 0.85
	DefaultMaxShift           = 0.2

	maxSpikeContribution = 0.6
	spikeWeight          = 0.2
	diversityWeight      = 0.5
	shiftWeight          = 0.3
)

// AlertType identifies the check that raised an alert.
type AlertType string

const (
	AlertVolumeSpike       AlertType = "volume_spike"
	AlertLowDiversity      AlertType = "low_diversity"
	AlertDistributionShift AlertType = "distribution_shift"
)

// Alert describes one triggered check.
type Alert struct {
	Type    AlertType `json:"type"`
	Class   string    `json:"class,omitempty"`
	Value   float64   `json:"value"`
	Limit   float64   `json:"limit"`
	Score   float64   `json:"score"`
	Message string    `json:"message"`
}

// Volume is a per-class sample count from one past run.
type Volume struct {
	Fraud int
	Legit int
}

// Report is the gate's verdict on one batch.
type Report struct {
	Score      float64   `json:"score"`
	Threshold  float64   `json:"threshold"`
	Safe       bool      `json:"safe"`
	Alerts     []Alert   `json:"alerts,omitempty"`
	Diversity  float64   `json:"diversity"`
	LegitRatio float64   `json:"legit_ratio"`
	Baseline   *Baseline `json:"baseline,omitempty"`
}

// Config holds the gate's tunables. Zero fields take defaults.
type Config struct {
	Threshold          float64 `mapstructure:"threshold"`
	SpikeFactor        float64 `mapstructure:"spike_factor"`
	MinDiversity       float64 `mapstructure:"min_diversity"`
	ExpectedLegitRatio float64 `mapstructure:"expected_legit_ratio"`
	MaxShift           float64 `mapstructure:"max_shift"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:          DefaultThreshold,
		SpikeFactor:        DefaultSpikeFactor,
		MinDiversity:       DefaultMinDiversity,
		ExpectedLegitRatio: DefaultExpectedLegitRatio,
		MaxShift:           DefaultMaxShift,
	}
}

// Gate scores batches against history.
type Gate struct {
	cfg Config
}

func NewGate(cfg Config) *Gate {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.SpikeFactor <= 0 {
		cfg.SpikeFactor = def.SpikeFactor
	}
	if cfg.MinDiversity <= 0 {
		cfg.MinDiversity = def.MinDiversity
	}
	if cfg.ExpectedLegitRatio <= 0 {
		cfg.ExpectedLegitRatio = def.ExpectedLegitRatio
	}
	if cfg.MaxShift <= 0 {
		cfg.MaxShift = def.MaxShift
	}
	return &Gate{cfg: cfg}
}

// Check scores the batch. history holds the volumes of recent successful
// runs; with no history the volume check is skipped.
func (g *Gate) Check(batch labeling.Batch, history []Volume) Report {
	r := Report{Threshold: g.cfg.Threshold, Diversity: 1}
	fraud, legit := len(batch.Fraud), len(batch.Legit)

	if base, ok := baseline(history); ok {
		r.Baseline = &base
		g.checkVolume(&r, "fraud", fraud, base.Fraud)
		g.checkVolume(&r, "legit", legit, base.Legit)
	}

	if fraud > 0 {
		r.Diversity = PatternDiversity(labeling.Identifiers(batch.Fraud))
		if r.Diversity < g.cfg.MinDiversity {
			r.add(Alert{
				Type:    AlertLowDiversity,
				Class:   "fraud",
				Value:   r.Diversity,
				Limit:   g.cfg.MinDiversity,
				Score:   diversityWeight,
				Message: fmt.Sprintf("fraud pattern diversity %.3f below %.2f", r.Diversity, g.cfg.MinDiversity),
			})
		}
	}

	if total := fraud + legit; total > 0 {
		r.LegitRatio = float64(legit) / float64(total)
		shift := math.Abs(r.LegitRatio - g.cfg.ExpectedLegitRatio)
		if shift > g.cfg.MaxShift {
			r.add(Alert{
				Type:    AlertDistributionShift,
				Value:   r.LegitRatio,
				Limit:   g.cfg.ExpectedLegitRatio,
				Score:   shiftWeight,
				Message: fmt.Sprintf("legit ratio %.3f is %.3f from expected %.2f", r.LegitRatio, shift, g.cfg.ExpectedLegitRatio),
			})
		}
	}

	r.Score = math.Min(1, r.Score)
	r.Safe = r.Score < g.cfg.Threshold
	return r
}

func (g *Gate) checkVolume(r *Report, class string, count int, mean float64) {
	if mean <= 0 {
		return
	}
	ratio := float64(count) / mean
	if ratio <= g.cfg.SpikeFactor {
		return
	}
	r.add(Alert{
		Type:    AlertVolumeSpike,
		Class:   class,
		Value:   ratio,
		Limit:   g.cfg.SpikeFactor,
		Score:   math.Min(maxSpikeContribution, spikeWeight*ratio/g.cfg.SpikeFactor),
		Message: fmt.Sprintf("%s volume %d is %.1fx the historical mean %.1f", class, count, ratio, mean),
	})
}

func (r *Report) add(a Alert) {
	r.Alerts = append(r.Alerts, a)
	r.Score += a.Score
}

// HasAlert reports whether an alert of the given type fired.
func (r Report) HasAlert(t AlertType) bool {
	for _, a := range r.Alerts {
		if a.Type == t {
			return true
		}
	}
	return false
}

// Baseline is the mean per-class volume of past runs.
type Baseline struct {
	Fraud float64 `json:"fraud"`
	Legit float64 `json:"legit"`
	Runs  int     `json:"runs"`
}

func baseline(history []Volume) (Baseline, bool) {
	if len(history) == 0 {
		return Baseline{}, false
	}
	b := Baseline{Runs: len(history)}
	for _, v := range history {
		b.Fraud += float64(v.Fraud)
		b.Legit += float64(v.Legit)
	}
	b.Fraud /= float64(b.Runs)
	b.Legit /= float64(b.Runs)
	return b, true
}

// Pattern reduces an identifier to its shape: digits become 'N', letters
// become 'a', everything else is kept.
func Pattern(identifier string) string {
	var b strings.Builder
	b.Grow(len(identifier))
	for i := 0; i < len(identifier); i++ {
		c := identifier[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte('N')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			b.WriteByte('a')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PatternDiversity is the share of distinct shapes among identifiers.
func PatternDiversity(identifiers []string) float64 {
	if len(identifiers) == 0 {
		return 1
	}
	seen := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		seen[Pattern(id)] = struct{}{}
	}
	return float64(len(seen)) / float64(len(identifiers))
}
