// Package models holds the experiment governor's value types.
package models

import (
	"time"
)

// Variant names one arm of an experiment.
type Variant string

const (
	VariantControl   Variant = "control"
	VariantTreatment Variant = "treatment"
)

// Thresholds decide when an experiment has shown enough to act on.
type Thresholds struct {
	MinSamplesPerArm int     `json:"min_samples_per_arm" mapstructure:"min_samples_per_arm"`
	Alpha            float64 `json:"alpha" mapstructure:"alpha"`
	// MinImprovement and RollbackThreshold are relative lifts of the
	// treatment success rate over control (0.01 = +1%).
	MinImprovement    float64 `json:"min_improvement" mapstructure:"min_improvement"`
	RollbackThreshold float64 `json:"rollback_threshold" mapstructure:"rollback_threshold"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSamplesPerArm:  1000,
		Alpha:             0.05,
		MinImprovement:    0.01,
		RollbackThreshold: -0.02,
	}
}

// Experiment is the single active rollout of a canary model against
// production.
type Experiment struct {
	ID               string        `json:"id"`
	ControlVersion   string        `json:"control_version"`
	TreatmentVersion string        `json:"treatment_version"`
	TreatmentWeight  int           `json:"treatment_weight"`
	StartAt          time.Time     `json:"start_at"`
	EndAt            time.Time     `json:"end_at"`
	Duration         time.Duration `json:"duration"`
	Enabled          bool          `json:"enabled"`
	AutoPromote      bool          `json:"auto_promote"`
	Thresholds       Thresholds    `json:"thresholds"`
	Extensions       int           `json:"extensions"`
}

// ControlWeight is the share of traffic, in percent, that stays on
// production.
func (e Experiment) ControlWeight() int {
	return 100 - e.TreatmentWeight
}

// Expired reports whether the experiment window has closed at now.
func (e Experiment) Expired(now time.Time) bool {
	return !now.Before(e.EndAt)
}

// ArmResult aggregates outcomes of one arm. A success is a request whose
// model verdict agreed with the final decision.
type ArmResult struct {
	Samples   int `json:"samples"`
	Successes int `json:"successes"`
}

// Rate is the arm's success rate, 0 when it has no samples.
func (a ArmResult) Rate() float64 {
	if a.Samples == 0 {
		return 0
	}
	return float64(a.Successes) / float64(a.Samples)
}

type Results struct {
	Control   ArmResult `json:"control"`
	Treatment ArmResult `json:"treatment"`
}

// Empty reports whether neither arm has seen traffic.
func (r Results) Empty() bool {
	return r.Control.Samples == 0 && r.Treatment.Samples == 0
}

// Condition names the first unmet promotion requirement.
type Condition string

const (
	ConditionMet                     Condition = "met"
	ConditionInsufficientSamples     Condition = "insufficient_samples"
	ConditionNotSignificant          Condition = "not_significant"
	ConditionInsufficientImprovement Condition = "insufficient_improvement"
)

// Analysis is the statistical read of the current results.
type Analysis struct {
	Results     Results   `json:"results"`
	Lift        float64   `json:"lift"`
	ZScore      float64   `json:"z_score"`
	PValue      float64   `json:"p_value"`
	Significant bool      `json:"significant"`
	Condition   Condition `json:"condition"`
}

// Action is what a governor tick did.
type Action string

const (
	ActionNone       Action = "none"
	ActionWaiting    Action = "waiting"
	ActionReady      Action = "ready_for_promotion"
	ActionPromoted   Action = "promoted"
	ActionRolledBack Action = "rolled_back"
	ActionExtended   Action = "extended"
)

// Status is returned by Monitor and ResolveExpired.
type Status struct {
	Experiment *Experiment `json:"experiment,omitempty"`
	Analysis   *Analysis   `json:"analysis,omitempty"`
	Action     Action      `json:"action"`
	Reason     string      `json:"reason,omitempty"`
}

// PromotionRecord is one entry of the promotion history.
type PromotionRecord struct {
	ExperimentID string    `json:"experiment_id"`
	Version      string    `json:"version"`
	Previous     string    `json:"previous_version"`
	Lift         float64   `json:"lift"`
	PValue       float64   `json:"p_value"`
	Reason       string    `json:"reason"`
	PromotedAt   time.Time `json:"promoted_at"`
}

// Config holds the governor's defaults for new experiments.
type Config struct {
	TreatmentWeight int           `mapstructure:"treatment_weight"`
	Duration        time.Duration `mapstructure:"duration"`
	AutoPromote     bool          `mapstructure:"auto_promote"`
	// MaxExtensions bounds how often an inconclusive experiment is extended
	// before it is rolled back.
	MaxExtensions    int           `mapstructure:"max_extensions"`
	PromotionHistory int           `mapstructure:"promotion_history"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	Thresholds       Thresholds    `mapstructure:"thresholds"`
}

func DefaultConfig() Config {
	return Config{
		TreatmentWeight:  10,
		Duration:         24 * time.Hour,
		MaxExtensions:    3,
		PromotionHistory: 50,
		CheckInterval:    15 * time.Minute,
		Thresholds:       DefaultThresholds(),
	}
}
