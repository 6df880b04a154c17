// Package models holds the training pipeline's value types.
package models

import (
	"time"

	"idscore/internal/anomaly"
	"idscore/internal/labeling"
	"idscore/internal/validation"
)

// Reason is the machine-readable cause of a refused or failed run.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientData  Reason = "insufficient_data"
	ReasonAlreadyInProgress Reason = "training_already_in_progress"
	ReasonBatchRejected     Reason = "batch_rejected"
	ReasonAnomalyDetected   Reason = "anomaly_detected"
	ReasonValidationFailed  Reason = "validation_failed"
	ReasonInternalError     Reason = "internal_error"
)

// Retryable reports whether a later run can succeed without operator action.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonInsufficientData, ReasonAlreadyInProgress, ReasonInternalError:
		return true
	}
	return false
}

// State is the pipeline stage a run reached.
type State string

const (
	StateIdle            State = "idle"
	StateLocked          State = "locked"
	StateFetching        State = "fetching"
	StateLabeling        State = "labeling"
	StateAnomalyChecking State = "anomaly_checking"
	StateTraining        State = "training"
	StateValidating      State = "validating"
	StatePersisting      State = "persisting"
	StateUnlocked        State = "unlocked"
)

// Action is what a run did with its models.
type Action string

const (
	ActionDeployed      Action = "deployed"
	ActionCanaryStaged  Action = "canary_staged"
	ActionHeldForReview Action = "held_for_review"
	ActionRefused       Action = "refused"
	ActionFailed        Action = "failed"
)

// RunOptions are per-run parameters.
type RunOptions struct {
	// LookbackDays bounds the observation window. Zero uses the configured
	// default.
	LookbackDays int `json:"lookback_days"`
	// Incremental trains on top of the production models instead of from
	// scratch.
	Incremental bool `json:"incremental"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID        string             `json:"run_id"`
	Success      bool               `json:"success"`
	Version      string             `json:"version,omitempty"`
	Reason       Reason             `json:"reason,omitempty"`
	Message      string             `json:"message,omitempty"`
	Action       Action             `json:"action"`
	State        State              `json:"state"`
	FailedAt     State              `json:"failed_at,omitempty"`
	Incremental  bool               `json:"incremental"`
	Observations int                `json:"observations"`
	Batch        labeling.Stats     `json:"batch"`
	Anomaly      *anomaly.Report    `json:"anomaly,omitempty"`
	Validation   *validation.Report `json:"validation,omitempty"`
	ExperimentID string             `json:"experiment_id,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	Duration     time.Duration      `json:"duration"`
}

// HistoryEntry is one record of the capped, newest-first training history.
type HistoryEntry struct {
	Timestamp    time.Time           `json:"timestamp"`
	RunID        string              `json:"run_id,omitempty"`
	Version      string              `json:"version,omitempty"`
	FraudCount   int                 `json:"fraud_count"`
	LegitCount   int                 `json:"legit_count"`
	DurationMS   int64               `json:"duration_ms"`
	Validation   *validation.Metrics `json:"validation,omitempty"`
	AnomalyScore *float64            `json:"anomaly_score,omitempty"`
	Action       Action              `json:"action"`
	Reason       Reason              `json:"reason,omitempty"`
}

// Succeeded reports whether the entry describes a run that passed both
// gates. Only those count toward the anomaly baseline.
func (h HistoryEntry) Succeeded() bool {
	return h.Reason == ReasonNone && (h.Action == ActionDeployed || h.Action == ActionCanaryStaged || h.Action == ActionHeldForReview)
}

// Entry converts a result into its history record.
func (r Result) Entry() HistoryEntry {
	e := HistoryEntry{
		Timestamp:  r.StartedAt,
		RunID:      r.RunID,
		Version:    r.Version,
		FraudCount: r.Batch.Fraud,
		LegitCount: r.Batch.Legit,
		DurationMS: r.Duration.Milliseconds(),
		Action:     r.Action,
		Reason:     r.Reason,
	}
	if r.Validation != nil {
		m := r.Validation.New
		e.Validation = &m
	}
	if r.Anomaly != nil {
		score := r.Anomaly.Score
		e.AnomalyScore = &score
	}
	return e
}

// Config holds the pipeline's tunables.
type Config struct {
	MinSamples          int           `mapstructure:"min_samples"`
	MaxRows             int           `mapstructure:"max_rows"`
	DefaultLookbackDays int           `mapstructure:"lookback_days"`
	HoldoutRatio        float64       `mapstructure:"holdout_ratio"`
	LockTTL             time.Duration `mapstructure:"lock_ttl"`
	AdaptationRate      float64       `mapstructure:"adaptation_rate"`
	HistoryLimit        int           `mapstructure:"history_limit"`
	BaselineRuns        int           `mapstructure:"baseline_runs"`
	// UseExperiments stages validated models as a canary when a production
	// model exists, instead of promoting them directly.
	UseExperiments bool          `mapstructure:"use_experiments"`
	Interval       time.Duration `mapstructure:"interval"`
}

func DefaultConfig() Config {
	return Config{
		MinSamples:          500,
		MaxRows:             100_000,
		DefaultLookbackDays: 7,
		HoldoutRatio:        0.2,
		LockTTL:             10 * time.Minute,
		AdaptationRate:      0.3,
		HistoryLimit:        20,
		BaselineRuns:        5,
		UseExperiments:      true,
		Interval:            6 * time.Hour,
	}
}
