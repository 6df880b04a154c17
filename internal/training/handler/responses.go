package handler

import (
	"time"

	"idscore/internal/anomaly"
	"idscore/internal/labeling"
	"idscore/internal/training/models"
	"idscore/internal/validation"
)

// RunResponse is the HTTP response for POST /admin/training/run.
type RunResponse struct {
	RunID        string             `json:"run_id"`
	Success      bool               `json:"success"`
	Action       string             `json:"action"`
	Version      string             `json:"version,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Retryable    bool               `json:"retryable"`
	Message      string             `json:"message,omitempty"`
	State        string             `json:"state"`
	FailedAt     string             `json:"failed_at,omitempty"`
	Incremental  bool               `json:"incremental"`
	Observations int                `json:"observations"`
	Batch        labeling.Stats     `json:"batch"`
	Anomaly      *anomaly.Report    `json:"anomaly,omitempty"`
	Validation   *validation.Report `json:"validation,omitempty"`
	ExperimentID string             `json:"experiment_id,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	DurationMS   int64              `json:"duration_ms"`
}

func FromResult(r *models.Result) *RunResponse {
	return &RunResponse{
		RunID:        r.RunID,
		Success:      r.Success,
		Action:       string(r.Action),
		Version:      r.Version,
		Reason:       string(r.Reason),
		Retryable:    !r.Success && r.Reason.Retryable(),
		Message:      r.Message,
		State:        string(r.State),
		FailedAt:     string(r.FailedAt),
		Incremental:  r.Incremental,
		Observations: r.Observations,
		Batch:        r.Batch,
		Anomaly:      r.Anomaly,
		Validation:   r.Validation,
		ExperimentID: r.ExperimentID,
		StartedAt:    r.StartedAt,
		DurationMS:   r.Duration.Milliseconds(),
	}
}

type HistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries"`
}
