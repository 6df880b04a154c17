package handler

import (
	"idscore/internal/training/models"
	dErrors "idscore/pkg/domain-errors"
)

const maxLookbackDays = 90

// RunRequest is the HTTP request body for POST /admin/training/run. An
// empty body runs with the configured defaults.
type RunRequest struct {
	LookbackDays int  `json:"lookback_days"`
	Incremental  bool `json:"incremental"`
}

// Validate implements httputil.Validatable.
func (r *RunRequest) Validate() error {
	if r == nil {
		return nil
	}
	if r.LookbackDays < 0 || r.LookbackDays > maxLookbackDays {
		return dErrors.New(dErrors.CodeValidation, "lookback_days must be between 0 and 90")
	}
	return nil
}

func (r *RunRequest) Options() models.RunOptions {
	if r == nil {
		return models.RunOptions{}
	}
	return models.RunOptions{LookbackDays: r.LookbackDays, Incremental: r.Incremental}
}
