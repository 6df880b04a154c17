package handler

import (
	"strings"

	dErrors "idscore/pkg/domain-errors"
)

// CreateRequest is the HTTP request body for POST /admin/experiment.
type CreateRequest struct {
	TreatmentVersion string `json:"treatment_version"`
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.TreatmentVersion = strings.TrimSpace(r.TreatmentVersion)
	if r.TreatmentVersion == "" {
		return dErrors.New(dErrors.CodeValidation, "treatment_version is required")
	}
	return nil
}

// RollbackRequest is the optional body for POST /admin/experiment/rollback.
type RollbackRequest struct {
	Reason string `json:"reason"`
}

// Validate implements httputil.Validatable.
func (r *RollbackRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > 200 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 200 characters")
	}
	return nil
}

func (r *RollbackRequest) reason() string {
	if r == nil {
		return ""
	}
	return r.Reason
}
