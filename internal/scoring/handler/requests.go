package handler

import (
	"strings"

	dErrors "idscore/pkg/domain-errors"
)

// maxIdentifierLength is the longest address RFC 5321 allows.
const maxIdentifierLength = 320

// ClassifyRequest is the HTTP request body for POST /v1/classify.
type ClassifyRequest struct {
	Identifier string `json:"identifier"`
}

// Validate implements httputil.Validatable.
func (r *ClassifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Identifier) > maxIdentifierLength {
		return dErrors.New(dErrors.CodeValidation, "identifier must be at most 320 characters")
	}
	if strings.TrimSpace(r.Identifier) == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	return nil
}
