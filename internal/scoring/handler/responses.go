package handler

import (
	"idscore/internal/scoring/models"
)

// ClassifyResponse is the HTTP response for POST /v1/classify.
type ClassifyResponse struct {
	LocalPart    string  `json:"local_part"`
	Available    bool    `json:"available"`
	Prediction   string  `json:"prediction,omitempty"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	Variant      string  `json:"variant,omitempty"`
	ModelVersion string  `json:"model_version,omitempty"`
	ExperimentID string  `json:"experiment_id,omitempty"`
}

func FromResult(r models.Result) *ClassifyResponse {
	return &ClassifyResponse{
		LocalPart:    r.LocalPart,
		Available:    r.Available,
		Prediction:   string(r.Prediction),
		Confidence:   r.Confidence,
		Reasoning:    r.Reasoning,
		Variant:      string(r.Variant),
		ModelVersion: r.ModelVersion,
		ExperimentID: r.ExperimentID,
	}
}

// RuleUsageResponse is the share of live classifications each ensemble rule
// decided.
type RuleUsageResponse struct {
	Rules map[string]float64 `json:"rules"`
}
