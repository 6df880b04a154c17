// Package models holds the live scoring value types.
package models

import (
	"time"

	"idscore/internal/ensemble"
	expmodels "idscore/internal/experiment/models"
)

// ReasonNoModel is the reasoning reported while no production era is loaded.
const ReasonNoModel = "no_model_available"

// Result is the verdict for one identifier.
type Result struct {
	LocalPart    string            `json:"local_part"`
	Prediction   ensemble.Label    `json:"prediction,omitempty"`
	Confidence   float64           `json:"confidence"`
	Reasoning    string            `json:"reasoning"`
	Variant      expmodels.Variant `json:"variant,omitempty"`
	ModelVersion string            `json:"model_version,omitempty"`
	ExperimentID string            `json:"experiment_id,omitempty"`
	Available    bool              `json:"available"`
}

// SnapshotInfo describes the eras live scoring currently serves.
type SnapshotInfo struct {
	ProductionVersion string    `json:"production_version,omitempty"`
	CanaryVersion     string    `json:"canary_version,omitempty"`
	ExperimentID      string    `json:"experiment_id,omitempty"`
	TreatmentWeight   int       `json:"treatment_weight"`
	LoadedAt          time.Time `json:"loaded_at"`
}
