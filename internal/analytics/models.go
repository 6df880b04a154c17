// Package analytics reads scored traffic back from the analytics store: the
// bounded observation window the training pipeline labels, and per-arm
// outcomes of a running experiment.
package analytics

import (
	"idscore/internal/ensemble"
	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
)

// DefaultTable is the analytics table both sources read.
const DefaultTable = "identifier_validations"

// Record is one row of the analytics table.
type Record struct {
	labeling.Observation
	ExperimentID string
	Variant      expmodels.Variant
	// Prediction is the verdict of the model arm that served the request.
	Prediction ensemble.Label
}

// Success reports whether the serving model agreed with the final decision:
// fraud with block, legit with anything else.
func (r Record) Success() bool {
	return (r.Prediction == ensemble.Fraud) == (r.Decision == labeling.DecisionBlock)
}
