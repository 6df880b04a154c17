// Package observations builds analytics observations with unambiguous labels.
package observations

import (
	"time"

	"idscore/internal/labeling"
)

// Fraud returns blocked, high-risk observations with no pattern
// family. The labeler marks each one fraud.
func Fraud(ids []string, at time.Time) []labeling.Observation {
	return observations(ids, labeling.DecisionBlock, 0.95, at)
}

// Legit returns allowed, low-risk observations. The labeler
// marks each one legit.
func Legit(ids []string, at time.Time) []labeling.Observation {
	return observations(ids, labeling.DecisionAllow, 0.05, at)
}

func observations(ids []string, decision labeling.Decision, risk float64, at time.Time) []labeling.Observation {
	out := make([]labeling.Observation, len(ids))
	for i, id := range ids {
		out[i] = labeling.Observation{
			LocalPart:  id,
			Decision:   decision,
			RiskScore:  risk,
			ObservedAt: at,
		}
	}
	return out
}
