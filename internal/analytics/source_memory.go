package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
)

// InMemorySource serves records held in memory. Used by tests and by the
// server when no analytics database is configured.
type InMemorySource struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemory(records ...Record) *InMemorySource {
	return &InMemorySource{records: records}
}

func (s *InMemorySource) Add(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// AddObservations records plain observations outside any experiment.
func (s *InMemorySource) AddObservations(observations ...labeling.Observation) {
	records := make([]Record, len(observations))
	for i, o := range observations {
		records[i] = Record{Observation: o}
	}
	s.Add(records...)
}

func (s *InMemorySource) FetchObservations(_ context.Context, since time.Time, limit int) ([]labeling.Observation, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("fetch observations: limit must be positive, got %d", limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []labeling.Observation
	for _, r := range s.records {
		if r.ObservedAt.Before(since) {
			continue
		}
		out = append(out, r.Observation)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemorySource) ExperimentResults(_ context.Context, experimentID string, since time.Time) (expmodels.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res expmodels.Results
	for _, r := range s.records {
		if r.ExperimentID != experimentID || r.ObservedAt.Before(since) {
			continue
		}
		var arm *expmodels.ArmResult
		switch r.Variant {
		case expmodels.VariantControl:
			arm = &res.Control
		case expmodels.VariantTreatment:
			arm = &res.Treatment
		default:
			continue
		}
		arm.Samples++
		if r.Success() {
			arm.Successes++
		}
	}
	return res, nil
}
