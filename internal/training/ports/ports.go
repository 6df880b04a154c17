// Package ports defines the interfaces the training pipeline consumes.
package ports

import (
	"context"
	"time"

	"idscore/internal/artifact"
	"idscore/internal/ensemble"
	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
	"idscore/internal/training/models"
	"idscore/pkg/platform/audit"
)

// AuditPublisher emits audit events for training outcomes.
type AuditPublisher = audit.Emitter

// ObservationSource reads recent scored traffic from the analytics store.
type ObservationSource interface {
	// FetchObservations returns at most limit observations recorded at or
	// after since. Order is unspecified.
	FetchObservations(ctx context.Context, since time.Time, limit int) ([]labeling.Observation, error)
}

// Locker is the cross-run advisory lock.
type Locker interface {
	// Acquire returns a release token, or sentinel.ErrLockHeld when another
	// run holds the lock.
	Acquire(ctx context.Context, ttl time.Duration) (string, error)

	// Release frees the lock if token still owns it. Releasing an expired or
	// already released lock is not an error.
	Release(ctx context.Context, token string) error
}

// HistoryStore keeps the capped, newest-first run history.
type HistoryStore interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// ModelRegistry reads and writes model eras.
type ModelRegistry interface {
	LoadProduction(ctx context.Context) (*artifact.Loaded, error)
	SaveCandidate(ctx context.Context, version string, e *ensemble.Ensemble, info artifact.Info) error
	PromoteCandidate(ctx context.Context, version, reason string) (*artifact.Pointer, error)
}

// ExperimentStarter stages a validated candidate behind a rollout.
type ExperimentStarter interface {
	Create(ctx context.Context, treatmentVersion string) (*expmodels.Experiment, error)
}
