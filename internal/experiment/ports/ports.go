// Package ports defines the interfaces the experiment governor consumes.
package ports

import (
	"context"
	"time"

	"idscore/internal/artifact"
	"idscore/internal/experiment/models"
	"idscore/pkg/platform/audit"
)

// AuditPublisher emits audit events for rollout decisions.
type AuditPublisher = audit.Emitter

// Store keeps the single experiment configuration and the promotion history.
type Store interface {
	// Current returns the stored experiment, enabled or not, or
	// sentinel.ErrNotFound when none was ever created.
	Current(ctx context.Context) (*models.Experiment, error)
	// Create stores exp unless an enabled experiment exists, in which case
	// it returns sentinel.ErrConflict.
	Create(ctx context.Context, exp models.Experiment) error
	// Save overwrites the stored experiment.
	Save(ctx context.Context, exp models.Experiment) error
	AppendPromotion(ctx context.Context, rec models.PromotionRecord) error
	// Promotions returns up to limit records, newest first.
	Promotions(ctx context.Context, limit int) ([]models.PromotionRecord, error)
}

// ModelRegistry moves eras between the canary and production slots.
type ModelRegistry interface {
	Pointer(ctx context.Context) (*artifact.Pointer, error)
	StageCanary(ctx context.Context, version string) error
	PromoteCanary(ctx context.Context, reason string) (*artifact.Pointer, error)
	DeleteCanary(ctx context.Context) error
}

// ResultsSource aggregates per-arm outcomes from the analytics store.
type ResultsSource interface {
	ExperimentResults(ctx context.Context, experimentID string, since time.Time) (models.Results, error)
}
