// Package ports defines what live scoring reads from the artifact and
// experiment stores.
package ports

import (
	"context"

	"idscore/internal/artifact"
	expmodels "idscore/internal/experiment/models"
)

// ModelSource loads verified eras.
type ModelSource interface {
	LoadProduction(ctx context.Context) (*artifact.Loaded, error)
	LoadCanary(ctx context.Context) (*artifact.Loaded, error)
}

// ExperimentSource returns the stored experiment or sentinel.ErrNotFound.
type ExperimentSource interface {
	Current(ctx context.Context) (*expmodels.Experiment, error)
}
