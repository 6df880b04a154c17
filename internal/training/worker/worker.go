// Package worker triggers the training pipeline on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idscore/internal/training/models"
)

// Runner executes one pipeline run.
type Runner interface {
	RunPipeline(ctx context.Context, opts models.RunOptions) (*models.Result, error)
}

type Worker struct {
	runner   Runner
	interval time.Duration
	opts     models.RunOptions
	logger   *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithRunOptions sets the options passed to every scheduled run.
func WithRunOptions(opts models.RunOptions) Option {
	return func(w *Worker) {
		w.opts = opts
	}
}

func New(runner Runner, interval time.Duration, opts ...Option) (*Worker, error) {
	if runner == nil {
		return nil, errors.New("pipeline runner is required")
	}
	if interval <= 0 {
		return nil, errors.New("training interval must be positive")
	}
	w := &Worker{runner: runner, interval: interval, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start runs the pipeline every interval until ctx is cancelled. Failed or
// refused runs are logged and the schedule continues.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "training worker started", "interval", w.interval.String())
	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "training worker stopped")
			return ctx.Err()
		}
	}
}

// RunOnce triggers a single scheduled run.
func (w *Worker) RunOnce(ctx context.Context) {
	res, err := w.runner.RunPipeline(ctx, w.opts)
	if err != nil {
		w.logger.ErrorContext(ctx, "scheduled training run failed", "error", err)
		return
	}
	if !res.Success {
		w.logger.InfoContext(ctx, "scheduled training run refused",
			"run_id", res.RunID,
			"reason", string(res.Reason),
		)
	}
}
