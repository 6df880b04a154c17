// Package worker drives the experiment governor on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idscore/internal/experiment/models"
)

// Ticker advances the active experiment by one check.
type Ticker interface {
	Tick(ctx context.Context) (*models.Status, error)
}

type Worker struct {
	governor Ticker
	interval time.Duration
	logger   *slog.Logger
}

func New(governor Ticker, interval time.Duration, logger *slog.Logger) (*Worker, error) {
	if governor == nil {
		return nil, errors.New("experiment governor is required")
	}
	if interval <= 0 {
		return nil, errors.New("check interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{governor: governor, interval: interval, logger: logger}, nil
}

// Start checks the experiment every interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st, err := w.governor.Tick(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "experiment check failed", "error", err)
				continue
			}
			if st.Action != models.ActionNone && st.Action != models.ActionWaiting {
				w.logger.InfoContext(ctx, "experiment advanced",
					"action", string(st.Action),
					"reason", st.Reason,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
