// Package service answers live classification requests from an in-memory
// snapshot of the production and canary eras.
//
// Classify never performs I/O. The snapshot is swapped atomically by
// Refresh, and concurrent refreshes collapse into one load.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"idscore/internal/artifact"
	"idscore/internal/ensemble"
	expmodels "idscore/internal/experiment/models"
	"idscore/internal/markov"
	"idscore/internal/scoring/metrics"
	"idscore/internal/scoring/models"
	"idscore/internal/scoring/ports"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/sentinel"
)

const refreshKey = "snapshot"

type snapshot struct {
	production *artifact.Loaded
	canary     *artifact.Loaded
	experiment *expmodels.Experiment
	loadedAt   time.Time
}

type Service struct {
	models      ports.ModelSource
	experiments ports.ExperimentSource
	strategy    ensemble.Strategy
	usage       *ensemble.RuleUsage
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	current atomic.Pointer[snapshot]
	group   singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStrategy overrides the cascade strategy used for live verdicts.
func WithStrategy(strategy ensemble.Strategy) Option {
	return func(s *Service) {
		if strategy != nil {
			s.strategy = strategy
		}
	}
}

// WithExperiments enables traffic splitting for the active experiment.
func WithExperiments(source ports.ExperimentSource) Option {
	return func(s *Service) {
		s.experiments = source
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(source ports.ModelSource, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("model source is required")
	}
	s := &Service{
		models:   source,
		strategy: ensemble.DefaultCascade(),
		usage:    ensemble.NewRuleUsage(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Classify scores the local part of input. Without a loaded production era it
// answers Available=false and schedules a background refresh.
func (s *Service) Classify(ctx context.Context, input string) (models.Result, error) {
	localPart := markov.LocalPart(input)
	if localPart == "" {
		return models.Result{}, dErrors.New(dErrors.CodeInvalidInput, "identifier has no scorable local part")
	}

	snap := s.current.Load()
	if snap == nil || snap.production == nil {
		if snap == nil {
			s.refreshInBackground()
		}
		s.metrics.ObserveUnavailable()
		return models.Result{LocalPart: localPart, Reasoning: models.ReasonNoModel}, nil
	}

	era, variant, expID := snap.route(localPart)
	verdict := era.Ensemble.Classify(localPart, s.strategy)
	s.usage.Record(verdict.Reasoning)
	s.metrics.ObserveClassification(string(variant), string(verdict.Label), verdict.Reasoning)

	return models.Result{
		LocalPart:    localPart,
		Prediction:   verdict.Label,
		Confidence:   verdict.Confidence,
		Reasoning:    verdict.Reasoning,
		Variant:      variant,
		ModelVersion: era.Version,
		ExperimentID: expID,
		Available:    true,
	}, nil
}

// route picks the arm for localPart. The split is a stable hash of the
// experiment id and the local part, so a given identifier always lands on
// the same arm for the lifetime of an experiment.
func (snap *snapshot) route(localPart string) (*artifact.Loaded, expmodels.Variant, string) {
	exp := snap.experiment
	if exp == nil || snap.canary == nil {
		return snap.production, expmodels.VariantControl, ""
	}
	bucket := xxhash.Sum64String(exp.ID+":"+localPart) % 100
	if bucket < uint64(exp.TreatmentWeight) {
		return snap.canary, expmodels.VariantTreatment, exp.ID
	}
	return snap.production, expmodels.VariantControl, exp.ID
}

// Refresh reloads the snapshot. Concurrent callers share one load. A
// missing or corrupt production era leaves scoring unavailable; any other
// error keeps the previous snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do(refreshKey, func() (any, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *Service) refreshInBackground() {
	s.group.DoChan(refreshKey, func() (any, error) {
		return nil, s.load(context.Background())
	})
}

// Start refreshes immediately and then every interval until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context, interval time.Duration) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial model refresh failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.WarnContext(ctx, "model refresh failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveRefresh(err, time.Since(start)) }()

	next := &snapshot{loadedAt: s.now()}
	next.production, err = s.optional(ctx, "production", s.models.LoadProduction)
	if err != nil {
		return err
	}

	if next.production != nil && s.experiments != nil {
		exp, err := s.experiments.Current(ctx)
		switch {
		case err == nil && exp.Enabled:
			canary, err := s.optional(ctx, "canary", s.models.LoadCanary)
			if err != nil {
				return err
			}
			if canary != nil && canary.Version == exp.TreatmentVersion {
				next.canary, next.experiment = canary, exp
			} else if canary != nil {
				s.logger.WarnContext(ctx, "canary era does not match experiment treatment",
					"canary_version", canary.Version,
					"treatment_version", exp.TreatmentVersion,
				)
			}
		case err == nil, errors.Is(err, sentinel.ErrNotFound):
		default:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read experiment")
		}
	}

	previous := s.current.Swap(next)
	if previous == nil || version(previous.production) != version(next.production) || version(previous.canary) != version(next.canary) {
		s.logger.InfoContext(ctx, "scoring snapshot loaded",
			"production_version", version(next.production),
			"canary_version", version(next.canary),
		)
	}
	return nil
}

// optional loads one era, mapping a missing or corrupt era to nil.
func (s *Service) optional(ctx context.Context, slot string, load func(context.Context) (*artifact.Loaded, error)) (*artifact.Loaded, error) {
	loaded, err := load(ctx)
	switch {
	case err == nil:
		return loaded, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, nil
	case errors.Is(err, sentinel.ErrChecksumMismatch):
		s.logger.ErrorContext(ctx, "era failed checksum, not serving it", "slot", slot, "error", err)
		return nil, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load "+slot+" era")
	}
}

// Snapshot describes what is currently being served.
func (s *Service) Snapshot() models.SnapshotInfo {
	snap := s.current.Load()
	if snap == nil {
		return models.SnapshotInfo{}
	}
	info := models.SnapshotInfo{
		ProductionVersion: version(snap.production),
		CanaryVersion:     version(snap.canary),
		LoadedAt:          snap.loadedAt,
	}
	if snap.experiment != nil {
		info.ExperimentID = snap.experiment.ID
		info.TreatmentWeight = snap.experiment.TreatmentWeight
	}
	return info
}

// RuleUsage returns each ensemble rule's share of live classifications.
func (s *Service) RuleUsage() map[string]float64 {
	return s.usage.Distribution()
}

func version(l *artifact.Loaded) string {
	if l == nil {
		return ""
	}
	return l.Version
}
