// Package service runs the training pipeline: lock, fetch, label, screen for
// poisoning, train, validate, persist and unlock.
//
// A run never writes production until both the anomaly gate and the
// validation gate have passed in that same run. Every refusal is recorded in
// the training history with its reason.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idscore/internal/anomaly"
	"idscore/internal/artifact"
	"idscore/internal/ensemble"
	"idscore/internal/labeling"
	"idscore/internal/markov"
	"idscore/internal/training/metrics"
	"idscore/internal/training/models"
	"idscore/internal/training/ports"
	"idscore/internal/validation"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/audit"
	"idscore/pkg/platform/sentinel"
	"idscore/pkg/requestcontext"
)

type Service struct {
	source         ports.ObservationSource
	locker         ports.Locker
	history        ports.HistoryStore
	registry       ports.ModelRegistry
	experiments    ports.ExperimentStarter
	auditPublisher ports.AuditPublisher

	labeler   *labeling.Labeler
	quality   labeling.QualityGate
	anomaly   *anomaly.Gate
	validator *validation.Gate

	cfg     models.Config
	orders  []int
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	newRand func() *rand.Rand
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithConfig(cfg models.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithExperiments stages validated models as canaries when a production era
// exists and the config enables experiments.
func WithExperiments(starter ports.ExperimentStarter) Option {
	return func(s *Service) {
		s.experiments = starter
	}
}

func WithLabeler(l *labeling.Labeler) Option {
	return func(s *Service) {
		s.labeler = l
	}
}

func WithQualityGate(g labeling.QualityGate) Option {
	return func(s *Service) {
		s.quality = g
	}
}

func WithAnomalyGate(g *anomaly.Gate) Option {
	return func(s *Service) {
		s.anomaly = g
	}
}

func WithValidationGate(g *validation.Gate) Option {
	return func(s *Service) {
		s.validator = g
	}
}

// WithOrders sets the model orders trained per era. It must match the
// registry's orders.
func WithOrders(orders []int) Option {
	return func(s *Service) {
		if len(orders) > 0 {
			s.orders = slices.Sorted(slices.Values(orders))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSeed makes the holdout split and adaptive skipping reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

func New(source ports.ObservationSource, locker ports.Locker, history ports.HistoryStore, registry ports.ModelRegistry, opts ...Option) (*Service, error) {
	switch {
	case source == nil:
		return nil, errors.New("observation source is required")
	case locker == nil:
		return nil, errors.New("training locker is required")
	case history == nil:
		return nil, errors.New("history store is required")
	case registry == nil:
		return nil, errors.New("model registry is required")
	}

	s := &Service{
		source:    source,
		locker:    locker,
		history:   history,
		registry:  registry,
		labeler:   labeling.NewLabeler(),
		quality:   labeling.DefaultQualityGate(),
		anomaly:   anomaly.NewGate(anomaly.DefaultConfig()),
		validator: validation.NewGate(validation.DefaultThresholds()),
		cfg:       models.DefaultConfig(),
		orders:    slices.Clone(artifact.DefaultOrders),
		logger:    slog.Default(),
		tracer:    otel.Tracer("idscore/internal/training"),
		now:       time.Now,
	}
	s.newRand = func() *rand.Rand {
		seed := uint64(s.now().UnixNano())
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunPipeline executes one training run. Refusals come back as a Result with
// Success false and a Reason and a nil error; the error is reserved for
// internal failures, which also carry ReasonInternalError.
//
// The lock is released on every exit path, panics included.
func (s *Service) RunPipeline(ctx context.Context, opts models.RunOptions) (res *models.Result, err error) {
	runID := uuid.NewString()
	ctx = requestcontext.WithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "training.RunPipeline", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Bool("incremental", opts.Incremental),
	))
	defer span.End()

	res = &models.Result{
		RunID:       runID,
		State:       models.StateIdle,
		Incremental: opts.Incremental,
		StartedAt:   s.now(),
	}

	token, err := s.locker.Acquire(ctx, s.cfg.LockTTL)
	if errors.Is(err, sentinel.ErrLockHeld) {
		return s.refuse(ctx, res, models.ReasonAlreadyInProgress, "another training run holds the lock")
	}
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("acquire training lock: %w", err))
	}
	res.State = models.StateLocked

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "training run panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res, err = s.fail(ctx, res, fmt.Errorf("panic in %s: %v", res.State, r))
		}
		if relErr := s.locker.Release(context.WithoutCancel(ctx), token); relErr != nil {
			s.logger.WarnContext(ctx, "failed to release training lock", "error", relErr)
		}
		res.State = models.StateUnlocked
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(res.Reason))
		}
	}()

	return s.run(ctx, res, opts)
}

func (s *Service) run(ctx context.Context, res *models.Result, opts models.RunOptions) (*models.Result, error) {
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = s.cfg.DefaultLookbackDays
	}
	since := res.StartedAt.AddDate(0, 0, -lookback)

	stageCtx, done := s.enter(ctx, res, models.StateFetching)
	observations, err := s.source.FetchObservations(stageCtx, since, s.cfg.MaxRows)
	done()
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("fetch observations: %w", err))
	}
	res.Observations = len(observations)
	if len(observations) < s.cfg.MinSamples {
		return s.refuse(ctx, res, models.ReasonInsufficientData,
			fmt.Sprintf("%d observations since %s, need %d", len(observations), since.Format(time.DateOnly), s.cfg.MinSamples))
	}

	_, done = s.enter(ctx, res, models.StateLabeling)
	batch := s.labeler.BuildBatch(observations)
	done()
	res.Batch = batch.Stats
	s.metrics.SetBatch(batch.Stats.Fraud, batch.Stats.Legit)
	if labeled := batch.Stats.Fraud + batch.Stats.Legit; labeled < s.cfg.MinSamples {
		return s.refuse(ctx, res, models.ReasonInsufficientData,
			fmt.Sprintf("%d confidently labeled samples, need %d", labeled, s.cfg.MinSamples))
	}
	if err := s.quality.Check(batch); err != nil {
		return s.refuse(ctx, res, models.ReasonBatchRejected, err.Error())
	}

	stageCtx, done = s.enter(ctx, res, models.StateAnomalyChecking)
	history, err := s.history.Recent(stageCtx, s.cfg.HistoryLimit)
	if err != nil {
		done()
		return s.fail(ctx, res, fmt.Errorf("read training history: %w", err))
	}
	report := s.anomaly.Check(batch, baselineVolumes(history, s.cfg.BaselineRuns))
	done()
	res.Anomaly = &report
	s.metrics.SetAnomalyScore(report.Score)
	if !report.Safe {
		return s.refuse(ctx, res, models.ReasonAnomalyDetected,
			fmt.Sprintf("anomaly score %.2f reached threshold %.2f", report.Score, report.Threshold))
	}

	stageCtx, done = s.enter(ctx, res, models.StateTraining)
	production, err := s.loadProduction(stageCtx)
	if err != nil {
		done()
		return s.fail(ctx, res, err)
	}
	rng := s.newRand()
	fraudTrain, fraudHoldout := validation.Split(batch.Fraud, s.cfg.HoldoutRatio, rng)
	legitTrain, legitHoldout := validation.Split(batch.Legit, s.cfg.HoldoutRatio, rng)
	holdout := slices.Concat(fraudHoldout, legitHoldout)
	candidate, err := s.train(stageCtx, production, fraudTrain, legitTrain, opts.Incremental, rng)
	done()
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("train candidate: %w", err))
	}

	_, done = s.enter(ctx, res, models.StateValidating)
	var current *ensemble.Ensemble
	if production != nil {
		current = production.Ensemble
	}
	verdict, err := s.validator.Validate(candidate, current, holdout)
	done()
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("validate candidate: %w", err))
	}
	res.Validation = &verdict
	s.metrics.SetCandidateF1(verdict.New.F1)
	if verdict.Recommendation == validation.Reject {
		return s.refuse(ctx, res, models.ReasonValidationFailed,
			fmt.Sprintf("%d validation issues, f1 %.4f", len(verdict.Issues), verdict.New.F1))
	}

	stageCtx, done = s.enter(ctx, res, models.StatePersisting)
	defer done()
	return s.persist(stageCtx, res, candidate, production, verdict, len(fraudTrain), len(legitTrain))
}

// persist saves the candidate era and moves it toward production according
// to the validation verdict.
func (s *Service) persist(ctx context.Context, res *models.Result, candidate *ensemble.Ensemble, production *artifact.Loaded, verdict validation.Report, fraudN, legitN int) (*models.Result, error) {
	version := artifact.NewVersion(res.StartedAt)
	res.Version = version

	accuracy, f1, score := verdict.New.Accuracy, verdict.New.F1, res.Anomaly.Score
	info := artifact.Info{
		Accuracy:     &accuracy,
		F1:           &f1,
		FraudSamples: fraudN,
		LegitSamples: legitN,
		AnomalyScore: &score,
	}
	if err := s.registry.SaveCandidate(ctx, version, candidate, info); err != nil {
		return s.fail(ctx, res, fmt.Errorf("save candidate: %w", err))
	}

	switch {
	case verdict.Recommendation == validation.ManualReview:
		res.Action = models.ActionHeldForReview
		res.Message = fmt.Sprintf("%d validation issues need review", len(verdict.Issues))
		audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCandidateHeld,
			"version", version,
			"reason", string(verdict.Recommendation),
		)

	case production == nil:
		if _, err := s.registry.PromoteCandidate(ctx, version, "bootstrap"); err != nil {
			return s.fail(ctx, res, fmt.Errorf("promote bootstrap candidate: %w", err))
		}
		res.Action = models.ActionDeployed
		audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventModelDeployed,
			"version", version,
			"reason", "bootstrap",
		)

	case s.experiments != nil && s.cfg.UseExperiments:
		exp, err := s.experiments.Create(ctx, version)
		if errors.Is(err, sentinel.ErrConflict) {
			res.Action = models.ActionHeldForReview
			res.Message = "an experiment is already running; candidate kept"
			audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCandidateHeld,
				"version", version,
				"reason", "experiment_active",
			)
			break
		}
		if err != nil {
			return s.fail(ctx, res, fmt.Errorf("start experiment: %w", err))
		}
		res.Action = models.ActionCanaryStaged
		res.ExperimentID = exp.ID

	default:
		ptr, err := s.registry.PromoteCandidate(ctx, version, "validated")
		if err != nil {
			return s.fail(ctx, res, fmt.Errorf("promote candidate: %w", err))
		}
		res.Action = models.ActionDeployed
		audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventModelDeployed,
			"version", version,
			"previous_version", ptr.PreviousVersion,
			"reason", "validated",
		)
	}

	res.Success = true
	s.metrics.MarkSuccess(s.now())
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventTrainingSucceeded,
		"version", version,
		"decision", string(res.Action),
		"fraud_samples", fraudN,
		"legit_samples", legitN,
		"f1", verdict.New.F1,
	)
	return s.finish(ctx, res), nil
}

// loadProduction returns nil when no usable production era exists.
func (s *Service) loadProduction(ctx context.Context) (*artifact.Loaded, error) {
	loaded, err := s.registry.LoadProduction(ctx)
	switch {
	case err == nil:
		return loaded, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.logger.InfoContext(ctx, "no production era, training from scratch")
		return nil, nil
	case errors.Is(err, sentinel.ErrChecksumMismatch):
		s.logger.WarnContext(ctx, "production era failed checksum, treating as missing", "error", err)
		return nil, nil
	default:
		return nil, fmt.Errorf("load production era: %w", err)
	}
}

// train builds one legit and one fraud model per order. Incremental runs
// clone the production models and train on top with the adaptation rate;
// everything else starts empty and counts every sample.
func (s *Service) train(ctx context.Context, production *artifact.Loaded, fraud, legit []labeling.Sample, incremental bool, rng *rand.Rand) (*ensemble.Ensemble, error) {
	if incremental && production == nil {
		s.logger.InfoContext(ctx, "incremental run without production era, training fresh models")
	}

	pairs := make(map[int]ensemble.Pair, len(s.orders))
	for _, order := range s.orders {
		rate := markov.FullBatch
		var pair ensemble.Pair
		if incremental && production != nil {
			if prior, ok := production.Ensemble.Pair(order); ok {
				pair = ensemble.Pair{Legit: prior.Legit.Clone(markov.WithRand(rng)), Fraud: prior.Fraud.Clone(markov.WithRand(rng))}
				rate = s.cfg.AdaptationRate
			}
		}
		if pair.Legit == nil {
			l, err := markov.New(order, markov.WithRand(rng))
			if err != nil {
				return nil, err
			}
			f, err := markov.New(order, markov.WithRand(rng))
			if err != nil {
				return nil, err
			}
			pair = ensemble.Pair{Legit: l, Fraud: f}
		}

		var trained int
		for _, sample := range legit {
			if pair.Legit.Train(sample.Identifier, rate) {
				trained++
			}
		}
		for _, sample := range fraud {
			if pair.Fraud.Train(sample.Identifier, rate) {
				trained++
			}
		}
		s.logger.DebugContext(ctx, "order trained",
			"order", order,
			"samples", len(legit)+len(fraud),
			"counted", trained,
		)
		pairs[order] = pair
	}
	return ensemble.New(pairs)
}

// History returns up to limit entries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read training history")
	}
	return entries, nil
}

func (s *Service) enter(ctx context.Context, res *models.Result, state models.State) (context.Context, func()) {
	res.State = state
	ctx, span := s.tracer.Start(ctx, "training."+string(state))
	start := time.Now()
	return ctx, func() {
		span.End()
		s.metrics.ObserveStage(string(state), time.Since(start))
	}
}

var refusalEvents = map[models.Reason]audit.AuditEvent{
	models.ReasonBatchRejected:    audit.EventBatchRejected,
	models.ReasonAnomalyDetected:  audit.EventAnomalyDetected,
	models.ReasonValidationFailed: audit.EventValidationFailed,
}

func (s *Service) refuse(ctx context.Context, res *models.Result, reason models.Reason, message string) (*models.Result, error) {
	res.Reason = reason
	res.Message = message
	res.Action = models.ActionRefused
	res.FailedAt = res.State

	event, ok := refusalEvents[reason]
	if !ok {
		event = audit.EventTrainingRefused
	}
	attrs := []any{"reason", string(reason), "message", message, "state", string(res.State)}
	if res.Anomaly != nil {
		attrs = append(attrs, "anomaly_score", res.Anomaly.Score)
	}
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
	return s.finish(ctx, res), nil
}

func (s *Service) fail(ctx context.Context, res *models.Result, err error) (*models.Result, error) {
	res.Success = false
	res.Reason = models.ReasonInternalError
	res.Message = err.Error()
	res.Action = models.ActionFailed
	res.FailedAt = res.State
	s.logger.ErrorContext(ctx, "training run failed",
		"state", string(res.State),
		"error", err,
	)
	return s.finish(ctx, res), dErrors.Wrap(err, dErrors.CodeInternal, "training run failed")
}

// finish stamps the duration, records metrics and appends the history entry.
// A history write failure is logged and does not change the outcome.
func (s *Service) finish(ctx context.Context, res *models.Result) *models.Result {
	res.Duration = s.now().Sub(res.StartedAt)

	outcome := "success"
	if !res.Success {
		outcome = string(res.Reason)
	}
	s.metrics.ObserveRun(outcome, res.Duration)

	if err := s.history.Append(context.WithoutCancel(ctx), res.Entry()); err != nil {
		s.logger.WarnContext(ctx, "failed to append training history", "error", err)
	}
	s.logger.InfoContext(ctx, "training run finished",
		"success", res.Success,
		"reason", string(res.Reason),
		"action", string(res.Action),
		"version", res.Version,
		"state", string(res.State),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res
}

// baselineVolumes returns the class volumes of the most recent successful
// runs, newest first.
func baselineVolumes(history []models.HistoryEntry, runs int) []anomaly.Volume {
	var out []anomaly.Volume
	for _, h := range history {
		if !h.Succeeded() {
			continue
		}
		out = append(out, anomaly.Volume{Fraud: h.FraudCount, Legit: h.LegitCount})
		if runs > 0 && len(out) == runs {
			break
		}
	}
	return out
}
