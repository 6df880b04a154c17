// Package service is the experiment governor. It stages a validated
// candidate as a canary behind a traffic split, reads live outcomes for both
// arms and promotes or rolls back the canary.
//
// At most one experiment is enabled at a time. Monitor and ResolveExpired
// are safe to call on any schedule: with nothing enabled, or before expiry,
// they change nothing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idscore/internal/experiment/metrics"
	"idscore/internal/experiment/models"
	"idscore/internal/experiment/ports"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/audit"
	"idscore/pkg/platform/sentinel"
)

// Rollback reasons recorded on the audit trail.
const (
	ReasonNoResults    = "no_results"
	ReasonRegression   = "regression"
	ReasonInconclusive = "inconclusive"
	ReasonManual       = "manual"
)

type Service struct {
	store          ports.Store
	registry       ports.ModelRegistry
	results        ports.ResultsSource
	auditPublisher ports.AuditPublisher
	cfg            models.Config
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store ports.Store, registry ports.ModelRegistry, results ports.ResultsSource, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("experiment store is required")
	case registry == nil:
		return nil, errors.New("model registry is required")
	case results == nil:
		return nil, errors.New("results source is required")
	}
	s := &Service{
		store:    store,
		registry: registry,
		results:  results,
		cfg:      models.DefaultConfig(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create stages treatmentVersion as the canary and starts an experiment
// against the current production era. It returns an error wrapping
// sentinel.ErrConflict while another experiment is enabled.
func (s *Service) Create(ctx context.Context, treatmentVersion string) (*models.Experiment, error) {
	if treatmentVersion == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "treatment version is required")
	}
	ptr, err := s.registry.Pointer(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "no production era to run an experiment against")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read production pointer")
	}

	now := s.now()
	exp := models.Experiment{
		ID:               uuid.NewString(),
		ControlVersion:   ptr.Version,
		TreatmentVersion: treatmentVersion,
		TreatmentWeight:  s.cfg.TreatmentWeight,
		StartAt:          now,
		EndAt:            now.Add(s.cfg.Duration),
		Duration:         s.cfg.Duration,
		Enabled:          true,
		AutoPromote:      s.cfg.AutoPromote,
		Thresholds:       s.cfg.Thresholds,
	}
	if err := s.store.Create(ctx, exp); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "an experiment is already running")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store experiment")
	}

	if err := s.registry.StageCanary(ctx, treatmentVersion); err != nil {
		exp.Enabled = false
		if saveErr := s.store.Save(context.WithoutCancel(ctx), exp); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to disable experiment after staging error", "error", saveErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage canary")
	}

	s.metrics.Transition("created", true)
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventCanaryStaged,
		"experiment_id", exp.ID,
		"version", treatmentVersion,
		"control_version", exp.ControlVersion,
		"treatment_weight", exp.TreatmentWeight,
		"end_at", exp.EndAt,
	)
	return &exp, nil
}

// Active returns the enabled experiment, or an error with CodeNotFound.
func (s *Service) Active(ctx context.Context) (*models.Experiment, error) {
	exp, err := s.store.Current(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active experiment")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read experiment")
	}
	if !exp.Enabled {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active experiment")
	}
	return exp, nil
}

// Status reports the active experiment and its current analysis without
// acting on it.
func (s *Service) Status(ctx context.Context) (*models.Status, error) {
	exp, err := s.active(ctx)
	if err != nil || exp == nil {
		return &models.Status{Action: models.ActionNone}, err
	}
	analysis, err := s.analyze(ctx, exp)
	if err != nil {
		return nil, err
	}
	return &models.Status{Experiment: exp, Analysis: analysis, Action: models.ActionWaiting, Reason: string(analysis.Condition)}, nil
}

// Monitor checks the running experiment. When every promotion condition
// holds it promotes if the experiment allows auto promotion, and otherwise
// reports it ready. An unmet condition is reported with no action.
func (s *Service) Monitor(ctx context.Context) (*models.Status, error) {
	exp, err := s.active(ctx)
	if err != nil || exp == nil {
		return &models.Status{Action: models.ActionNone}, err
	}
	analysis, err := s.analyze(ctx, exp)
	if err != nil {
		return nil, err
	}
	st := &models.Status{Experiment: exp, Analysis: analysis}

	switch {
	case analysis.Condition != models.ConditionMet:
		st.Action = models.ActionWaiting
		st.Reason = string(analysis.Condition)
	case exp.AutoPromote:
		if _, err := s.promote(ctx, exp, analysis, "auto_promoted"); err != nil {
			return nil, err
		}
		st.Action = models.ActionPromoted
	default:
		st.Action = models.ActionReady
		st.Reason = "auto promotion disabled"
	}
	s.logger.InfoContext(ctx, "experiment checked",
		"experiment_id", exp.ID,
		"action", string(st.Action),
		"condition", string(analysis.Condition),
		"lift", analysis.Lift,
		"p_value", analysis.PValue,
	)
	return st, nil
}

// ResolveExpired settles an experiment whose window has closed: no traffic
// rolls back, a significant improvement promotes, a regression beyond the
// rollback threshold rolls back, and anything else extends the window by the
// original duration. After MaxExtensions extensions an inconclusive
// experiment is rolled back.
func (s *Service) ResolveExpired(ctx context.Context) (*models.Status, error) {
	exp, err := s.active(ctx)
	if err != nil || exp == nil {
		return &models.Status{Action: models.ActionNone}, err
	}
	now := s.now()
	if !exp.Expired(now) {
		return &models.Status{Experiment: exp, Action: models.ActionWaiting, Reason: "not_expired"}, nil
	}

	analysis, err := s.analyze(ctx, exp)
	if err != nil {
		return nil, err
	}
	st := &models.Status{Experiment: exp, Analysis: analysis}

	switch {
	case analysis.Results.Empty():
		err = s.rollback(ctx, exp, ReasonNoResults)
		st.Action, st.Reason = models.ActionRolledBack, ReasonNoResults
	case analysis.Condition == models.ConditionMet:
		_, err = s.promote(ctx, exp, analysis, "experiment_succeeded")
		st.Action = models.ActionPromoted
	case analysis.Lift < exp.Thresholds.RollbackThreshold:
		err = s.rollback(ctx, exp, ReasonRegression)
		st.Action, st.Reason = models.ActionRolledBack, ReasonRegression
	case exp.Extensions >= s.cfg.MaxExtensions:
		err = s.rollback(ctx, exp, ReasonInconclusive)
		st.Action, st.Reason = models.ActionRolledBack, ReasonInconclusive
	default:
		err = s.extend(ctx, exp, now)
		st.Action, st.Reason = models.ActionExtended, string(analysis.Condition)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Tick resolves an expired experiment or monitors a running one.
func (s *Service) Tick(ctx context.Context) (*models.Status, error) {
	exp, err := s.active(ctx)
	if err != nil || exp == nil {
		return &models.Status{Action: models.ActionNone}, err
	}
	if exp.Expired(s.now()) {
		return s.ResolveExpired(ctx)
	}
	return s.Monitor(ctx)
}

// Promote moves the canary into production regardless of the analysis.
func (s *Service) Promote(ctx context.Context) (*models.PromotionRecord, error) {
	exp, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	analysis, err := s.analyze(ctx, exp)
	if err != nil {
		return nil, err
	}
	return s.promote(ctx, exp, analysis, "manual_promotion")
}

// Rollback disables the active experiment and deletes the canary artifacts.
// Production and candidate artifacts are left as they are.
func (s *Service) Rollback(ctx context.Context, reason string) error {
	exp, err := s.Active(ctx)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = ReasonManual
	}
	return s.rollback(ctx, exp, reason)
}

// Promotions returns the promotion history, newest first.
func (s *Service) Promotions(ctx context.Context, limit int) ([]models.PromotionRecord, error) {
	if limit <= 0 || limit > s.cfg.PromotionHistory {
		limit = s.cfg.PromotionHistory
	}
	recs, err := s.store.Promotions(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read promotion history")
	}
	return recs, nil
}

// active returns nil, nil when no experiment is enabled.
func (s *Service) active(ctx context.Context) (*models.Experiment, error) {
	exp, err := s.Active(ctx)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, nil
	}
	return exp, err
}

func (s *Service) analyze(ctx context.Context, exp *models.Experiment) (*models.Analysis, error) {
	res, err := s.results.ExperimentResults(ctx, exp.ID, exp.StartAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read experiment results")
	}
	a := Analyze(res, exp.Thresholds)
	s.metrics.ObserveAnalysis(res.Control.Rate(), res.Treatment.Rate(), res.Control.Samples, res.Treatment.Samples, a.PValue)
	return &a, nil
}

func (s *Service) promote(ctx context.Context, exp *models.Experiment, analysis *models.Analysis, reason string) (*models.PromotionRecord, error) {
	ptr, err := s.registry.PromoteCanary(ctx, reason)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote canary")
	}
	if err := s.disable(ctx, exp); err != nil {
		return nil, err
	}

	rec := models.PromotionRecord{
		ExperimentID: exp.ID,
		Version:      ptr.Version,
		Previous:     ptr.PreviousVersion,
		Lift:         analysis.Lift,
		PValue:       analysis.PValue,
		Reason:       reason,
		PromotedAt:   s.now(),
	}
	if err := s.store.AppendPromotion(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to record promotion", "error", err)
	}

	s.metrics.Transition(string(models.ActionPromoted), false)
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventModelPromoted,
		"experiment_id", exp.ID,
		"version", ptr.Version,
		"previous_version", ptr.PreviousVersion,
		"reason", reason,
		"lift", analysis.Lift,
		"p_value", analysis.PValue,
	)
	return &rec, nil
}

func (s *Service) rollback(ctx context.Context, exp *models.Experiment, reason string) error {
	if err := s.registry.DeleteCanary(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete canary")
	}
	if err := s.disable(ctx, exp); err != nil {
		return err
	}
	s.metrics.Transition(string(models.ActionRolledBack), false)
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventModelRolledBack,
		"experiment_id", exp.ID,
		"treatment_version", exp.TreatmentVersion,
		"reason", reason,
	)
	return nil
}

func (s *Service) extend(ctx context.Context, exp *models.Experiment, now time.Time) error {
	exp.EndAt = now.Add(exp.Duration)
	exp.Extensions++
	if err := s.store.Save(ctx, *exp); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend experiment")
	}
	s.metrics.Transition(string(models.ActionExtended), true)
	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventExperimentExtended,
		"experiment_id", exp.ID,
		"end_at", exp.EndAt,
		"extensions", exp.Extensions,
	)
	return nil
}

func (s *Service) disable(ctx context.Context, exp *models.Experiment) error {
	exp.Enabled = false
	if err := s.store.Save(ctx, *exp); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to disable experiment %s", exp.ID))
	}
	return nil
}
