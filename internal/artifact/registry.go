package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"idscore/internal/ensemble"
	"idscore/internal/markov"
	"idscore/pkg/platform/sentinel"
)

// Store persists artifacts and the production pointer.
type Store interface {
	// Put writes every artifact in one batch.
	Put(ctx context.Context, artifacts ...Artifact) error
	// Get returns sentinel.ErrNotFound when the ref is absent.
	Get(ctx context.Context, ref Ref) (*Artifact, error)
	Delete(ctx context.Context, refs ...Ref) error
	// Pointer returns sentinel.ErrNotFound before the first promotion.
	Pointer(ctx context.Context) (*Pointer, error)
	SetPointer(ctx context.Context, p Pointer) error
}

// DefaultOrders are the model orders trained and loaded for every era.
var DefaultOrders = []int{1, 2, 3}

var classes = []ensemble.Label{ensemble.Legit, ensemble.Fraud}

// Loaded is one era read back from the store.
type Loaded struct {
	Version  string
	Status   Status
	Ensemble *ensemble.Ensemble
	Metas    []Meta
}

// Registry moves eras between slots.
type Registry struct {
	store  Store
	orders []int
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithOrders sets the model orders every era must contain.
func WithOrders(orders []int) Option {
	return func(r *Registry) {
		if len(orders) > 0 {
			r.orders = slices.Sorted(slices.Values(orders))
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("artifact store is required")
	}
	r := &Registry{
		store:  store,
		orders: slices.Clone(DefaultOrders),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Orders returns the orders every era contains.
func (r *Registry) Orders() []int {
	return slices.Clone(r.orders)
}

// SaveCandidate serializes every model of the era into the candidate slot.
func (r *Registry) SaveCandidate(ctx context.Context, version string, e *ensemble.Ensemble, info Info) error {
	now := r.now()
	arts := make([]Artifact, 0, len(r.orders)*len(classes))
	for _, order := range r.orders {
		pair, ok := e.Pair(order)
		if !ok {
			return fmt.Errorf("save candidate %s: ensemble has no order %d", version, order)
		}
		for _, class := range classes {
			model := pair.Legit
			if class == ensemble.Fraud {
				model = pair.Fraud
			}
			data, err := json.Marshal(model)
			if err != nil {
				return fmt.Errorf("serialize %s order %d: %w", class, order, err)
			}
			arts = append(arts, Artifact{
				Data: data,
				Meta: Meta{
					SchemaVersion: SchemaVersion,
					Status:        StatusCandidate,
					Version:       version,
					Class:         class,
					Order:         order,
					Checksum:      Checksum(data),
					SizeBytes:     len(data),
					TrainingCount: model.TrainingCount(),
					CreatedAt:     now,
					UpdatedAt:     now,
					Accuracy:      info.Accuracy,
					F1:            info.F1,
					FraudSamples:  info.FraudSamples,
					LegitSamples:  info.LegitSamples,
					AnomalyScore:  info.AnomalyScore,
				},
			})
		}
	}
	if err := r.store.Put(ctx, arts...); err != nil {
		return fmt.Errorf("save candidate %s: %w", version, err)
	}
	r.logger.InfoContext(ctx, "candidate artifacts saved",
		"version", version,
		"artifacts", len(arts),
	)
	return nil
}

// StageCanary copies a candidate era into the canary slot.
func (r *Registry) StageCanary(ctx context.Context, version string) error {
	if err := r.copyEra(ctx, StatusCandidate, version, StatusCanary); err != nil {
		return fmt.Errorf("stage canary %s: %w", version, err)
	}
	r.logger.InfoContext(ctx, "canary staged", "version", version)
	return nil
}

// PromoteCandidate puts a candidate era straight into production. Used when
// there is nothing to run an experiment against.
func (r *Registry) PromoteCandidate(ctx context.Context, version, reason string) (*Pointer, error) {
	return r.promote(ctx, StatusCandidate, version, reason)
}

// PromoteCanary puts the staged canary into production and clears the
// canary slot.
func (r *Registry) PromoteCanary(ctx context.Context, reason string) (*Pointer, error) {
	ptr, err := r.promote(ctx, StatusCanary, "", reason)
	if err != nil {
		return nil, err
	}
	if err := r.DeleteCanary(ctx); err != nil {
		return nil, err
	}
	return ptr, nil
}

// promote writes the new production era under its own version, backs up the
// era the pointer names, and flips the pointer last. Readers resolve
// production through the pointer, so a crash before the flip leaves them on
// the old era.
func (r *Registry) promote(ctx context.Context, from Status, version, reason string) (*Pointer, error) {
	src, err := r.readEra(ctx, from, version)
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", from, err)
	}
	newVersion := src[0].Meta.Version

	current, err := r.store.Pointer(ctx)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		current = &Pointer{}
	default:
		return nil, fmt.Errorf("read production pointer: %w", err)
	}

	previous := current.PreviousVersion
	var stale []Ref
	if current.Version != "" && current.Version != newVersion {
		live, err := r.readEra(ctx, StatusProduction, current.Version)
		switch {
		case err == nil:
			if err := r.store.Put(ctx, restamp(live, StatusBackup, r.now())...); err != nil {
				return nil, fmt.Errorf("backup production %s: %w", current.Version, err)
			}
			if current.PreviousVersion != "" && current.PreviousVersion != current.Version {
				stale = append(stale, r.eraRefs(StatusBackup, current.PreviousVersion)...)
			}
			stale = append(stale, r.eraRefs(StatusProduction, current.Version)...)
			previous = current.Version
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrChecksumMismatch):
			r.logger.WarnContext(ctx, "no usable production era to back up",
				"version", current.Version,
				"error", err,
			)
		default:
			return nil, fmt.Errorf("read production %s: %w", current.Version, err)
		}
	}
	if previous == newVersion {
		previous = ""
	}

	if err := r.store.Put(ctx, restamp(src, StatusProduction, r.now())...); err != nil {
		return nil, fmt.Errorf("write production %s: %w", newVersion, err)
	}
	ptr := Pointer{Version: newVersion, PreviousVersion: previous, Reason: reason, UpdatedAt: r.now()}
	if err := r.store.SetPointer(ctx, ptr); err != nil {
		return nil, fmt.Errorf("update production pointer: %w", err)
	}
	r.logger.InfoContext(ctx, "production era promoted",
		"version", newVersion,
		"previous_version", previous,
		"from", string(from),
		"reason", reason,
	)

	if len(stale) > 0 {
		if err := r.store.Delete(ctx, stale...); err != nil {
			r.logger.WarnContext(ctx, "stale eras not removed", "error", err)
		}
	}
	return &ptr, nil
}

// RestoreBackup swaps the backup era back into production.
func (r *Registry) RestoreBackup(ctx context.Context, reason string) (*Pointer, error) {
	return r.promote(ctx, StatusBackup, "", reason)
}

// DeleteCanary removes the canary slot. Candidates and production are never
// touched.
func (r *Registry) DeleteCanary(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.eraRefs(StatusCanary, "")...); err != nil {
		return fmt.Errorf("delete canary: %w", err)
	}
	return nil
}

// Pointer returns the production pointer.
func (r *Registry) Pointer(ctx context.Context) (*Pointer, error) {
	return r.store.Pointer(ctx)
}

// LoadProduction loads the era the production pointer names.
func (r *Registry) LoadProduction(ctx context.Context) (*Loaded, error) {
	return r.Load(ctx, StatusProduction, "")
}

// LoadCanary loads the staged canary era.
func (r *Registry) LoadCanary(ctx context.Context) (*Loaded, error) {
	return r.Load(ctx, StatusCanary, "")
}

// Load reads, verifies and deserializes one era. An empty version for the
// production or backup slot resolves through the pointer. A checksum
// mismatch is reported as sentinel.ErrChecksumMismatch; callers treat it as
// missing.
func (r *Registry) Load(ctx context.Context, status Status, version string) (*Loaded, error) {
	arts, err := r.readEra(ctx, status, version)
	if err != nil {
		return nil, err
	}
	pairs := make(map[int]ensemble.Pair, len(r.orders))
	metas := make([]Meta, 0, len(arts))
	for _, a := range arts {
		model, err := markov.FromJSON(a.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Meta.Ref(), err)
		}
		pair := pairs[a.Meta.Order]
		if a.Meta.Class == ensemble.Fraud {
			pair.Fraud = model
		} else {
			pair.Legit = model
		}
		pairs[a.Meta.Order] = pair
		metas = append(metas, a.Meta)
	}
	e, err := ensemble.New(pairs)
	if err != nil {
		return nil, fmt.Errorf("assemble %s era: %w", status, err)
	}
	return &Loaded{Version: arts[0].Meta.Version, Status: status, Ensemble: e, Metas: metas}, nil
}

// readEra fetches and verifies every artifact of an era. All artifacts must
// exist and belong to the same version.
func (r *Registry) readEra(ctx context.Context, status Status, version string) ([]Artifact, error) {
	version, err := r.resolve(ctx, status, version)
	if err != nil {
		return nil, err
	}
	arts := make([]Artifact, 0, len(r.orders)*len(classes))
	for _, ref := range r.eraRefs(status, version) {
		a, err := r.store.Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ref, err)
		}
		if !a.Verify() {
			r.logger.ErrorContext(ctx, "artifact checksum mismatch",
				"ref", ref.String(),
				"expected", a.Meta.Checksum,
			)
			return nil, fmt.Errorf("read %s: %w", ref, sentinel.ErrChecksumMismatch)
		}
		if len(arts) > 0 && a.Meta.Version != arts[0].Meta.Version {
			return nil, fmt.Errorf("read %s: mixed versions %s and %s: %w",
				ref, arts[0].Meta.Version, a.Meta.Version, sentinel.ErrInvalidState)
		}
		arts = append(arts, *a)
	}
	return arts, nil
}

// resolve maps an empty production or backup version to the one the pointer
// names.
func (r *Registry) resolve(ctx context.Context, status Status, version string) (string, error) {
	if version != "" || (status != StatusProduction && status != StatusBackup) {
		return version, nil
	}
	ptr, err := r.store.Pointer(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", status, err)
	}
	if status == StatusBackup {
		version = ptr.PreviousVersion
	} else {
		version = ptr.Version
	}
	if version == "" {
		return "", fmt.Errorf("resolve %s: %w", status, sentinel.ErrNotFound)
	}
	return version, nil
}

func (r *Registry) eraRefs(status Status, version string) []Ref {
	refs := make([]Ref, 0, len(r.orders)*len(classes))
	for _, order := range r.orders {
		for _, class := range classes {
			refs = append(refs, Ref{Status: status, Version: version, Class: class, Order: order})
		}
	}
	return refs
}

// copyEra reads a verified era and writes it under another status.
func (r *Registry) copyEra(ctx context.Context, from Status, version string, to Status) error {
	arts, err := r.readEra(ctx, from, version)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, restamp(arts, to, r.now())...)
}

func restamp(arts []Artifact, status Status, now time.Time) []Artifact {
	out := make([]Artifact, len(arts))
	for i, a := range arts {
		a.Meta.Status = status
		a.Meta.UpdatedAt = now
		out[i] = a
	}
	return out
}
