package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idscore/internal/experiment/models"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/httputil"
	"idscore/pkg/requestcontext"
)

// Service defines the experiment operations the handler needs.
type Service interface {
	Create(ctx context.Context, treatmentVersion string) (*models.Experiment, error)
	Status(ctx context.Context) (*models.Status, error)
	Promote(ctx context.Context) (*models.PromotionRecord, error)
	Rollback(ctx context.Context, reason string) error
	Promotions(ctx context.Context, limit int) ([]models.PromotionRecord, error)
}

// Handler wires experiment endpoints to the governor.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts experiment endpoints. The caller guards r with the admin
// token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/experiment", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Post("/", h.HandleCreate)
		r.Post("/promote", h.HandlePromote)
		r.Post("/rollback", h.HandleRollback)
		r.Get("/promotions", h.HandlePromotions)
	})
}

// HandleStatus handles GET /admin/experiment.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.Status(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to read experiment status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleCreate handles POST /admin/experiment. It stages an existing
// candidate as the canary.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[*CreateRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}
	exp, err := h.service.Create(ctx, req.TreatmentVersion)
	if err != nil {
		h.fail(ctx, w, "failed to create experiment", err)
		return
	}
	h.logger.InfoContext(ctx, "experiment created by operator",
		"request_id", requestcontext.RequestID(ctx),
		"experiment_id", exp.ID,
		"treatment_version", exp.TreatmentVersion,
	)
	httputil.WriteJSON(w, http.StatusCreated, exp)
}

// HandlePromote handles POST /admin/experiment/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.service.Promote(ctx)
	if err != nil {
		h.fail(ctx, w, "manual promotion failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleRollback handles POST /admin/experiment/rollback.
func (h *Handler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[*RollbackRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.Rollback(ctx, req.reason()); err != nil {
		h.fail(ctx, w, "manual rollback failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePromotions handles GET /admin/experiment/promotions?limit=n.
func (h *Handler) HandlePromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	records, err := h.service.Promotions(ctx, limit)
	if err != nil {
		h.fail(ctx, w, "failed to read promotion history", err)
		return
	}
	if records == nil {
		records = []models.PromotionRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"promotions": records})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
