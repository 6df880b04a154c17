package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idscore/internal/scoring/models"
	"idscore/pkg/platform/httputil"
	"idscore/pkg/requestcontext"
)

// Service defines the scoring operations the handler needs.
type Service interface {
	Classify(ctx context.Context, input string) (models.Result, error)
	Refresh(ctx context.Context) error
	Snapshot() models.SnapshotInfo
	RuleUsage() map[string]float64
}

// Handler wires scoring endpoints to the scoring service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public classification endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/classify", h.HandleClassify)
}

// RegisterAdmin mounts snapshot inspection endpoints. The caller guards r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/scoring/snapshot", h.HandleSnapshot)
	r.Post("/admin/scoring/refresh", h.HandleRefresh)
	r.Get("/admin/scoring/rules", h.HandleRuleUsage)
}

// HandleClassify handles POST /v1/classify. A missing model is not an
// error: the response says available=false.
func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[*ClassifyRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Classify(ctx, req.Identifier)
	if err != nil {
		h.logger.WarnContext(ctx, "classification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleSnapshot handles GET /admin/scoring/snapshot.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Snapshot())
}

// HandleRefresh handles POST /admin/scoring/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Refresh(ctx); err != nil {
		h.logger.ErrorContext(ctx, "manual model refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Snapshot())
}

// HandleRuleUsage handles GET /admin/scoring/rules.
func (h *Handler) HandleRuleUsage(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RuleUsageResponse{Rules: h.service.RuleUsage()})
}
