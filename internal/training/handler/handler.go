package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idscore/internal/training/models"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/httputil"
	"idscore/pkg/requestcontext"
)

// Service defines the training operations the handler needs.
type Service interface {
	RunPipeline(ctx context.Context, opts models.RunOptions) (*models.Result, error)
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// Handler wires training endpoints to the training service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts training endpoints. The caller guards r with the admin
// token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/training/run", h.HandleRun)
	r.Get("/admin/training/history", h.HandleHistory)
}

// HandleRun handles POST /admin/training/run. The run executes
// synchronously. Refusals answer 409 when another run holds the lock and
// 422 otherwise, with the run result as the body.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[*RunRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	// The run must finish and release its lock even if the caller hangs up.
	result, err := h.service.RunPipeline(context.WithoutCancel(ctx), req.Options())
	if err != nil {
		h.logger.ErrorContext(ctx, "training run failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "training run finished",
		"request_id", requestID,
		"run_id", result.RunID,
		"action", string(result.Action),
		"reason", string(result.Reason),
	)
	httputil.WriteJSON(w, statusFor(result), FromResult(result))
}

func statusFor(result *models.Result) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Reason == models.ReasonAlreadyInProgress:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// HandleHistory handles GET /admin/training/history?limit=n.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.History(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read training history",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer")
	}
	return n, nil
}
