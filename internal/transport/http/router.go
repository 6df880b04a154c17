// Package httptransport assembles the HTTP surface: the public scoring
// endpoint, health checks, /metrics, and the admin-token guarded
// training and rollout endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	experimenthandler "idscore/internal/experiment/handler"
	"idscore/internal/platform/metrics"
	"idscore/internal/platform/tracing"
	scoringhandler "idscore/internal/scoring/handler"
	traininghandler "idscore/internal/training/handler"
	dErrors "idscore/pkg/domain-errors"
	"idscore/pkg/platform/httputil"
	"idscore/pkg/platform/middleware/admin"
	"idscore/pkg/platform/middleware/requesttime"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Deps are the handlers and cross-cutting pieces the router mounts. Nil
// handlers leave their routes unmounted.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Registry
	Tracer     trace.Tracer
	AdminToken string
	Readiness  map[string]ReadinessCheck

	Scoring    *scoringhandler.Handler
	Training   *traininghandler.Handler
	Experiment *experimenthandler.Handler
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requesttime.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	if d.Tracer != nil {
		r.Use(tracing.Middleware(d.Tracer, routePattern))
	}
	if d.Metrics != nil {
		r.Use(observe(d.Metrics))
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Readiness, logger))

	if d.Scoring != nil {
		d.Scoring.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.AdminToken, logger))
		if d.Scoring != nil {
			d.Scoring.RegisterAdmin(r)
		}
		if d.Training != nil {
			d.Training.Register(r)
		}
		if d.Experiment != nil {
			d.Experiment.Register(r)
		}
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func observe(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reg.ObserveRequest(routePattern(r), status, time.Since(start))
		})
	}
}

func readiness(checks map[string]ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		ready := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				status[name] = "unavailable"
				ready = false
				continue
			}
			status[name] = "ok"
		}
		if !ready {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "dependencies unavailable"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}
