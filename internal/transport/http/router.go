package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caritas/internal/platform/health"
	"caritas/internal/platform/metrics"
	"caritas/internal/platform/middleware"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// RouterOption adds optional route groups.
type RouterOption func(chi.Router, *slog.Logger)

// WithAdminRoutes mounts the issuance endpoints behind the admin token.
func WithAdminRoutes(admin *AdminHandler, token string) RouterOption {
	return func(r chi.Router, logger *slog.Logger) {
		if admin == nil || token == "" {
			return
		}
		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(token, logger))
			r.Post("/users", admin.handleOnboardUser)
			r.Post("/credentials", admin.handleIssueCredential)
			r.Post("/credentials/{vcID}/revoke", admin.handleRevoke)
			r.Post("/credentials/{vcID}/suspend", admin.handleSuspend)
			r.Post("/credentials/{vcID}/activate", admin.handleActivate)
		})
	}
}

// NewRouter wires the holder-facing endpoints with middleware.
func NewRouter(h *Handler, healthHandler *health.Handler, m *metrics.Metrics, logger *slog.Logger, opts ...RouterOption) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.MaxBytes(maxBodyBytes))
	if m != nil {
		r.Use(middleware.Latency(m.EndpointLatency))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/challenges", h.handleCreateChallenge)
		r.Post("/sessions", h.handleStartSession)
		r.Post("/sessions/{sessionID}/presentation", h.handleSubmitPresentation)
		r.Get("/sessions/{sessionID}", h.handlePollSession)
		r.Post("/sessions/{sessionID}/consume", h.handleConsumeSession)
	})

	for _, opt := range opts {
		opt(r, logger)
	}

	if healthHandler != nil {
		healthHandler.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}
