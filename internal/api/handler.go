// Package api provides the HTTP handlers for the report REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
	"github.com/Mahaan-Amr/servaan-sub004/internal/middleware"
	"github.com/Mahaan-Amr/servaan-sub004/internal/service/report"
)

// Handler serves the report API. All routes below /api/v1 require an
// authenticated identity in the request context.
type Handler struct {
	reports   *report.Service
	dashboard *report.DashboardService
	logger    *slog.Logger
}

// NewHandler creates a Handler over the report services.
func NewHandler(reports *report.Service, dashboard *report.DashboardService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reports: reports, dashboard: dashboard, logger: logger.With("component", "api")}
}

// RouterConfig carries the middleware knobs the router needs.
type RouterConfig struct {
	JWTSecret          []byte
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Routes assembles the chi router with the full middleware chain.
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		// After Auth, so the limiter buckets by tenant instead of address.
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))

		r.Get("/fields", h.ListFields)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/", h.CreateReport)
			r.Post("/preview", h.PreviewReport)
			r.Get("/popular", h.PopularReports)

			r.Route("/{reportID}", func(r chi.Router) {
				r.Get("/", h.GetReport)
				r.Put("/", h.UpdateReport)
				r.Delete("/", h.DeleteReport)
				r.Post("/share", h.ShareReport)
				r.Post("/execute", h.ExecuteReport)
				r.Get("/history", h.ReportHistory)
				r.Post("/export", h.ExportReport)
			})
		})
	})

	return r
}

// --- response helpers ---

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak internals on unclassified failures.
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", domain.RequestIDFromContext(r.Context()),
			"error", err)
		msg = "internal server error"
	}
	h.writeJSON(w, status, map[string]any{
		"code":    status,
		"message": msg,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return false
	}
	return true
}

// identity pulls the authenticated identity placed by the auth middleware.
// Routes outside the auth group never call this.
func identity(r *http.Request) domain.Identity {
	id, _ := domain.IdentityFromContext(r.Context())
	return id
}

// pageFromQuery extracts a PageRequest from max_results/page_token params.
func pageFromQuery(r *http.Request) domain.PageRequest {
	p := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxResults = n
		}
	}
	return p
}
