package api

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/config"
	"github.com/JakeFAU/lighthouse-dashboard/internal/dashboard"
	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
	"github.com/JakeFAU/lighthouse-dashboard/internal/tracing"
	"github.com/JakeFAU/lighthouse-dashboard/internal/urlstore"
)

const (
	defaultRequestTimeout = 90 * time.Second
	readyTimeout          = 2 * time.Second
)

// Services are the application services the HTTP layer drives.
type Services struct {
	Sessions   *dashboard.Sessions
	Store      *urlstore.Store
	Auditor    audit.Auditor
	Repository audit.Repository
}

// Server wires HTTP handlers to the dashboard workflow and repositories.
type Server struct {
	router   chi.Router
	handler  http.Handler
	sessions *dashboard.Sessions
	store    *urlstore.Store
	auditor  audit.Auditor
	repo     audit.Repository
	cfg      config.Config
	logger   *zap.Logger
	page     *template.Template
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc Services, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions: svc.Sessions,
		store:    svc.Store,
		auditor:  svc.Auditor,
		repo:     svc.Repository,
		cfg:      cfg,
		logger:   logger,
		page:     pageTemplate,
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/", s.index)
	r.Post("/analyze", s.analyze)
	r.Post("/save", s.save)
	r.Post("/close", s.closeResults)

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/urls", s.listURLs)
		r.Post("/audits", s.previewAudit)
	})

	s.router = r
	s.handler = tracing.Handler(r, "dashboard")
	return s
}

// Handler returns the traced Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
