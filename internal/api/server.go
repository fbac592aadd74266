// Package api provides the HTTP server for backlogd.
// It exposes the backlog as a small JSON REST API so that editor plugins
// and automated agents can drive the engine remotely.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
	"github.com/backlogd/backlogd/internal/health"
)

// Server is the backlogd HTTP API server.
type Server struct {
	engine         *engine.Engine
	version        string
	metricsEnabled bool
	health         *health.Checker
}

// NewServer creates a new API server over the engine.
func NewServer(e *engine.Engine, version string) *Server {
	return &Server{engine: e, version: version}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the integrity checker to the /health endpoint.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.health == nil {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
			})
			return
		}
		status := "ok"
		code := http.StatusOK
		if !s.health.IsHealthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": s.health.Statuses(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": s.version,
			})
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/next", s.handleNext)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/archive", s.handleArchive)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTask)
			r.Post("/transition", s.handleTransition)
			r.Post("/reopen", s.handleReopen)
			r.Post("/blockers", s.handleAddBlocker)
			r.Post("/notes", s.handleNote)
			r.Post("/criteria/{position}", s.handleCheckCriterion)
			r.Post("/reconcile", s.handleReconcile)
			r.Get("/learnings", s.handleTaskLearnings)
		})

		r.Get("/learnings", s.handleListLearnings)
		r.Post("/learnings", s.handleLearn)

		r.Post("/sessions", s.handleOpenSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/close", s.handleCloseSession)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeEngineError maps engine sentinel errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, errStatus(err), err.Error())
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCriterionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrDependencyUnmet),
		errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrActiveLimitExceeded),
		errors.Is(err, domain.ErrResourceConflict),
		errors.Is(err, domain.ErrCriteriaIncomplete),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrNotInSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadPriority),
		errors.Is(err, domain.ErrTitleRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for local tooling.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
