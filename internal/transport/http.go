package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	syncengine "github.com/MightComeback/garmin-health-sync/internal/domain/sync"
	"github.com/MightComeback/garmin-health-sync/internal/metrics"
	"github.com/MightComeback/garmin-health-sync/internal/repository"
)

// SyncController is the slice of the scheduler the HTTP layer needs.
type SyncController interface {
	TriggerNow(ctx context.Context) (*syncengine.Result, error)
	Status() syncengine.Status
}

// AuthController exposes session validity and logout.
type AuthController interface {
	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context) error
}

// Handler wires the thin HTTP API over the sync engine and its stores. Every
// route is a pass-through; no business logic lives here.
type Handler struct {
	sync       SyncController
	auth       AuthController
	activities repository.ActivityRepository
	daily      repository.DailyMetricRepository
	syncLog    repository.SyncLogRepository
	logger     *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	sync SyncController,
	auth AuthController,
	activities repository.ActivityRepository,
	daily repository.DailyMetricRepository,
	syncLog repository.SyncLogRepository,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sync:       sync,
		auth:       auth,
		activities: activities,
		daily:      daily,
		syncLog:    syncLog,
		logger:     logger,
	}
}

// Router builds the chi router for the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Handler().ServeHTTP(w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", h.triggerSync)
		r.Get("/sync/status", h.syncStatus)
		r.Get("/sync/log", h.syncLogEntries)
		r.Get("/activities", h.listActivities)
		r.Get("/daily", h.listDaily)
		r.Get("/auth/status", h.authStatus)
		r.Post("/auth/logout", h.logout)
	})

	return r
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.TriggerNow(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, syncengine.ErrSyncRunning):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, syncengine.ErrNotConfigured):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	status := h.sync.Status()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"enabled":    status.Enabled,
		"intervalMs": status.Interval.Milliseconds(),
		"lastRunAt":  status.LastRunAt,
		"nextRunAt":  status.NextRunAt,
		"isRunning":  status.IsRunning,
	})
}

func (h *Handler) syncLogEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.syncLog.ListRecent(r.Context(), queryLimit(r, 20))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.List(r.Context(), queryLimit(r, 50))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, activities)
}

func (h *Handler) listDaily(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.daily.List(r.Context(), queryLimit(r, 30))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) authStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{
		"authenticated": h.auth.IsAuthenticated(r.Context()),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
