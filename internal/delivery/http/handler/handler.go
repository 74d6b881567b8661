package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/slot-watcher/internal/delivery/http/response"
	"github.com/user/slot-watcher/internal/usecase"
)

const healthCheckTimeout = 2 * time.Second

// StatusProvider exposes the scheduler view served on /api/status.
type StatusProvider interface {
	Snapshot() usecase.Snapshot
}

// Pinger is an optional backend checked by /api/health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	status   StatusProvider
	backends map[string]Pinger
	logger   *slog.Logger
}

func NewHandler(status StatusProvider, backends map[string]Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		status:   status,
		backends: backends,
		logger:   logger,
	}
}

// HandleLiveness answers 200 with an empty body while the process is up,
// whatever state the poll loop is in.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Snapshot()

	resp := response.SchedulerStatusResponse{
		State:               snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Queue:               snap.Queue,
		LastSourceID:        snap.LastSourceID,
		LastError:           snap.LastError,
	}
	if !snap.LastPollAt.IsZero() {
		resp.LastPollAt = &snap.LastPollAt
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.backends) > 0 {
		resp.Dependencies = make(map[string]string, len(h.backends))
	}
	for name, backend := range h.backends {
		if err := backend.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "backend", name, "error", err)
			resp.Dependencies[name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "healthy"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", "error", err)
	}
}
