package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/zendfast/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	store   Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, store Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		store:   store,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		SendJSON(w, http.StatusServiceUnavailable, api.HealthResponse{
			Status:  "unavailable",
			Version: h.version,
		})
		return
	}

	SendJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
