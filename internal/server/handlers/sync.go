package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/server/syncer"
	"github.com/iudanet/zendfast/pkg/api"
)

// maxSyncBody ограничение размера тела запроса синхронизации
const maxSyncBody = 10 << 20

// SyncService применяет пакет изменений пользователя
type SyncService interface {
	Sync(ctx context.Context, userID string, changes []models.LocalChange, lastSync *time.Time) (*models.SyncResult, error)
}

// UserLimiter ограничивает частоту запросов пользователя
type UserLimiter interface {
	Allow(key string) bool
	Remaining(key string) int
	Name() string
}

// SyncHandler обрабатывает запросы синхронизации
type SyncHandler struct {
	logger  *slog.Logger
	service SyncService
	limiter UserLimiter
	metrics *observability.Metrics
}

// NewSyncHandler создает handler синхронизации. metrics может быть nil.
func NewSyncHandler(logger *slog.Logger, service SyncService, limiter UserLimiter, metrics *observability.Metrics) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		service: service,
		limiter: limiter,
		metrics: metrics,
	}
}

// HandleSync обрабатывает POST /functions/v1/sync-user-data.
// Пользователь уже проверен AuthMiddleware.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		SendError(w, http.StatusUnauthorized, "Invalid JWT: No user found", "")
		return
	}

	if !h.limiter.Allow(userID) {
		h.metrics.RateLimited(h.limiter.Name())
		h.logger.Warn("Sync rate limit exceeded", "user_id", userID)
		SendError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded. %d requests remaining. Try again later.", h.limiter.Remaining(userID)), "")
		return
	}

	changes, lastSync, errMsg, details := decodeSyncRequest(http.MaxBytesReader(w, r.Body, maxSyncBody))
	if errMsg != "" {
		h.logger.Warn("Invalid sync request", "user_id", userID, "error", errMsg)
		SendError(w, http.StatusBadRequest, errMsg, details)
		return
	}

	result, err := h.service.Sync(r.Context(), userID, changes, lastSync)
	if err != nil {
		if errors.Is(err, syncer.ErrBatchTooLarge) {
			SendError(w, http.StatusBadRequest, batchTooLarge(len(changes)), "")
			return
		}
		h.logger.Error("Sync failed", "user_id", userID, "error", err)
		SendError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	SendJSON(w, http.StatusOK, toSyncResponse(result))
}

// decodeSyncRequest разбирает тело запроса. При ошибке возвращает текст
// ошибки для клиента и необязательные подробности.
func decodeSyncRequest(body io.Reader) ([]models.LocalChange, *time.Time, string, string) {
	var raw struct {
		LastSyncTimestamp *string         `json:"lastSyncTimestamp"`
		Changes           json.RawMessage `json:"changes"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, nil, "Invalid JSON in request body", ""
	}

	trimmed := bytes.TrimSpace(raw.Changes)
	if isEmptyJSON(trimmed) {
		return nil, nil, "Missing required field: changes", ""
	}
	if trimmed[0] != '[' {
		return nil, nil, "Field 'changes' must be an array", ""
	}

	var items []api.LocalChange
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, nil, "Invalid JSON in request body", err.Error()
	}
	if len(items) > syncer.MaxBatchSize {
		return nil, nil, batchTooLarge(len(items)), ""
	}

	var lastSync *time.Time
	if raw.LastSyncTimestamp != nil && *raw.LastSyncTimestamp != "" {
		ts, ok := models.ParseTime(*raw.LastSyncTimestamp)
		if !ok {
			return nil, nil, "Invalid lastSyncTimestamp", *raw.LastSyncTimestamp
		}
		lastSync = &ts
	}

	changes := make([]models.LocalChange, 0, len(items))
	for _, item := range items {
		changes = append(changes, models.LocalChange{
			Table:          models.Table(item.Table),
			Action:         models.Action(item.Action),
			Data:           models.Record(item.Data),
			LocalTimestamp: item.LocalTimestamp,
		})
	}
	return changes, lastSync, "", ""
}

// isEmptyJSON сообщает, что значение отсутствует или ложно:
// null, false, 0 и пустая строка считаются непереданным полем.
func isEmptyJSON(value []byte) bool {
	if len(value) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}

func batchTooLarge(n int) string {
	return fmt.Sprintf("Batch size exceeds maximum of %d records. Received: %d", syncer.MaxBatchSize, n)
}

func toSyncResponse(result *models.SyncResult) api.SyncResponse {
	resp := api.SyncResponse{
		Success:         result.Success,
		ServerTimestamp: models.FormatTime(result.ServerTimestamp),
		Conflicts:       make([]api.Conflict, 0, len(result.Conflicts)),
		Errors:          make([]api.SyncError, 0, len(result.Errors)),
		ServerChanges:   make(map[string][]api.Record, len(result.ServerChanges)),
	}

	for _, c := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, api.Conflict{
			Table:        string(c.Table),
			LocalData:    c.LocalData,
			RemoteData:   c.RemoteData,
			ResolvedData: c.ResolvedData,
		})
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, api.SyncError{
			Table:  string(e.Table),
			Action: string(e.Action),
			Error:  e.Error,
			Data:   e.Data,
		})
	}
	for table, records := range result.ServerChanges {
		out := make([]api.Record, 0, len(records))
		for _, rec := range records {
			out = append(out, rec)
		}
		resp.ServerChanges[string(table)] = out
	}
	for _, desc := range models.SyncTables() {
		if _, ok := resp.ServerChanges[string(desc.Name)]; !ok {
			resp.ServerChanges[string(desc.Name)] = make([]api.Record, 0)
		}
	}

	return resp
}
