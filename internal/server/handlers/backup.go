package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/server/backup"
	"github.com/iudanet/zendfast/pkg/api"
)

// backupCooldownKey все запуски резервного копирования делят один слот
const backupCooldownKey = "backup"

const maxBackupBody = 64 << 10

// BackupRunner выполняет резервное копирование
type BackupRunner interface {
	Run(ctx context.Context, req backup.Request) (*models.BackupResult, error)
}

// CooldownLimiter ограничитель с оценкой времени до следующего слота
type CooldownLimiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
	Name() string
}

// BackupHandler запускает резервное копирование по запросу планировщика
type BackupHandler struct {
	logger         *slog.Logger
	runner         BackupRunner
	cooldown       CooldownLimiter
	metrics        *observability.Metrics
	serviceRoleKey string
}

// NewBackupHandler создает handler резервного копирования
func NewBackupHandler(
	logger *slog.Logger,
	runner BackupRunner,
	cooldown CooldownLimiter,
	serviceRoleKey string,
	metrics *observability.Metrics,
) *BackupHandler {
	return &BackupHandler{
		logger:         logger,
		runner:         runner,
		cooldown:       cooldown,
		serviceRoleKey: serviceRoleKey,
		metrics:        metrics,
	}
}

// HandleBackup обрабатывает GET/POST /functions/v1/backup-data
func (h *BackupHandler) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if h.serviceRoleKey == "" {
		h.logger.Error("Backup service role key is not configured")
		SendJSON(w, http.StatusInternalServerError, api.BackupErrorResponse{
			Error:   "Server configuration error",
			Message: "Missing required environment variables: SUPABASE_SERVICE_ROLE_KEY",
		})
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("Unauthorized backup request", "remote_addr", r.RemoteAddr)
		SendJSON(w, http.StatusUnauthorized, api.BackupErrorResponse{
			Error:   "Unauthorized",
			Message: "Valid service role key required. This endpoint is for automated backups only.",
		})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		SendJSON(w, http.StatusMethodNotAllowed, api.BackupErrorResponse{
			Error:   "Method not allowed",
			Message: "Only GET and POST methods are supported",
		})
		return
	}

	if !h.cooldown.Allow(backupCooldownKey) {
		h.metrics.RateLimited(h.cooldown.Name())
		retry := h.cooldown.RetryAfter(backupCooldownKey)
		h.logger.Warn("Backup cooldown active", "retry_after", retry)
		SendJSON(w, http.StatusTooManyRequests, api.BackupErrorResponse{
			Error:             "Rate limit exceeded",
			Message:           "Backup already running or recently executed. Please wait before retrying.",
			RetryAfterSeconds: int(math.Ceil(retry.Seconds())),
		})
		return
	}

	var req backup.Request
	if r.Method == http.MethodPost {
		req = decodeBackupRequest(http.MaxBytesReader(w, r.Body, maxBackupBody))
	}

	result, err := h.runner.Run(r.Context(), req)
	if err != nil {
		SendJSON(w, http.StatusInternalServerError, api.BackupErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	SendJSON(w, http.StatusOK, result)
}

func (h *BackupHandler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.serviceRoleKey)) == 1
}

// decodeBackupRequest разбирает необязательное тело POST.
// Некорректное тело трактуется как пустой запрос.
func decodeBackupRequest(body io.Reader) backup.Request {
	var req backup.Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return backup.Request{}
	}
	return req
}
