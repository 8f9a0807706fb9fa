package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/zendfast/internal/breaker"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/server/reporting"
	"github.com/iudanet/zendfast/pkg/api"
)

const maxReportBody = 1 << 20

// Forwarder пересылает отчет во внешний трекер ошибок
type Forwarder interface {
	Forward(ctx context.Context, report models.ErrorReport) bool
	Config() reporting.Config
	BreakerState() breaker.State
}

// KeyLimiter цепочка ограничителей, возвращающая имя отказавшего правила
type KeyLimiter interface {
	Allow(key string) (bool, string)
}

// ErrorReportHandler принимает отчеты об ошибках клиентов
type ErrorReportHandler struct {
	logger    *slog.Logger
	forwarder Forwarder
	limiter   KeyLimiter
	metrics   *observability.Metrics
	// limitMessages текст ответа 429 по имени ограничителя
	limitMessages map[string]string
}

// NewErrorReportHandler создает handler отчетов об ошибках.
// limitMessages сопоставляет имя ограничителя с текстом ответа 429.
func NewErrorReportHandler(
	logger *slog.Logger,
	forwarder Forwarder,
	limiter KeyLimiter,
	limitMessages map[string]string,
	metrics *observability.Metrics,
) *ErrorReportHandler {
	return &ErrorReportHandler{
		logger:        logger,
		forwarder:     forwarder,
		limiter:       limiter,
		limitMessages: limitMessages,
		metrics:       metrics,
	}
}

// ReportLimitMessage текст отказа для лимита count отчетов за период period
func ReportLimitMessage(count int, period string) string {
	return fmt.Sprintf("Rate limit exceeded: maximum %d errors per %s", count, period)
}

// HandleReport обрабатывает POST /functions/v1/sentry-error-report
func (h *ErrorReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if missing := h.forwarder.Config().Missing(); len(missing) > 0 {
		h.logger.Error("Error reporter is not configured", "missing", missing)
		SendError(w, http.StatusInternalServerError,
			"Missing required environment variables: "+strings.Join(missing, ", "), "")
		return
	}

	var req api.ErrorReportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBody)).Decode(&req); err != nil {
		SendError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	if req.Error == "" || req.UserID == "" || req.Context == nil {
		SendError(w, http.StatusBadRequest, "Invalid payload: requires error, userId, and context fields", "")
		return
	}

	if ok, name := h.limiter.Allow(req.UserID); !ok {
		h.metrics.RateLimited(name)
		h.logger.Warn("Error report rate limit exceeded", "user_id", req.UserID, "limiter", name)
		msg, found := h.limitMessages[name]
		if !found {
			msg = "Rate limit exceeded"
		}
		SendError(w, http.StatusTooManyRequests, msg, "")
		return
	}

	report := models.ErrorReport{
		Context:      req.Context,
		Timestamp:    req.Timestamp,
		Error:        req.Error,
		UserID:       req.UserID,
		StackTrace:   req.StackTrace,
		FunctionName: req.FunctionName,
	}

	sent := h.forwarder.Forward(r.Context(), report)
	errorID := uuid.NewString()

	h.logger.Info("Error report processed",
		"event", "error_report",
		"error_id", errorID,
		"user_id", req.UserID,
		"function_name", req.FunctionName,
		"sent_to_sentry", sent,
		"circuit_breaker_state", h.forwarder.BreakerState().String(),
	)

	message := "Error report sent to Sentry"
	if !sent {
		message = "Error report received but not sent to Sentry (circuit breaker or API error)"
	}

	SendJSON(w, http.StatusOK, api.ErrorReportResponse{
		Success:      true,
		ErrorID:      errorID,
		SentToSentry: sent,
		Message:      message,
	})
}
