package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/zendfast/internal/breaker"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
)

// Значения по умолчанию
const (
	DefaultBaseURL     = "https://sentry.io"
	DefaultTimeout     = 10 * time.Second
	DefaultEnvironment = "development"
)

// maxErrorBody сколько байт ответа Sentry попадает в лог
const maxErrorBody = 1024

// Guard защищает вызовы внешнего сервиса
type Guard interface {
	CanAttempt() bool
	RecordSuccess()
	RecordFailure()
	State() breaker.State
}

// Config параметры пересылки в Sentry
type Config struct {
	DSN         string
	ProjectID   string
	AuthToken   string
	Environment string
	// BaseURL адрес Sentry без завершающего слэша
	BaseURL string
	Timeout time.Duration
}

// Missing возвращает имена незаданных обязательных параметров
func (c Config) Missing() []string {
	var missing []string
	if c.DSN == "" {
		missing = append(missing, "SENTRY_DSN")
	}
	if c.ProjectID == "" {
		missing = append(missing, "SENTRY_PROJECT_ID")
	}
	if c.AuthToken == "" {
		missing = append(missing, "SENTRY_AUTH_TOKEN")
	}
	return missing
}

// Forwarder пересылает отчеты об ошибках в Sentry через circuit breaker
type Forwarder struct {
	client  *http.Client
	guard   Guard
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
	cfg     Config
}

// NewForwarder создает Forwarder. metrics может быть nil.
func NewForwarder(cfg Config, guard Guard, logger *slog.Logger, metrics *observability.Metrics) *Forwarder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}

	return &Forwarder{
		client:  &http.Client{},
		guard:   guard,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Config возвращает параметры пересылки
func (f *Forwarder) Config() Config {
	return f.cfg
}

// URL адрес envelope endpoint проекта
func (f *Forwarder) URL() string {
	return fmt.Sprintf("%s/api/%s/envelope/", f.cfg.BaseURL, f.cfg.ProjectID)
}

// BreakerState текущее состояние circuit breaker
func (f *Forwarder) BreakerState() breaker.State {
	return f.guard.State()
}

// Forward отправляет отчет. Возвращает true, если Sentry принял событие.
// Ошибки не возвращаются: отказ Sentry не должен ломать вызывающий код.
func (f *Forwarder) Forward(ctx context.Context, report models.ErrorReport) bool {
	if !f.guard.CanAttempt() {
		f.logger.Warn("Circuit breaker open, skipping Sentry send")
		f.metrics.ErrorReport(observability.ReportSkipped)
		return false
	}

	if err := f.send(ctx, report); err != nil {
		f.logger.Error("Failed to send error to Sentry", "error", err)
		f.guard.RecordFailure()
		f.metrics.ErrorReport(observability.ReportFailed)
		return false
	}

	f.guard.RecordSuccess()
	f.metrics.ErrorReport(observability.ReportForwarded)
	f.logger.Debug("Error sent to Sentry")
	return true
}

func (f *Forwarder) send(ctx context.Context, report models.ErrorReport) error {
	if f.cfg.ProjectID == "" || f.cfg.AuthToken == "" {
		return fmt.Errorf("missing Sentry project id or auth token")
	}

	envelope, err := BuildEnvelope(report, uuid.NewString(), f.cfg.DSN, f.cfg.Environment, f.now())
	if err != nil {
		return err
	}

	// отключение клиента не прерывает отправку: breaker учитывает только отказы Sentry
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL(), bytes.NewReader(envelope))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.AuthToken)
	req.Header.Set("Content-Type", EnvelopeContentType)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("sentry request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("sentry API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
