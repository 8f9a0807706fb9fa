// Package api HTTP клиент сервера синхронизации.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// Пути API сервера
const (
	PathSync        = "/functions/v1/sync-user-data"
	PathErrorReport = "/functions/v1/sentry-error-report"
	PathBackup      = "/functions/v1/backup-data"
	PathHealth      = "/api/v1/health"
)

// ClientAPI операции сервера, используемые клиентскими сервисами
type ClientAPI interface {
	Sync(ctx context.Context, accessToken string, req api.SyncRequest) (*api.SyncResponse, error)
	ReportError(ctx context.Context, req api.ErrorReportRequest) (*api.ErrorReportResponse, error)
	TriggerBackup(ctx context.Context, serviceKey string, hours int, source string) (*models.BackupResult, error)
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// StatusError ответ сервера со статусом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus проверяет, что err - ответ сервера с указанным статусом
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ ClientAPI = (*Client)(nil)

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Sync отправляет пакет локальных изменений и получает изменения сервера
func (c *Client) Sync(ctx context.Context, accessToken string, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	if err := c.doRequest(ctx, http.MethodPost, PathSync, accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	return &resp, nil
}

// ReportError отправляет отчет об ошибке
func (c *Client) ReportError(ctx context.Context, req api.ErrorReportRequest) (*api.ErrorReportResponse, error) {
	var resp api.ErrorReportResponse
	if err := c.doRequest(ctx, http.MethodPost, PathErrorReport, "", req, &resp); err != nil {
		return nil, fmt.Errorf("error report request failed: %w", err)
	}
	return &resp, nil
}

// TriggerBackup запускает резервное копирование ключом service role.
// hours <= 0 и пустой source заменяются значениями сервера по умолчанию.
func (c *Client) TriggerBackup(ctx context.Context, serviceKey string, hours int, source string) (*models.BackupResult, error) {
	body := struct {
		Source string `json:"source,omitempty"`
		Hours  int    `json:"hours,omitempty"`
	}{Source: source, Hours: hours}

	var resp models.BackupResult
	if err := c.doRequest(ctx, http.MethodPost, PathBackup, serviceKey, body, &resp); err != nil {
		return nil, fmt.Errorf("backup request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, PathHealth, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		dec := json.NewDecoder(bytes.NewReader(respBody))
		dec.UseNumber()
		if err := dec.Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorMessage извлекает текст ошибки из тела ответа.
// Сервер отвечает {error, details?} или {error, message}.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return strings.TrimSpace(string(body))
	}

	msg := payload.Error
	if payload.Message != "" {
		msg += ": " + payload.Message
	}
	if payload.Details != "" {
		msg += " (" + payload.Details + ")"
	}
	return msg
}
