package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteVerifier проверяет токен запросом к сервису авторизации (GET /auth/v1/user)
type RemoteVerifier struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewRemoteVerifier создает проверку через сервис авторизации.
// apiKey - публичный (anon) ключ проекта.
func NewRemoteVerifier(baseURL, apiKey string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type remoteUser struct {
	ID string `json:"id"`
}

type remoteError struct {
	Message string `json:"msg"`
	Error   string `json:"error_description"`
}

// Verify возвращает id пользователя, которому принадлежит токен
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		var apiErr remoteError
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, msg)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var user remoteUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: no user found", ErrInvalidToken)
	}

	return user.ID, nil
}
