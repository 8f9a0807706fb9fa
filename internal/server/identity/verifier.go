// Package identity проверяет bearer-токены и определяет пользователя.
package identity

import (
	"context"
	"errors"
)

// ErrInvalidToken токен не прошел проверку
var ErrInvalidToken = errors.New("invalid token")

// Verifier проверяет токен доступа и возвращает идентификатор пользователя
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
