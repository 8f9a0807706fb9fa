package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/zendfast/internal/server/handlers"
	"github.com/iudanet/zendfast/internal/server/identity"
)

// AuthMiddleware создает middleware для проверки токена пользователя.
// Идентификатор пользователя кладется в контекст запроса (handlers.UserIDKey).
func AuthMiddleware(logger *slog.Logger, verifier identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				handlers.SendError(w, http.StatusUnauthorized, "Missing Authorization header", "")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.Warn("Invalid Authorization header format")
				handlers.SendError(w, http.StatusUnauthorized,
					"Invalid Authorization header format. Expected 'Bearer <token>'", "")
				return
			}

			if strings.TrimSpace(tokenString) == "" {
				logger.Warn("Empty JWT token")
				handlers.SendError(w, http.StatusUnauthorized, "Empty JWT token", "")
				return
			}

			userID, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				logger.Warn("Token verification failed", "error", err)
				handlers.SendError(w, http.StatusUnauthorized, authErrorMessage(err), "")
				return
			}

			logger.Debug("User authenticated", "user_id", userID)

			next.ServeHTTP(w, r.WithContext(handlers.WithUserID(r.Context(), userID)))
		})
	}
}

// authErrorMessage текст ответа 401 для ошибки проверки токена.
// Внутренние ошибки (сеть, сервис авторизации) клиенту не раскрываются.
func authErrorMessage(err error) string {
	if !errors.Is(err, identity.ErrInvalidToken) {
		return "Authentication failed"
	}
	reason := strings.TrimPrefix(err.Error(), identity.ErrInvalidToken.Error()+": ")
	return "Invalid JWT: " + reason
}
