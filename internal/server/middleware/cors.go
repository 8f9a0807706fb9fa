package middleware

import (
	"net/http"
	"strings"

	"github.com/iudanet/zendfast/internal/server/handlers"
)

// Наборы методов для CORS заголовков
var (
	SyncMethods   = []string{http.MethodPost, http.MethodOptions}
	BackupMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// CORSMiddleware выставляет CORS заголовки на каждый ответ и отвечает
// на preflight запросы (OPTIONS) статусом 200 и телом "ok".
func CORSMiddleware(methods []string) func(http.Handler) http.Handler {
	allowMethods := strings.Join(methods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MethodGuard отклоняет запросы с методами не из списка ответом 405 {error}
func MethodGuard(message string, methods ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.Method]; !ok {
				w.Header().Set("Allow", strings.Join(methods, ", "))
				handlers.SendError(w, http.StatusMethodNotAllowed, message, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
