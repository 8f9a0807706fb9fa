package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/ratelimit"
	"github.com/iudanet/zendfast/internal/server/handlers"
)

// IPRateLimiter ограничивает частоту запросов с одного IP адреса.
// Работает до проверки токена и защищает от перебора без авторизации.
type IPRateLimiter struct {
	limiter *ratelimit.SlidingWindow
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIPRateLimiter создает limiter
// rate - максимальное количество запросов за окно
// window - временное окно (например, 1 минута)
func NewIPRateLimiter(rate int, window time.Duration, logger *slog.Logger, metrics *observability.Metrics) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: ratelimit.NewSlidingWindow("ip", rate, window),
		logger:  logger,
		metrics: metrics,
	}
}

// Stop останавливает очистку ключей
func (rl *IPRateLimiter) Stop() {
	rl.limiter.Stop()
}

// Middleware возвращает middleware, отклоняющий запросы сверх лимита ответом 429
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)

		if !rl.limiter.Allow(key) {
			rl.metrics.RateLimited(rl.limiter.Name())
			rl.logger.Warn("Rate limit exceeded",
				"ip", key,
				"method", r.Method,
				"path", r.URL.Path,
			)

			if retry := rl.limiter.RetryAfter(key); retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			}
			handlers.SendError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Из X-Forwarded-For берем последний адрес: его дописал ближайший прокси.
	// Начало списка задает клиент, ключом лимита оно быть не может.
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(xff[len(xff)-1], ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr без порта: иначе каждое соединение получает свой ключ
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
