package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/zendfast/internal/observability"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		handler        http.HandlerFunc
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{
			name:   "POST request with 200 OK",
			method: http.MethodPost,
			path:   "/functions/v1/sync-user-data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"success":true}`))
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Request with 429 Too Many Requests",
			method: http.MethodPost,
			path:   "/functions/v1/sentry-error-report",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:   "Request with 500 Internal Server Error",
			method: http.MethodGet,
			path:   "/functions/v1/backup-data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("server error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))

			handler := LoggingMiddleware(logger, nil)(tt.handler)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "192.168.1.1:12345"
			req.Header.Set("User-Agent", "TestAgent/1.0")
			req.Header.Set("Authorization", "Bearer secret-token")
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			logOutput := logBuf.String()
			assert.Contains(t, logOutput, "HTTP request")
			assert.Contains(t, logOutput, tt.method)
			assert.Contains(t, logOutput, tt.path)
			assert.Contains(t, logOutput, "192.168.1.1")
			assert.Contains(t, logOutput, "TestAgent/1.0")
			assert.NotContains(t, logOutput, "secret-token", "tokens must not be logged")

			if tt.expectedStatus >= 500 {
				assert.Contains(t, logOutput, "ERROR", "5xx should log as ERROR")
			} else if tt.expectedStatus >= 400 {
				assert.Contains(t, logOutput, "WARN", "4xx should log as WARN")
			} else {
				assert.Contains(t, logOutput, "INFO", "2xx-3xx should log as INFO")
			}
		})
	}
}

func TestLoggingMiddleware_CapturesResponseMetrics(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	handler := LoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Hello, World!")) // 13 bytes
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "duration_ms")
	assert.Contains(t, logOutput, "bytes_written=13")
	assert.Contains(t, logOutput, "status=200")
}

func TestLoggingMiddleware_RecordsRouteMetrics(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /functions/v1/sync-user-data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := LoggingMiddleware(logger, metrics)(mux)

	for _, path := range []string{"/functions/v1/sync-user-data", "/random/1", "/random/2"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	expected := `
# HELP zendfast_http_requests_total HTTP requests by method, path and status code.
# TYPE zendfast_http_requests_total counter
zendfast_http_requests_total{code="200",method="POST",path="POST /functions/v1/sync-user-data"} 1
zendfast_http_requests_total{code="404",method="POST",path="unmatched"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "zendfast_http_requests_total"))
}

func TestLoggingWithSkip(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	skipPaths := []string{"/api/v1/health", "/metrics"}
	middleware := LoggingWithSkip(logger, nil, skipPaths)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("Skipped path should not be logged", func(t *testing.T) {
		logBuf.Reset()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, logBuf.String(), "skipped path should not be logged")
	})

	t.Run("Non-skipped path should be logged", func(t *testing.T) {
		logBuf.Reset()

		req := httptest.NewRequest(http.MethodPost, "/functions/v1/sync-user-data", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, logBuf.String(), "HTTP request")
		assert.Contains(t, logBuf.String(), "/functions/v1/sync-user-data")
	})
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		writeHeader    bool
		statusCode     int
		expectedStatus int
	}{
		{
			name:           "Explicit 201",
			writeHeader:    true,
			statusCode:     http.StatusCreated,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Explicit 404",
			writeHeader:    true,
			statusCode:     http.StatusNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Default 200 (no WriteHeader)",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if tt.writeHeader {
				rw.WriteHeader(tt.statusCode)
			}
			_, _ = rw.Write([]byte("test"))

			assert.Equal(t, tt.expectedStatus, rw.statusCode)
		})
	}
}

func TestResponseWriter_CapturesBytesWritten(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	n1, err := rw.Write([]byte("Hello, "))
	require.NoError(t, err)
	assert.Equal(t, 7, n1)

	n2, err := rw.Write([]byte("World!"))
	require.NoError(t, err)
	assert.Equal(t, 6, n2)

	assert.Equal(t, int64(13), rw.written)
}
