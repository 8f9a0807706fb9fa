package reporting

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/zendfast/internal/breaker"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReport() models.ErrorReport {
	return models.ErrorReport{
		Error:   "boom",
		UserID:  "user-1",
		Context: map[string]any{"method": "POST", "password": "x"},
	}
}

func newTestForwarder(t *testing.T, url string, threshold int) (*Forwarder, *breaker.CircuitBreaker, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	cb := breaker.New(breaker.Config{Name: "sentry", FailureThreshold: threshold, ResetTimeout: time.Hour}, testLogger())
	f := NewForwarder(Config{
		DSN:       "https://key@sentry.io/42",
		ProjectID: "42",
		AuthToken: "sentry-token",
		BaseURL:   url,
		Timeout:   200 * time.Millisecond,
	}, cb, testLogger(), observability.NewMetrics(reg))
	return f, cb, reg
}

func TestForwarder_URL(t *testing.T) {
	f := NewForwarder(Config{ProjectID: "123"}, breaker.New(breaker.Config{}, testLogger()), testLogger(), nil)

	assert.Equal(t, "https://sentry.io/api/123/envelope/", f.URL())
	assert.Equal(t, DefaultTimeout, f.Config().Timeout)
	assert.Equal(t, DefaultEnvironment, f.Config().Environment)
}

func TestConfig_Missing(t *testing.T) {
	assert.Equal(t, []string{"SENTRY_DSN", "SENTRY_PROJECT_ID", "SENTRY_AUTH_TOKEN"}, Config{}.Missing())
	assert.Empty(t, Config{DSN: "d", ProjectID: "p", AuthToken: "a"}.Missing())
}

func TestForwarder_Forward_Success(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/42/envelope/", r.URL.Path)
		assert.Equal(t, "Bearer sentry-token", r.Header.Get("Authorization"))
		assert.Equal(t, EnvelopeContentType, r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, cb, reg := newTestForwarder(t, server.URL, 2)

	assert.True(t, f.Forward(context.Background(), testReport()))
	assert.Equal(t, breaker.StateClosed, cb.State())

	lines := bytes.Split(body, []byte("\n"))
	require.Len(t, lines, 3)
	assert.NotContains(t, string(body), `"x"`, "password value must not leave the process")

	count, err := testutil.GatherAndCount(reg, "zendfast_error_reports_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestForwarder_Forward_OpensBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f, cb, _ := newTestForwarder(t, server.URL, 2)
	ctx := context.Background()

	assert.False(t, f.Forward(ctx, testReport()))
	assert.False(t, f.Forward(ctx, testReport()))
	assert.Equal(t, breaker.StateOpen, cb.State())
	assert.Equal(t, breaker.StateOpen, f.BreakerState())

	// breaker открыт: запрос не отправляется
	assert.False(t, f.Forward(ctx, testReport()))
	assert.Equal(t, int32(2), hits.Load())
}

func TestForwarder_Forward_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f, cb, _ := newTestForwarder(t, server.URL, 5)

	started := time.Now()
	assert.False(t, f.Forward(context.Background(), testReport()))
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, 1, cb.Failures())
}

func TestForwarder_Forward_CallerCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, cb, _ := newTestForwarder(t, server.URL, 1)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	defer cancel()

	assert.True(t, f.Forward(ctx, testReport()))
	assert.Equal(t, breaker.StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestForwarder_Forward_MissingCredentials(t *testing.T) {
	cb := breaker.New(breaker.Config{FailureThreshold: 5}, testLogger())
	f := NewForwarder(Config{}, cb, testLogger(), nil)

	assert.False(t, f.Forward(context.Background(), testReport()))
	assert.Equal(t, 1, cb.Failures())
}
