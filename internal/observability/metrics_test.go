package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SyncStarted()
	m.SyncStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncRequests))

	m.SyncChange("fasting_sessions", "update", OutcomeConflict)
	m.SyncChange("fasting_sessions", "update", OutcomeConflict)
	m.SyncChange("hydration_logs", "insert", OutcomeApplied)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncChanges.WithLabelValues("fasting_sessions", "update", OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncChanges.WithLabelValues("hydration_logs", "insert", OutcomeApplied)))

	m.ObserveSync(0.02)
	assert.Equal(t, 1, testutil.CollectAndCount(m.syncDuration))

	m.PullFailed("user_metrics")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pullFailures.WithLabelValues("user_metrics")))

	m.RateLimited("sync")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("sync")))

	m.SetBreakerState(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerState))

	m.ErrorReport(ReportSkipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorReports.WithLabelValues(ReportSkipped)))

	m.BackupFinished("success", 2048)
	m.BackupFinished("error", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backups.WithLabelValues("success")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.backupSize))

	m.BackupsDeleted(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.backupDeleted))

	m.ObserveHTTP("POST", "/functions/v1/sync-user-data", 200, 0.01)
	m.ObserveHTTP("POST", "/functions/v1/sync-user-data", 429, 0.001)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/functions/v1/sync-user-data", "429")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SyncStarted()
		m.SyncChange("t", "a", OutcomeError)
		m.ObserveSync(1)
		m.PullFailed("t")
		m.RateLimited("x")
		m.SetBreakerState(2)
		m.ErrorReport(ReportFailed)
		m.BackupFinished("error", 0)
		m.BackupsDeleted(1)
		m.ObserveHTTP("GET", "/", 200, 0)
	})
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}
