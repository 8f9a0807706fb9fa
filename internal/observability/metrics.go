// Package observability содержит Prometheus-метрики сервера.
// Все методы Metrics безопасны для nil-получателя: компоненты могут работать без метрик.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки изменения
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Исходы пересылки отчета об ошибке
const (
	ReportForwarded = "forwarded"
	ReportFailed    = "failed"
	ReportSkipped   = "skipped"
)

// Metrics набор метрик сервера
type Metrics struct {
	syncRequests  prometheus.Counter
	syncChanges   *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	pullFailures  *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	breakerState  prometheus.Gauge
	errorReports  *prometheus.CounterVec
	backups       *prometheus.CounterVec
	backupSize    prometheus.Gauge
	backupDeleted prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics создает метрики и регистрирует их в reg.
// nil reg означает prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		syncRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zendfast_sync_requests_total",
			Help: "Sync batches accepted for processing.",
		}),
		syncChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_sync_changes_total",
			Help: "Processed sync changes by table, action and outcome.",
		}, []string{"table", "action", "outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zendfast_sync_duration_seconds",
			Help:    "Time to process one sync batch including the server changes pull.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		pullFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_sync_pull_failures_total",
			Help: "Server changes fetches that failed and were returned empty.",
		}, []string{"table"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_rate_limited_total",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"limiter"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zendfast_circuit_breaker_state",
			Help: "Error tracker circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
		errorReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_error_reports_total",
			Help: "Accepted error reports by forwarding outcome.",
		}, []string{"outcome"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_backups_total",
			Help: "Backup runs by status.",
		}, []string{"status"}),
		backupSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zendfast_backup_last_size_bytes",
			Help: "Encrypted size of the last successful backup.",
		}),
		backupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zendfast_backup_retention_deleted_total",
			Help: "Backups removed by the retention policy.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zendfast_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zendfast_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.syncRequests, m.syncChanges, m.syncDuration, m.pullFailures,
		m.rateLimited, m.breakerState, m.errorReports,
		m.backups, m.backupSize, m.backupDeleted,
		m.httpRequests, m.httpDuration,
	)

	return m
}

// SyncStarted учитывает принятый пакет синхронизации
func (m *Metrics) SyncStarted() {
	if m == nil {
		return
	}
	m.syncRequests.Inc()
}

// SyncChange учитывает исход обработки одного изменения
func (m *Metrics) SyncChange(table, action, outcome string) {
	if m == nil {
		return
	}
	m.syncChanges.WithLabelValues(table, action, outcome).Inc()
}

// ObserveSync записывает длительность обработки пакета
func (m *Metrics) ObserveSync(seconds float64) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(seconds)
}

// PullFailed учитывает ошибку выборки серверных изменений таблицы
func (m *Metrics) PullFailed(table string) {
	if m == nil {
		return
	}
	m.pullFailures.WithLabelValues(table).Inc()
}

// RateLimited учитывает отказ ограничителя
func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}

// SetBreakerState выставляет состояние circuit breaker
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

// ErrorReport учитывает исход пересылки отчета
func (m *Metrics) ErrorReport(outcome string) {
	if m == nil {
		return
	}
	m.errorReports.WithLabelValues(outcome).Inc()
}

// BackupFinished учитывает завершение резервного копирования
func (m *Metrics) BackupFinished(status string, encryptedBytes int) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(status).Inc()
	if encryptedBytes > 0 {
		m.backupSize.Set(float64(encryptedBytes))
	}
}

// BackupsDeleted учитывает удаленные по сроку хранения копии
func (m *Metrics) BackupsDeleted(n int) {
	if m == nil {
		return
	}
	m.backupDeleted.Add(float64(n))
}

// ObserveHTTP учитывает обработанный HTTP запрос
func (m *Metrics) ObserveHTTP(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}
