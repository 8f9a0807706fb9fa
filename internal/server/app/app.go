// Package app собирает HTTP-сервер синхронизации из конфигурации:
// хранилище, проверку токенов, ограничители, пересылку ошибок и резервное копирование.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/zendfast/internal/breaker"
	"github.com/iudanet/zendfast/internal/config"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/ratelimit"
	"github.com/iudanet/zendfast/internal/server/backup"
	"github.com/iudanet/zendfast/internal/server/handlers"
	"github.com/iudanet/zendfast/internal/server/identity"
	"github.com/iudanet/zendfast/internal/server/middleware"
	"github.com/iudanet/zendfast/internal/server/reporting"
	"github.com/iudanet/zendfast/internal/server/storage/postgres"
	"github.com/iudanet/zendfast/internal/server/storage/sqlite"
	"github.com/iudanet/zendfast/internal/server/syncer"
)

// Пути HTTP API
const (
	PathSync        = "/functions/v1/sync-user-data"
	PathErrorReport = "/functions/v1/sentry-error-report"
	PathBackup      = "/functions/v1/backup-data"
	PathHealth      = "/api/v1/health"
)

// Имена ограничителей, они же значения метки limiter в метриках
const (
	limiterSync         = "sync"
	limiterReportMinute = "minute"
	limiterReportHour   = "hour"
	limiterBackup       = "backup"
)

// RecordStore хранилище записей, нужное серверу
type RecordStore interface {
	syncer.RecordStore
	backup.Source
	Ping(ctx context.Context) error
	Close() error
}

// App собранный сервер
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    RecordStore
	registry *prometheus.Registry
	metrics  *observability.Metrics
	handler  http.Handler
	stoppers []func()
	version  string
}

// New открывает хранилище по конфигурации и собирает сервер
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var objects backup.ObjectStore
	if cfg.Backup.Enabled {
		objects, err = backup.NewMinioStore(ctx, backup.MinioConfig{
			Endpoint:  cfg.Backup.Endpoint,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			UseSSL:    cfg.Backup.UseSSL,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect backup storage: %w", err)
		}
	}

	return NewWithStore(cfg, logger, store, objects, version), nil
}

// NewWithStore собирает сервер поверх готовых хранилищ.
// objects nil отключает маршрут резервного копирования.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store RecordStore, objects backup.ObjectStore, version string) *App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
		version:  version,
	}
	a.handler = a.routes(objects)
	return a
}

// Handler корневой HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер
// в пределах server.shutdown_timeout
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server started", "addr", srv.Addr, "version", a.version, "storage", a.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

// Close останавливает фоновые очистки ограничителей и закрывает хранилище
func (a *App) Close() error {
	for _, stop := range a.stoppers {
		stop()
	}
	return a.store.Close()
}

func (a *App) routes(objects backup.ObjectStore) http.Handler {
	cfg := a.cfg
	mux := http.NewServeMux()

	// sync
	syncLimiter := ratelimit.NewSlidingWindow(limiterSync, cfg.RateLimit.SyncPerMinute, time.Minute)
	a.stoppers = append(a.stoppers, syncLimiter.Stop)
	syncHandler := handlers.NewSyncHandler(a.logger, syncer.NewService(a.store, a.logger, a.metrics), syncLimiter, a.metrics)

	syncChain := []func(http.Handler) http.Handler{
		middleware.CORSMiddleware(middleware.SyncMethods),
		middleware.MethodGuard("Method not allowed. Use POST.", http.MethodPost),
	}
	if cfg.RateLimit.IPPerMinute > 0 {
		ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.IPPerMinute, time.Minute, a.logger, a.metrics)
		a.stoppers = append(a.stoppers, ipLimiter.Stop)
		syncChain = append(syncChain, ipLimiter.Middleware)
	}
	syncChain = append(syncChain, middleware.AuthMiddleware(a.logger, a.verifier()))
	mux.Handle(PathSync, chain(http.HandlerFunc(syncHandler.HandleSync), syncChain...))

	// error report
	minute := ratelimit.NewSlidingWindow(limiterReportMinute, cfg.RateLimit.ReportsPerMinute, time.Minute)
	hour := ratelimit.NewSlidingWindow(limiterReportHour, cfg.RateLimit.ReportsPerHour, time.Hour)
	reportLimits := ratelimit.NewChain(minute, hour)
	a.stoppers = append(a.stoppers, reportLimits.Stop)

	guard := breaker.New(breaker.Config{
		Name:             "sentry",
		FailureThreshold: cfg.Sentry.FailureThreshold,
		ResetTimeout:     cfg.Sentry.ResetTimeout,
		OnStateChange: func(_, to breaker.State) {
			a.metrics.SetBreakerState(int(to))
		},
	}, a.logger)
	forwarder := reporting.NewForwarder(reporting.Config{
		DSN:         cfg.Sentry.DSN,
		ProjectID:   cfg.Sentry.ProjectID,
		AuthToken:   cfg.Sentry.AuthToken,
		Environment: cfg.Environment,
		BaseURL:     cfg.Sentry.BaseURL,
		Timeout:     cfg.Sentry.Timeout,
	}, guard, a.logger, a.metrics)

	reportHandler := handlers.NewErrorReportHandler(a.logger, forwarder, reportLimits, map[string]string{
		limiterReportMinute: handlers.ReportLimitMessage(cfg.RateLimit.ReportsPerMinute, "minute"),
		limiterReportHour:   handlers.ReportLimitMessage(cfg.RateLimit.ReportsPerHour, "hour"),
	}, a.metrics)
	mux.Handle(PathErrorReport, chain(http.HandlerFunc(reportHandler.HandleReport),
		middleware.CORSMiddleware(middleware.SyncMethods),
		middleware.MethodGuard("Method not allowed", http.MethodPost),
	))

	// backup
	if objects != nil {
		cooldown := ratelimit.NewSlidingWindow(limiterBackup, 1, cfg.RateLimit.BackupCooldown)
		a.stoppers = append(a.stoppers, cooldown.Stop)
		runner := backup.NewService(a.store, objects, cfg.Backup.EncryptionKey, a.logger, a.metrics)
		backupHandler := handlers.NewBackupHandler(a.logger, runner, cooldown, cfg.Auth.ServiceRoleKey, a.metrics)
		mux.Handle(PathBackup, chain(http.HandlerFunc(backupHandler.HandleBackup),
			middleware.CORSMiddleware(middleware.BackupMethods),
		))
	}

	health := handlers.NewHealthHandler(a.logger, a.store, a.version)
	mux.HandleFunc("GET "+PathHealth, health.Health)

	skip := []string{PathHealth}
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
		skip = append(skip, cfg.Metrics.Path)
	}

	return chain(mux,
		middleware.LoggingWithSkip(a.logger, a.metrics, skip),
		middleware.RecoveryMiddleware(a.logger),
	)
}

func (a *App) verifier() identity.Verifier {
	if a.cfg.Auth.Mode == config.AuthModeRemote {
		return identity.NewRemoteVerifier(a.cfg.Auth.SupabaseURL, a.cfg.Auth.AnonKey, a.cfg.Auth.Timeout)
	}
	return identity.NewJWTVerifier([]byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.Audience)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (RecordStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return store, nil
	}
}

// chain оборачивает h так, что первый middleware выполняется первым
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
