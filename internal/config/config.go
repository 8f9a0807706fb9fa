// Package config загружает конфигурацию сервера из YAML-файла
// с переопределением секретов из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/zendfast/internal/validation"
)

// Драйверы хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Режимы проверки токенов
const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"
)

// Config конфигурация сервера
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Log         LogConfig       `yaml:"log"`
	Storage     StorageConfig   `yaml:"storage"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Sentry      SentryConfig    `yaml:"sentry"`
	Backup      BackupConfig    `yaml:"backup"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Environment string          `yaml:"environment"`
}

// ServerConfig параметры HTTP-сервера
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig параметры логирования
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig параметры хранилища записей
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// AuthConfig параметры проверки токенов и доступа к сервисам платформы
type AuthConfig struct {
	Mode           string        `yaml:"mode"`
	JWTSecret      string        `yaml:"jwt_secret"`
	Audience       string        `yaml:"audience"`
	SupabaseURL    string        `yaml:"supabase_url"`
	AnonKey        string        `yaml:"anon_key"`
	ServiceRoleKey string        `yaml:"service_role_key"`
	Timeout        time.Duration `yaml:"timeout"`
}

// RateLimitConfig лимиты запросов
type RateLimitConfig struct {
	SyncPerMinute    int           `yaml:"sync_per_minute"`
	ReportsPerMinute int           `yaml:"reports_per_minute"`
	ReportsPerHour   int           `yaml:"reports_per_hour"`
	// IPPerMinute лимит на IP для всех маршрутов; 0 отключает
	IPPerMinute    int           `yaml:"ip_per_minute"`
	BackupCooldown time.Duration `yaml:"backup_cooldown"`
}

// SentryConfig параметры пересылки ошибок
type SentryConfig struct {
	DSN              string        `yaml:"dsn"`
	ProjectID        string        `yaml:"project_id"`
	AuthToken        string        `yaml:"auth_token"`
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// BackupConfig параметры резервного копирования
type BackupConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Enabled       bool   `yaml:"enabled"`
	UseSSL        bool   `yaml:"use_ssl"`
}

// MetricsConfig параметры экспорта метрик
type MetricsConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// Load читает конфигурацию. Пустой путь или отсутствующий файл
// означают конфигурацию по умолчанию с переменными окружения.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv переопределяет секреты из окружения
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Auth.SupabaseURL, "SUPABASE_URL")
	set(&c.Auth.AnonKey, "SUPABASE_ANON_KEY")
	set(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	set(&c.Auth.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	set(&c.Storage.PostgresDSN, "DATABASE_URL")
	set(&c.Sentry.DSN, "SENTRY_DSN")
	set(&c.Sentry.ProjectID, "SENTRY_PROJECT_ID")
	set(&c.Sentry.AuthToken, "SENTRY_AUTH_TOKEN")
	set(&c.Environment, "ENVIRONMENT")
	set(&c.Backup.EncryptionKey, "BACKUP_ENCRYPTION_KEY")
	set(&c.Backup.AccessKey, "BACKUP_S3_ACCESS_KEY")
	set(&c.Backup.SecretKey, "BACKUP_S3_SECRET_KEY")
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
		if c.Storage.PostgresDSN != "" {
			c.Storage.Driver = DriverPostgres
		}
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/zendfast.db"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeJWT
	}
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = 10 * time.Second
	}
	if c.RateLimit.SyncPerMinute == 0 {
		c.RateLimit.SyncPerMinute = 100
	}
	if c.RateLimit.ReportsPerMinute == 0 {
		c.RateLimit.ReportsPerMinute = 10
	}
	if c.RateLimit.ReportsPerHour == 0 {
		c.RateLimit.ReportsPerHour = 100
	}
	if c.RateLimit.BackupCooldown == 0 {
		c.RateLimit.BackupCooldown = 5 * time.Minute
	}
	if c.Sentry.BaseURL == "" {
		c.Sentry.BaseURL = "https://sentry.io"
	}
	if c.Sentry.Timeout == 0 {
		c.Sentry.Timeout = 10 * time.Second
	}
	if c.Sentry.FailureThreshold == 0 {
		c.Sentry.FailureThreshold = 5
	}
	if c.Sentry.ResetTimeout == 0 {
		c.Sentry.ResetTimeout = 5 * time.Minute
	}
	if c.Backup.Bucket == "" {
		c.Backup.Bucket = "backups"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text; got %q", c.Log.Format)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres; got %q", c.Storage.Driver)
	}

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required for jwt mode")
		}
	case AuthModeRemote:
		if c.Auth.SupabaseURL == "" || c.Auth.AnonKey == "" {
			return fmt.Errorf("auth.supabase_url and auth.anon_key are required for remote mode")
		}
	default:
		return fmt.Errorf("auth.mode must be jwt or remote; got %q", c.Auth.Mode)
	}

	if c.RateLimit.SyncPerMinute < 0 || c.RateLimit.ReportsPerMinute < 0 ||
		c.RateLimit.ReportsPerHour < 0 || c.RateLimit.IPPerMinute < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}

	if c.Backup.Enabled {
		if err := validation.ValidatePassphrase(c.Backup.EncryptionKey); err != nil {
			return fmt.Errorf("backup.encryption_key: %w", err)
		}
		if c.Backup.Endpoint == "" {
			return fmt.Errorf("backup.endpoint is required when backup is enabled")
		}
		if c.Auth.ServiceRoleKey == "" {
			return fmt.Errorf("auth.service_role_key is required when backup is enabled")
		}
	}

	return nil
}
