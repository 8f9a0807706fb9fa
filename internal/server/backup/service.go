// Package backup выгружает изменения синхронизируемых таблиц,
// сжимает, шифрует и загружает их в объектное хранилище.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/zendfast/internal/crypto"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
)

// Параметры резервного копирования
const (
	DefaultHours     = 24
	DefaultSource    = "manual"
	DefaultRetention = 30 * 24 * time.Hour
	Bucket           = "backups"
	ContentType      = "application/octet-stream"
	filenamePrefix   = "backup_"
	filenameSuffix   = ".json.gz.enc"
	filenameLayout   = "20060102_150405"
)

// ErrObjectExists объект с таким именем уже загружен
var ErrObjectExists = errors.New("object already exists")

// Source источник выгружаемых записей
type Source interface {
	// Export возвращает записи всех владельцев, измененные начиная с since
	Export(ctx context.Context, table models.Table, since time.Time) ([]models.Record, error)
}

// ObjectInfo описание объекта в хранилище
type ObjectInfo struct {
	LastModified time.Time
	Name         string
	Size         int64
}

// ObjectStore объектное хранилище резервных копий
type ObjectStore interface {
	// Put загружает объект; существующий объект не перезаписывается (ErrObjectExists)
	Put(ctx context.Context, name string, data []byte, contentType string) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Remove(ctx context.Context, names []string) error
}

// Request параметры запуска
type Request struct {
	Source string `json:"source,omitempty"`
	Hours  int    `json:"hours,omitempty"`
}

// Document содержимое резервной копии до сжатия
type Document struct {
	Tables      map[models.Table][]models.Record `json:"tables"`
	Counts      map[models.Table]int             `json:"counts"`
	GeneratedAt string                           `json:"generated_at"`
	Hours       int                              `json:"hours"`
}

// Service выполняет резервное копирование
type Service struct {
	source     Source
	objects    ObjectStore
	logger     *slog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	passphrase string
	retention  time.Duration
}

// NewService создает сервис резервного копирования. metrics может быть nil.
func NewService(source Source, objects ObjectStore, passphrase string, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:     source,
		objects:    objects,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		passphrase: passphrase,
		retention:  DefaultRetention,
	}
}

// Run выгружает данные, шифрует, загружает копию и удаляет устаревшие.
// Ошибка удаления устаревших копий логируется и не прерывает запуск.
func (s *Service) Run(ctx context.Context, req Request) (*models.BackupResult, error) {
	started := s.now()
	if req.Hours <= 0 {
		req.Hours = DefaultHours
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}

	s.logger.Info("Backup started", "source", req.Source, "hours", req.Hours)

	result, err := s.run(ctx, req, started)
	if err != nil {
		s.metrics.BackupFinished("error", 0)
		s.logger.Error("Backup failed",
			"source", req.Source,
			"execution_time_ms", s.now().Sub(started).Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	s.metrics.BackupFinished(result.Status, result.DataStats.EncryptedSize)
	s.logger.Info("Backup completed",
		"filename", result.Filename,
		"source", req.Source,
		"encrypted_size", result.DataStats.EncryptedSize,
		"deleted_old_backups", result.RetentionCleanup.Deleted,
		"execution_time_ms", result.ExecutionTimeMs,
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, req Request, started time.Time) (*models.BackupResult, error) {
	doc, err := s.extract(ctx, req.Hours, started)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup data: %w", err)
	}

	compressed, err := compress(raw)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.SealWithPassphrase(compressed, s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt backup: %w", err)
	}

	filename := Filename(started)
	if err := s.objects.Put(ctx, filename, sealed, ContentType); err != nil {
		return nil, fmt.Errorf("storage upload failed: %w", err)
	}

	deleted := s.cleanup(ctx)

	return &models.BackupResult{
		Status:        models.BackupStatusSuccess,
		Message:       "Backup completed successfully",
		Filename:      filename,
		StoragePath:   Bucket + "/" + filename,
		Timestamp:     models.FormatTime(s.now()),
		RequestSource: req.Source,
		DataStats: models.BackupStats{
			OriginalSize:     len(raw),
			CompressedSize:   len(compressed),
			EncryptedSize:    len(sealed),
			CompressionRatio: fmt.Sprintf("%.1f%%", float64(len(compressed))/float64(len(raw))*100),
			RecordCounts:     doc.Counts,
		},
		RetentionCleanup: models.RetentionCleanup{
			Deleted:   len(deleted),
			Filenames: deleted,
		},
		ExecutionTimeMs: s.now().Sub(started).Milliseconds(),
	}, nil
}

func (s *Service) extract(ctx context.Context, hours int, now time.Time) (*Document, error) {
	since := now.Add(-time.Duration(hours) * time.Hour)
	doc := &Document{
		GeneratedAt: models.FormatTime(now),
		Hours:       hours,
		Tables:      make(map[models.Table][]models.Record),
		Counts:      make(map[models.Table]int),
	}

	for _, desc := range models.SyncTables() {
		records, err := s.source.Export(ctx, desc.Name, since)
		if err != nil {
			return nil, fmt.Errorf("failed to extract backup data: %w", err)
		}
		if records == nil {
			records = make([]models.Record, 0)
		}
		doc.Tables[desc.Name] = records
		doc.Counts[desc.Name] = len(records)
	}
	return doc, nil
}

// cleanup удаляет копии старше срока хранения и возвращает их имена
func (s *Service) cleanup(ctx context.Context) []string {
	deleted := make([]string, 0)

	objects, err := s.objects.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list backups for retention cleanup", "error", err)
		return deleted
	}

	cutoff := s.now().Add(-s.retention)
	var expired []string
	for _, obj := range objects {
		if !IsBackupName(obj.Name) || !obj.LastModified.Before(cutoff) {
			continue
		}
		expired = append(expired, obj.Name)
	}
	if len(expired) == 0 {
		return deleted
	}
	slices.Sort(expired)

	if err := s.objects.Remove(ctx, expired); err != nil {
		s.logger.Error("Failed to delete old backups", "count", len(expired), "error", err)
		return deleted
	}

	s.metrics.BackupsDeleted(len(expired))
	s.logger.Info("Deleted old backups", "count", len(expired), "cutoff", models.FormatTime(cutoff))
	return expired
}

// Filename имя файла копии для момента t (UTC)
func Filename(t time.Time) string {
	return filenamePrefix + t.UTC().Format(filenameLayout) + filenameSuffix
}

// IsBackupName сообщает, похоже ли имя объекта на имя копии
func IsBackupName(name string) bool {
	return strings.HasPrefix(name, filenamePrefix) && strings.HasSuffix(name, filenameSuffix)
}

// Decode расшифровывает и распаковывает копию
func Decode(sealed []byte, passphrase string) (*Document, error) {
	compressed, err := crypto.OpenWithPassphrase(sealed, passphrase)
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress backup: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var doc Document
	dec := json.NewDecoder(zr)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return &doc, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress backup: %w", err)
	}
	return buf.Bytes(), nil
}
