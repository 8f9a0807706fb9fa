// Package syncer применяет пакет офлайн-изменений клиента к хранилищу
// и возвращает изменения сервера с последней синхронизации.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/zendfast/internal/conflict"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/server/storage"
)

//go:generate moq -out store_mock.go . RecordStore

// MaxBatchSize максимальное количество изменений в одном запросе
const MaxBatchSize = 100

// ErrBatchTooLarge пакет превышает MaxBatchSize
var ErrBatchTooLarge = errors.New("batch size exceeds maximum")

// Тексты ошибок отдельных изменений
const (
	msgOwnerMismatch = "User ID mismatch - unauthorized access"
	msgMissingID     = "Missing required field: id"
)

// RecordStore хранилище записей синхронизируемых таблиц
type RecordStore interface {
	Get(ctx context.Context, table models.Table, id, userID string) (models.Record, error)
	Insert(ctx context.Context, table models.Table, record models.Record) error
	Upsert(ctx context.Context, table models.Table, record models.Record) error
	Delete(ctx context.Context, table models.Table, id, userID string) error
	ChangedSince(ctx context.Context, table models.Table, userID string, since time.Time) ([]models.Record, error)
}

// Service обрабатывает пакеты синхронизации
type Service struct {
	store    RecordStore
	resolver *conflict.Resolver
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewService создает сервис синхронизации. metrics может быть nil.
func NewService(store RecordStore, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		resolver: conflict.NewResolver(),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Sync применяет изменения по порядку и собирает изменения сервера.
// Ошибка отдельного изменения попадает в SyncResult.Errors и не прерывает пакет.
// lastSync nil означает выборку с начала эпохи.
func (s *Service) Sync(ctx context.Context, userID string, changes []models.LocalChange, lastSync *time.Time) (*models.SyncResult, error) {
	if len(changes) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(changes), MaxBatchSize)
	}

	started := s.now()
	s.metrics.SyncStarted()

	result := &models.SyncResult{
		Conflicts: make([]models.Conflict, 0),
		Errors:    make([]models.SyncError, 0),
	}

	for _, change := range changes {
		conf, syncErr := s.apply(ctx, userID, change)
		switch {
		case syncErr != nil:
			result.Errors = append(result.Errors, *syncErr)
			s.metrics.SyncChange(string(change.Table), string(change.Action), observability.OutcomeError)
			s.logger.Warn("Sync change failed",
				"user_id", userID,
				"table", change.Table,
				"action", change.Action,
				"error", syncErr.Error,
			)
		case conf != nil:
			result.Conflicts = append(result.Conflicts, *conf)
			s.metrics.SyncChange(string(change.Table), string(change.Action), observability.OutcomeConflict)
		default:
			s.metrics.SyncChange(string(change.Table), string(change.Action), observability.OutcomeApplied)
		}
	}

	since := time.Unix(0, 0).UTC()
	if lastSync != nil {
		since = *lastSync
	}
	result.ServerChanges = s.serverChanges(ctx, userID, since)

	result.Success = len(result.Errors) == 0
	result.ServerTimestamp = s.now().UTC()
	s.metrics.ObserveSync(result.ServerTimestamp.Sub(started).Seconds())

	s.logger.Info("Sync completed",
		"user_id", userID,
		"changes", len(changes),
		"conflicts", len(result.Conflicts),
		"errors", len(result.Errors),
	)

	return result, nil
}

// apply обрабатывает одно изменение. Возвращает конфликт, если победила
// серверная версия, или ошибку изменения.
func (s *Service) apply(ctx context.Context, userID string, change models.LocalChange) (*models.Conflict, *models.SyncError) {
	if change.Data.Present(models.ColumnUserID) {
		if owner, ok := change.Data.Owner(); !ok || owner != userID {
			return nil, itemError(change, change.Data, msgOwnerMismatch)
		}
	}

	// Изменение клиента не модифицируется: владелец проставляется в копию
	data := change.Data.Clone()
	if data == nil {
		data = models.Record{}
	}
	if !data.Present(models.ColumnUserID) {
		data[models.ColumnUserID] = userID
	}
	change.Data = data

	if _, ok := models.LookupTable(change.Table); !ok {
		return nil, itemError(change, data, fmt.Sprintf("Unknown table: %s", change.Table))
	}

	switch change.Action {
	case models.ActionInsert:
		if err := s.store.Insert(ctx, change.Table, data); err != nil {
			return nil, itemError(change, data, "Insert failed: "+err.Error())
		}
		return nil, nil

	case models.ActionUpdate:
		return s.update(ctx, userID, change)

	case models.ActionDelete:
		id, ok := data.ID()
		if !ok {
			return nil, itemError(change, data, msgMissingID)
		}
		if err := s.store.Delete(ctx, change.Table, id, userID); err != nil {
			return nil, itemError(change, data, "Delete failed: "+err.Error())
		}
		return nil, nil
	}

	return nil, itemError(change, data, fmt.Sprintf("Unknown action: %s", change.Action))
}

func (s *Service) update(ctx context.Context, userID string, change models.LocalChange) (*models.Conflict, *models.SyncError) {
	id, ok := change.Data.ID()
	if !ok {
		return nil, itemError(change, change.Data, msgMissingID)
	}

	remote, err := s.store.Get(ctx, change.Table, id, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrRecordNotFound) {
			return nil, itemError(change, change.Data, "Fetch failed: "+err.Error())
		}
		remote = nil
	}

	resolution := s.resolver.Resolve(change, remote)
	if !resolution.ShouldUpdate {
		return resolution.Conflict, nil
	}

	if err := s.store.Upsert(ctx, change.Table, change.Data); err != nil {
		return nil, itemError(change, change.Data, "Update failed: "+err.Error())
	}
	return nil, nil
}

// serverChanges выбирает изменения всех таблиц параллельно.
// Ошибка таблицы логируется, для нее возвращается пустой список.
func (s *Service) serverChanges(ctx context.Context, userID string, since time.Time) map[models.Table][]models.Record {
	tables := models.SyncTables()
	results := make([][]models.Record, len(tables))

	var g errgroup.Group
	for i, desc := range tables {
		g.Go(func() error {
			records, err := s.store.ChangedSince(ctx, desc.Name, userID, since)
			if err != nil {
				s.logger.Error("Failed to fetch server changes",
					"table", desc.Name,
					"user_id", userID,
					"error", err,
				)
				s.metrics.PullFailed(string(desc.Name))
				records = nil
			}
			if records == nil {
				records = make([]models.Record, 0)
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[models.Table][]models.Record, len(tables))
	for i, desc := range tables {
		out[desc.Name] = results[i]
	}
	return out
}

func itemError(change models.LocalChange, data models.Record, msg string) *models.SyncError {
	return &models.SyncError{
		Table:  change.Table,
		Action: change.Action,
		Error:  msg,
		Data:   data,
	}
}
