// Package sync синхронизирует локальную очередь изменений клиента с сервером.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	httpClient "github.com/iudanet/zendfast/internal/client/api"
	"github.com/iudanet/zendfast/internal/client/storage"
	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/pkg/api"
)

// BatchSize максимальное число изменений в одном запросе к серверу
const BatchSize = 100

// ErrInvalidChange изменение не может быть поставлено в очередь
var ErrInvalidChange = errors.New("invalid change")

// LocalStore локальное хранилище, нужное сервису
type LocalStore interface {
	storage.Outbox
	storage.RecordStorage
	storage.MetadataStorage
}

// Service handles synchronization between client and server
type Service struct {
	apiClient httpClient.ClientAPI
	store     LocalStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new sync service
func NewService(apiClient httpClient.ClientAPI, store LocalStore, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncResult contains sync operation results
type SyncResult struct {
	ServerTimestamp string          // checkpoint для следующей синхронизации
	Errors          []api.SyncError // изменения, отклоненные сервером
	Pushed          int             // количество отправленных изменений
	Pulled          int             // количество полученных с сервера записей
	Conflicts       int             // изменения, в которых победила серверная версия
	Batches         int             // количество запросов к серверу
}

// Record применяет изменение к локальной копии и ставит его в очередь.
// Недостающие id, время изменения и localTimestamp заполняются здесь.
func (s *Service) Record(ctx context.Context, table, action string, data api.Record) (api.LocalChange, error) {
	desc, ok := models.LookupTable(models.Table(table))
	if !ok {
		return api.LocalChange{}, fmt.Errorf("%w: unknown table %q", ErrInvalidChange, table)
	}
	if !models.Action(action).Valid() {
		return api.LocalChange{}, fmt.Errorf("%w: unknown action %q", ErrInvalidChange, action)
	}

	record := make(api.Record, len(data)+2)
	for k, v := range data {
		record[k] = v
	}

	now := models.FormatTime(s.now())
	if _, ok := record[models.ColumnID]; !ok {
		if action != string(models.ActionInsert) {
			return api.LocalChange{}, fmt.Errorf("%w: %s requires id", ErrInvalidChange, action)
		}
		record[models.ColumnID] = uuid.NewString()
	}
	if _, ok := record[desc.ModifiedColumn]; !ok {
		record[desc.ModifiedColumn] = now
	}

	change := api.LocalChange{
		Table:          table,
		Action:         action,
		Data:           record,
		LocalTimestamp: now,
	}

	if err := s.applyLocal(ctx, change); err != nil {
		return api.LocalChange{}, err
	}
	if _, err := s.store.Enqueue(ctx, change); err != nil {
		return api.LocalChange{}, fmt.Errorf("failed to enqueue change: %w", err)
	}

	return change, nil
}

// Sync отправляет очередь пакетами по BatchSize и применяет изменения сервера.
// Checkpoint сохраняется из первого ответа: записи, измененные между
// пакетами, будут получены повторно в следующий раз.
func (s *Service) Sync(ctx context.Context, accessToken string) (*SyncResult, error) {
	lastSync, err := s.store.GetLastSyncTimestamp(ctx)
	if err != nil {
		s.logger.Warn("Failed to get last sync timestamp, using full sync", "error", err)
		lastSync = ""
	}

	s.logger.Info("Starting synchronization", "last_sync", lastSync)

	result := &SyncResult{Errors: make([]api.SyncError, 0)}

	for {
		pending, err := s.store.Pending(ctx, BatchSize)
		if err != nil {
			return result, fmt.Errorf("failed to get local changes: %w", err)
		}

		// первый запрос уходит и с пустой очередью: он забирает изменения сервера
		if len(pending) == 0 && result.Batches > 0 {
			break
		}

		resp, err := s.pushBatch(ctx, accessToken, lastSync, pending)
		if err != nil {
			return result, err
		}

		result.Batches++
		result.Pushed += len(pending)
		result.Conflicts += len(resp.Conflicts)
		result.Errors = append(result.Errors, resp.Errors...)
		if result.ServerTimestamp == "" {
			result.ServerTimestamp = resp.ServerTimestamp
		}

		pulled, err := s.applyServerChanges(ctx, resp)
		if err != nil {
			return result, err
		}
		result.Pulled += pulled

		if len(pending) < BatchSize {
			break
		}
	}

	if err := s.store.SaveLastSyncTimestamp(ctx, result.ServerTimestamp); err != nil {
		s.logger.Warn("Failed to save last sync timestamp", "error", err)
	}

	s.logger.Info("Synchronization completed",
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"conflicts", result.Conflicts,
		"rejected", len(result.Errors),
		"batches", result.Batches,
	)

	return result, nil
}

// GetPendingSyncCount возвращает количество изменений, ожидающих отправки
func (s *Service) GetPendingSyncCount(ctx context.Context) (int, error) {
	count, err := s.store.PendingCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return count, nil
}

// pushBatch отправляет пакет и удаляет его из очереди после ответа сервера.
// Отклоненные сервером изменения тоже удаляются: повтор даст ту же ошибку.
func (s *Service) pushBatch(ctx context.Context, accessToken, lastSync string, pending []storage.PendingChange) (*api.SyncResponse, error) {
	req := api.SyncRequest{Changes: make([]api.LocalChange, 0, len(pending))}
	if lastSync != "" {
		req.LastSyncTimestamp = &lastSync
	}

	seqs := make([]uint64, 0, len(pending))
	for _, p := range pending {
		req.Changes = append(req.Changes, p.Change)
		seqs = append(seqs, p.Seq)
	}

	resp, err := s.apiClient.Sync(ctx, accessToken, req)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}

	if err := s.store.Ack(ctx, seqs); err != nil {
		return nil, fmt.Errorf("failed to acknowledge changes: %w", err)
	}

	for _, e := range resp.Errors {
		s.logger.Warn("Change rejected by server", "table", e.Table, "action", e.Action, "error", e.Error)
	}

	return resp, nil
}

// applyServerChanges сохраняет изменения сервера и победившие серверные версии
func (s *Service) applyServerChanges(ctx context.Context, resp *api.SyncResponse) (int, error) {
	pulled := 0
	for table, records := range resp.ServerChanges {
		for _, record := range records {
			if err := s.store.PutRecord(ctx, table, record); err != nil {
				return pulled, fmt.Errorf("failed to store %s record: %w", table, err)
			}
			pulled++
		}
	}

	for _, c := range resp.Conflicts {
		winner := c.ResolvedData
		if winner == nil {
			winner = c.RemoteData
		}
		if winner == nil {
			continue
		}
		if err := s.store.PutRecord(ctx, c.Table, winner); err != nil {
			return pulled, fmt.Errorf("failed to store resolved %s record: %w", c.Table, err)
		}
	}

	return pulled, nil
}

func (s *Service) applyLocal(ctx context.Context, change api.LocalChange) error {
	if change.Action == string(models.ActionDelete) {
		id, _ := change.Data[models.ColumnID].(string)
		if err := s.store.DeleteRecord(ctx, change.Table, id); err != nil {
			return fmt.Errorf("failed to delete local record: %w", err)
		}
		return nil
	}

	if err := s.store.PutRecord(ctx, change.Table, change.Data); err != nil {
		return fmt.Errorf("failed to store local record: %w", err)
	}
	return nil
}
