// Package storage описывает локальное хранилище клиента: очередь
// неотправленных изменений, копию серверных записей и метаданные синхронизации.
package storage

import (
	"context"

	"github.com/iudanet/zendfast/pkg/api"
)

// PendingChange изменение в очереди отправки.
// Seq монотонно растет и задает порядок отправки.
type PendingChange struct {
	Change api.LocalChange
	Seq    uint64
}

// Outbox очередь изменений, сделанных офлайн
type Outbox interface {
	// Enqueue добавляет изменение в конец очереди
	Enqueue(ctx context.Context, change api.LocalChange) (uint64, error)

	// Pending возвращает не более limit первых изменений; limit <= 0 означает все
	Pending(ctx context.Context, limit int) ([]PendingChange, error)

	// Ack удаляет отправленные изменения
	Ack(ctx context.Context, seqs []uint64) error

	// PendingCount возвращает длину очереди
	PendingCount(ctx context.Context) (int, error)
}

// RecordStorage локальная копия записей синхронизируемых таблиц
type RecordStorage interface {
	// PutRecord сохраняет запись по ее id
	PutRecord(ctx context.Context, table string, record api.Record) error

	// GetRecord возвращает запись. ErrRecordNotFound, если записи нет.
	GetRecord(ctx context.Context, table, id string) (api.Record, error)

	// DeleteRecord удаляет запись; отсутствие записи не ошибка
	DeleteRecord(ctx context.Context, table, id string) error

	// ListRecords возвращает все записи таблицы
	ListRecords(ctx context.Context, table string) ([]api.Record, error)
}
