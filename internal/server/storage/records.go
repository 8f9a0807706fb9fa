package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/zendfast/internal/models"
)

// RecordStorage defines interface for synchronized table rows persistence.
// Every method except Export is scoped to a single owner.
type RecordStorage interface {
	// Get returns the record with given id owned by userID
	// Returns ErrRecordNotFound if there is no such record
	Get(ctx context.Context, table models.Table, id, userID string) (models.Record, error)

	// Insert stores a new record. Generates id when the record has none.
	Insert(ctx context.Context, table models.Table, record models.Record) error

	// Upsert creates or replaces a record keyed by id
	// Returns ErrOwnershipConflict if the existing row has a different owner
	Upsert(ctx context.Context, table models.Table, record models.Record) error

	// Delete removes the record with given id owned by userID
	// Deleting a missing record is not an error
	Delete(ctx context.Context, table models.Table, id, userID string) error

	// ChangedSince returns owner's records modified at or after since, newest first
	ChangedSince(ctx context.Context, table models.Table, userID string, since time.Time) ([]models.Record, error)

	// Export returns records of all owners modified at or after since, newest first
	Export(ctx context.Context, table models.Table, since time.Time) ([]models.Record, error)

	// Ping checks the connection
	Ping(ctx context.Context) error

	// Close releases the connection
	Close() error
}

// Describe возвращает дескриптор таблицы или ErrUnknownTable
func Describe(table models.Table) (models.TableDescriptor, error) {
	desc, ok := models.LookupTable(table)
	if !ok {
		return models.TableDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return desc, nil
}

// RowKey извлекает ключ и владельца записи перед записью в хранилище
func RowKey(record models.Record) (id, owner string, err error) {
	id, ok := record.ID()
	if !ok {
		return "", "", ErrMissingID
	}
	owner, ok = record.Owner()
	if !ok {
		return "", "", ErrMissingOwner
	}
	return id, owner, nil
}

// StampModified возвращает время изменения записи по колонке дескриптора.
// Если колонка не заполнена, в запись проставляется now.
// Нераспознанное значение сохраняется как есть, а временем изменения считается now.
func StampModified(desc models.TableDescriptor, record models.Record, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Millisecond)
	if !record.Present(desc.ModifiedColumn) {
		record[desc.ModifiedColumn] = models.FormatTime(now)
		return now
	}
	if t, ok := models.ParseTime(record[desc.ModifiedColumn]); ok {
		return t
	}
	return now
}
