package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/server/storage"
)

// Get retrieves a single record by id and owner
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) Get(ctx context.Context, table models.Table, id, userID string) (models.Record, error) {
	desc, err := storage.Describe(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = ? AND user_id = ?`, desc.Name)

	var payload string
	err = s.db.QueryRowContext(ctx, query, id, userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return decodePayload(payload)
}

// Insert creates a new record. Generates id when the record has none.
func (s *Storage) Insert(ctx context.Context, table models.Table, record models.Record) error {
	desc, err := storage.Describe(table)
	if err != nil {
		return err
	}

	record = record.Clone()
	if !record.Present(models.ColumnID) {
		record[models.ColumnID] = uuid.NewString()
	}

	id, owner, err := storage.RowKey(record)
	if err != nil {
		return err
	}
	modified := storage.StampModified(desc, record, s.now())

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, payload, modified_at)
		VALUES (?, ?, ?, ?)
	`, desc.Name)

	if _, err := s.db.ExecContext(ctx, query, id, owner, string(payload), modified.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Upsert creates a record keyed by id or merges the given fields into it.
// Поля, которых нет в record, сохраняют прежние значения.
// Существующая строка другого владельца не перезаписывается.
func (s *Storage) Upsert(ctx context.Context, table models.Table, record models.Record) error {
	desc, err := storage.Describe(table)
	if err != nil {
		return err
	}

	record = record.Clone()
	id, owner, err := storage.RowKey(record)
	if err != nil {
		return err
	}
	modified := storage.StampModified(desc, record, s.now())

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, user_id, payload, modified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE
		SET payload = json_patch(%[1]s.payload, excluded.payload), modified_at = excluded.modified_at
		WHERE %[1]s.user_id = excluded.user_id
	`, desc.Name)

	res, err := s.db.ExecContext(ctx, query, id, owner, string(payload), modified.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrOwnershipConflict
	}

	return nil
}

// Delete removes the record with given id owned by userID
func (s *Storage) Delete(ctx context.Context, table models.Table, id, userID string) error {
	desc, err := storage.Describe(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, desc.Name)
	if _, err := s.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// ChangedSince retrieves owner's records modified at or after since, newest first
func (s *Storage) ChangedSince(ctx context.Context, table models.Table, userID string, since time.Time) ([]models.Record, error) {
	desc, err := storage.Describe(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload FROM %s
		WHERE user_id = ? AND modified_at >= ?
		ORDER BY modified_at DESC
	`, desc.Name)

	return s.queryRecords(ctx, query, userID, since.UnixMilli())
}

// Export retrieves records of all owners modified at or after since, newest first
func (s *Storage) Export(ctx context.Context, table models.Table, since time.Time) ([]models.Record, error) {
	desc, err := storage.Describe(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT payload FROM %s
		WHERE modified_at >= ?
		ORDER BY modified_at DESC
	`, desc.Name)

	return s.queryRecords(ctx, query, since.UnixMilli())
}

func (s *Storage) queryRecords(ctx context.Context, query string, args ...any) (records []models.Record, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	records = make([]models.Record, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// decodePayload разбирает JSON-документ строки, сохраняя числа как json.Number
func decodePayload(payload string) (models.Record, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var rec models.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

var _ storage.RecordStorage = (*Storage)(nil)
