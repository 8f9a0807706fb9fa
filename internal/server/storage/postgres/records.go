package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/server/storage"
	"github.com/iudanet/zendfast/internal/validation"
)

// Get retrieves a single record by id and owner
// Returns ErrRecordNotFound if record doesn't exist
func (s *Storage) Get(ctx context.Context, table models.Table, id, userID string) (models.Record, error) {
	desc, err := storage.Describe(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 AND %s = $2 LIMIT 1",
		desc.Name, desc.KeyColumn, desc.OwnerColumn)

	records, err := s.queryRecords(ctx, query, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if len(records) == 0 {
		return nil, storage.ErrRecordNotFound
	}

	return records[0], nil
}

// Insert creates a new record as is. Missing id and timestamps are filled by column defaults.
func (s *Storage) Insert(ctx context.Context, table models.Table, record models.Record) error {
	desc, err := storage.Describe(table)
	if err != nil {
		return err
	}
	if _, ok := record.Owner(); !ok {
		return storage.ErrMissingOwner
	}

	query, args, err := buildInsert(desc, record)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Upsert creates or replaces a record keyed by id.
// Строка другого владельца не обновляется.
func (s *Storage) Upsert(ctx context.Context, table models.Table, record models.Record) error {
	desc, err := storage.Describe(table)
	if err != nil {
		return err
	}
	if _, _, err := storage.RowKey(record); err != nil {
		return err
	}

	insert, args, err := buildInsert(desc, record)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(insert)
	b.WriteString(" ON CONFLICT (")
	b.WriteString(desc.KeyColumn)
	b.WriteString(") DO UPDATE SET ")

	first := true
	for _, col := range sortedColumns(record) {
		if col == desc.KeyColumn {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}

	b.WriteString(" WHERE ")
	b.WriteString(string(desc.Name))
	b.WriteString(".")
	b.WriteString(desc.OwnerColumn)
	b.WriteString(" = EXCLUDED.")
	b.WriteString(desc.OwnerColumn)

	res, err := s.db.ExecContext(ctx, b.String(), args...)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
		desc.Name, desc.KeyColumn, desc.OwnerColumn)

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

	query := fmt.Sprintf("SELECT * FROM %[1]s WHERE %[2]s = $1 AND %[3]s >= $2 ORDER BY %[3]s DESC",
		desc.Name, desc.OwnerColumn, desc.ModifiedColumn)

	return s.queryRecords(ctx, query, userID, since.UTC())
}

// Export retrieves records of all owners modified at or after since, newest first
func (s *Storage) Export(ctx context.Context, table models.Table, since time.Time) ([]models.Record, error) {
	desc, err := storage.Describe(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %[1]s WHERE %[2]s >= $1 ORDER BY %[2]s DESC",
		desc.Name, desc.ModifiedColumn)

	return s.queryRecords(ctx, query, since.UTC())
}

// buildInsert строит INSERT по ключам записи. Имена колонок проверяются,
// значения передаются только через плейсхолдеры.
func buildInsert(desc models.TableDescriptor, record models.Record) (string, []any, error) {
	cols := sortedColumns(record)
	if len(cols) == 0 {
		return "", nil, errors.New("record has no fields")
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(string(desc.Name))
	b.WriteString(" (")

	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if err := validation.ValidateIdentifier(col); err != nil {
			return "", nil, fmt.Errorf("invalid column: %w", err)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)

		v, err := toSQLValue(record[col])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col, err)
		}
		args = append(args, v)
	}

	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(")")

	return b.String(), args, nil
}

func sortedColumns(record models.Record) []string {
	return slices.Sorted(maps.Keys(record))
}

// toSQLValue приводит значение JSON к типу, понятному драйверу.
// Вложенные объекты и массивы передаются как JSON.
func toSQLValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64, time.Time:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return t.Float64()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value: %w", err)
		}
		return string(raw), nil
	}
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

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records = make([]models.Record, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec := make(models.Record, len(cols))
		for i, col := range cols {
			rec[col.Name()] = fromSQLValue(col, values[i])
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// fromSQLValue приводит значение колонки к виду, в котором его отдает REST API БД
func fromSQLValue(col *sql.ColumnType, v any) any {
	switch t := v.(type) {
	case time.Time:
		return models.FormatTime(t)
	case []byte:
		return fromText(col, string(t))
	case string:
		return fromText(col, t)
	}
	return v
}

func fromText(col *sql.ColumnType, s string) any {
	switch strings.ToUpper(col.DatabaseTypeName()) {
	case "JSON", "JSONB":
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err == nil {
			return out
		}
	case "NUMERIC":
		return json.Number(s)
	}
	return s
}

var _ storage.RecordStorage = (*Storage)(nil)
