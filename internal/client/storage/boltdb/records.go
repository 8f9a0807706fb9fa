package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/zendfast/internal/client/storage"
	"github.com/iudanet/zendfast/pkg/api"
)

// errMissingID запись без строкового id нельзя положить в bucket
var errMissingID = errors.New("record has no id")

// PutRecord сохраняет запись во вложенный bucket таблицы
func (s *Storage) PutRecord(ctx context.Context, table string, record api.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	id, ok := record["id"].(string)
	if !ok || id == "" {
		return errMissingID
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tableBucket(tx, table, true)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetRecord возвращает запись таблицы по id
func (s *Storage) GetRecord(ctx context.Context, table, id string) (api.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record api.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := tableBucket(tx, table, false)
		if err != nil {
			return err
		}
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		record, err = decodeRecord(data)
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// DeleteRecord удаляет запись; отсутствие записи не ошибка
func (s *Storage) DeleteRecord(ctx context.Context, table, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tableBucket(tx, table, false)
		if err != nil || bucket == nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
}

// ListRecords возвращает все записи таблицы в порядке id
func (s *Storage) ListRecords(ctx context.Context, table string) ([]api.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	records := make([]api.Record, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := tableBucket(tx, table, false)
		if err != nil || bucket == nil {
			return err
		}

		return bucket.ForEach(func(_, v []byte) error {
			record, err := decodeRecord(v)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}

	return records, nil
}

// tableBucket возвращает вложенный bucket таблицы внутри records.
// Без create отсутствующий bucket возвращается как nil без ошибки.
func tableBucket(tx *bbolt.Tx, table string, create bool) (*bbolt.Bucket, error) {
	root := tx.Bucket(bucketRecords)
	if root == nil {
		return nil, fmt.Errorf("records bucket not found")
	}

	if !create {
		return root.Bucket([]byte(table)), nil
	}

	bucket, err := root.CreateBucketIfNotExists([]byte(table))
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", table, err)
	}
	return bucket, nil
}

func decodeRecord(data []byte) (api.Record, error) {
	var record api.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return record, nil
}
