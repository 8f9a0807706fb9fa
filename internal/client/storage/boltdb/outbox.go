package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/zendfast/internal/client/storage"
	"github.com/iudanet/zendfast/pkg/api"
)

// Enqueue добавляет изменение в конец очереди.
// Ключ - big-endian sequence bucket, поэтому курсор обходит очередь по порядку.
func (s *Storage) Enqueue(ctx context.Context, change api.LocalChange) (uint64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	data, err := json.Marshal(change)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal change: %w", err)
	}

	var seq uint64
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}

		next, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		seq = next

		return bucket.Put(seqKey(seq), data)
	})
	if err != nil {
		return 0, fmt.Errorf("transaction failed: %w", err)
	}

	return seq, nil
}

// Pending возвращает не более limit первых изменений очереди
func (s *Storage) Pending(ctx context.Context, limit int) ([]storage.PendingChange, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	pending := make([]storage.PendingChange, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(pending) >= limit {
				break
			}

			var change api.LocalChange
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			if err := dec.Decode(&change); err != nil {
				return fmt.Errorf("failed to unmarshal change %d: %w", binary.BigEndian.Uint64(k), err)
			}

			pending = append(pending, storage.PendingChange{
				Seq:    binary.BigEndian.Uint64(k),
				Change: change,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}

	return pending, nil
}

// Ack удаляет отправленные изменения
func (s *Storage) Ack(ctx context.Context, seqs []uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}

		for _, seq := range seqs {
			if err := bucket.Delete(seqKey(seq)); err != nil {
				return fmt.Errorf("failed to delete change %d: %w", seq, err)
			}
		}
		return nil
	})
}

// PendingCount возвращает длину очереди
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOutbox)
		if bucket == nil {
			return fmt.Errorf("outbox bucket not found")
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}

	return count, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
