package boltdb

import (
	"bytes"
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/kotobako/internal/client/storage"
)

// Get returns the value stored under key in the data bucket
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound
		}

		// Копируем: данные bbolt валидны только внутри транзакции
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return value, nil
}

// GetMany returns values for all existing keys in one read transaction.
// Missing keys are silently omitted.
func (s *Storage) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		for _, key := range keys {
			data := bucket.Get([]byte(key))
			if data == nil {
				continue
			}
			value := make([]byte, len(data))
			copy(value, data)
			result[key] = value
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Set stores value under key
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to save value: %w", err)
		}
		return nil
	})
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete value: %w", err)
		}
		return nil
	})
}

// Apply выполняет batch в одной Update-транзакции: либо применяется
// все целиком, либо ничего
func (s *Storage) Apply(ctx context.Context, batch storage.Batch) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		for key, value := range batch.Put {
			if err := bucket.Put([]byte(key), value); err != nil {
				return fmt.Errorf("failed to put %q: %w", key, err)
			}
		}

		for _, key := range batch.Delete {
			if err := bucket.Delete([]byte(key)); err != nil {
				return fmt.Errorf("failed to delete %q: %w", key, err)
			}
		}

		return nil
	})
}

// Keys returns all keys with the given prefix in ascending order
func (s *Storage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketData)
		if bucket == nil {
			return fmt.Errorf("data bucket not found")
		}

		c := bucket.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return keys, nil
}
