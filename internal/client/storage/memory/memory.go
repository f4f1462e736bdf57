// Package memory provides an in-memory KV implementation.
// Используется в тестах и для сценариев, где персистентность не нужна.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iudanet/kotobako/internal/client/storage"
)

// KV is an in-memory implementation of storage.KV
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.KV = (*KV)(nil)

// New creates an empty in-memory KV store
func New() *KV {
	return &KV{
		data: make(map[string][]byte),
	}
}

// Get returns the value for key
func (m *KV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// GetMany returns values for all existing keys
func (m *KV) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok := m.data[key]
		if !ok {
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		result[key] = out
	}
	return result, nil
}

// Set stores value under key
func (m *KV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Delete removes key
func (m *KV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Apply выполняет batch под одним lock: Put, затем Delete
func (m *KV) Apply(ctx context.Context, batch storage.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range batch.Put {
		stored := make([]byte, len(value))
		copy(stored, value)
		m.data[key] = stored
	}
	for _, key := range batch.Delete {
		delete(m.data, key)
	}
	return nil
}

// Keys returns all keys with the given prefix, sorted ascending
func (m *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
