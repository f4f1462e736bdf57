package storage

import "context"

//go:generate moq -out kv_mock.go . KV

// KV defines the key-value contract the vocabulary store is built on.
// Keys are opaque strings, values are serialized JSON documents.
// Implementations must make Apply atomic: either the whole batch is
// visible or none of it.
type KV interface {
	// Get returns the value for key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetMany returns values for the given keys.
	// Missing keys are omitted from the result, not reported as errors.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Apply выполняет batch атомарно: сначала Put, затем Delete
	Apply(ctx context.Context, batch Batch) error

	// Keys returns all keys with the given prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Batch groups writes and deletes applied in a single transaction
type Batch struct {
	Put    map[string][]byte
	Delete []string
}
