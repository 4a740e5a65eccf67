package driven

import "context"

// KVStore is durable key-value storage for JSON-encoded state.
type KVStore interface {
	// Get returns the value for key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a single value.
	Set(ctx context.Context, key string, value []byte) error

	// SetMany stores all values atomically: either every key is written or none is.
	SetMany(ctx context.Context, values map[string][]byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
